package producer

import "time"

type Option func(*Producer)

func ConnAttempts(attempts int) Option {
	return func(p *Producer) {
		p.connAttempts = attempts
	}
}

func ConnTimeout(timeout time.Duration) Option {
	return func(p *Producer) {
		p.connTimeout = timeout
	}
}

// MaxAttempts bounds the writer's own retries of one batch.
func MaxAttempts(attempts int) Option {
	return func(p *Producer) {
		if attempts > 0 {
			p.maxAttempts = attempts
		}
	}
}

func BatchTimeout(timeout time.Duration) Option {
	return func(p *Producer) {
		p.batchTimeout = timeout
	}
}

package rabbitmq

import "time"

type Option func(*RabbitMQ)

func ConnAttempts(attempts int) Option {
	return func(r *RabbitMQ) {
		r.connAttempts = attempts
	}
}

func ConnTimeout(timeout time.Duration) Option {
	return func(r *RabbitMQ) {
		r.connTimeout = timeout
	}
}

func ExchangeKind(kind string) Option {
	return func(r *RabbitMQ) {
		r.exchangeKind = kind
	}
}

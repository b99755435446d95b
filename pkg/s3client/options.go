package s3client

import "time"

type Option func(c *S3Client)

func ConnAttempts(attempts int) Option {
	return func(c *S3Client) {
		c.connAttempts = attempts
	}
}

func ConnTimeout(timeout time.Duration) Option {
	return func(c *S3Client) {
		c.connTimeout = timeout
	}
}

func Region(region string) Option {
	return func(c *S3Client) {
		c.region = region
	}
}

// UsePathStyle is on by default, as MinIO and most self-hosted stores expect.
func UsePathStyle(use bool) Option {
	return func(c *S3Client) {
		c.usePathStyle = use
	}
}

// RetryMaxAttempts overrides the SDK's retry budget per request.
func RetryMaxAttempts(attempts int) Option {
	return func(c *S3Client) {
		c.retryMaxAttempts = attempts
	}
}

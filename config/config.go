package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type (
	Config struct {
		App             App
		HTTP            HTTP
		Log             Log
		PG              PG
		S3              S3
		Media           Media
		Sweep           Sweep
		OutboxRelay     OutboxRelay
		Kafka           Kafka
		KafkaController KafkaController
		RabbitMQ        RabbitMQ
		Realtime        Realtime
		Auth            Auth
		Cache           Cache
		Swagger         Swagger
	}

	App struct {
		Name string `env:"APP_NAME" envDefault:"ephemeral-chat"`
	}

	HTTP struct {
		Port           string `env:"HTTP_PORT,required"`
		UsePreforkMode bool   `env:"HTTP_USE_PREFORK_MODE" envDefault:"false"`
	}

	Log struct {
		Level string `env:"LOG_LEVEL,required"`
	}

	PG struct {
		PoolMax int    `env:"PG_POOL_MAX,required"`
		URL     string `env:"PG_URL,required"`
		Migrate bool   `env:"PG_MIGRATE" envDefault:"true"`
	}

	S3 struct {
		Endpoint       string        `env:"S3_ENDPOINT,required"`
		AccessKey      string        `env:"S3_ACCESS_KEY,required"`
		SecretKey      string        `env:"S3_SECRET_KEY,required"`
		Bucket         string        `env:"S3_BUCKET,required"`
		Region         string        `env:"S3_REGION" envDefault:"us-east-1"`
		RetryAttempts  int           `env:"S3_RETRY_ATTEMPTS" envDefault:"3"`
		CfgLoadTimeout time.Duration `env:"S3_LOAD_CFG_TIMEOUT" envDefault:"10s"`
	}

	Media struct {
		TTL     time.Duration `env:"MEDIA_TTL" envDefault:"5m"`
		MaxSize int64         `env:"MEDIA_MAX_SIZE" envDefault:"10485760"`
	}

	Sweep struct {
		Interval        time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
		BatchSize       int           `env:"SWEEP_BATCH_SIZE" envDefault:"100"`
		BatchTimeout    time.Duration `env:"SWEEP_BATCH_TIMEOUT" envDefault:"30s"`
		ShutdownTimeout time.Duration `env:"SWEEP_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	}

	Kafka struct {
		Brokers []string `env:"KAFKA_BROKERS,required"`
		GroupID string   `env:"KAFKA_GROUP_ID,required"`
		Topic   string   `env:"KAFKA_TOPIC,required"`
		// topic is created on startup when missing
		Partitions        int `env:"KAFKA_TOPIC_PARTITIONS" envDefault:"3"`
		ReplicationFactor int `env:"KAFKA_REPLICATION_FACTOR" envDefault:"1"`
	}

	OutboxRelay struct {
		PollInterval        time.Duration `env:"OUTBOX_RELAY_POLL_INTERVAL" envDefault:"2s"`
		MarkFailedInterval  time.Duration `env:"OUTBOX_RELAY_MARK_FAILED_INTERVAL" envDefault:"2m"`
		CleanupInterval     time.Duration `env:"OUTBOX_RELAY_CLEANUP_INTERVAL" envDefault:"24h"`
		Retention           time.Duration `env:"OUTBOX_RELAY_RETENTION" envDefault:"168h"`
		ProcessBatchTimeout time.Duration `env:"OUTBOX_RELAY_PROCESS_BATCH_TIMEOUT" envDefault:"15s"`
		ShutdownTimeout     time.Duration `env:"OUTBOX_RELAY_SHUTDOWN_TIMEOUT" envDefault:"5s"`
		BatchSize           int           `env:"OUTBOX_RELAY_BATCH_SIZE" envDefault:"100"`
		MaxRetries          int           `env:"OUTBOX_RELAY_MAX_RETRIES" envDefault:"3"`
	}

	KafkaController struct {
		CommitTimeout   time.Duration `env:"KAFKA_CONTROLLER_COMMIT_TIMEOUT" envDefault:"2s"`
		ProcessTimeout  time.Duration `env:"KAFKA_CONTROLLER_PROCESS_TIMEOUT" envDefault:"15s"` // one blob delete
		ShutdownTimeout time.Duration `env:"KAFKA_CONTROLLER_SHUTDOWN_TIMEOUT" envDefault:"5s"`
		Workers         int           `env:"KAFKA_CONTROLLER_WORKERS" envDefault:"4"`
	}

	// RabbitMQ mirrors lifecycle events to a topic exchange. Disabled when URL is empty.
	RabbitMQ struct {
		URL      string `env:"RABBITMQ_URL"`
		Exchange string `env:"RABBITMQ_EXCHANGE" envDefault:"ephemeral.lifecycle"`
	}

	Realtime struct {
		SendBuffer   int           `env:"REALTIME_SEND_BUFFER" envDefault:"64"`
		WriteTimeout time.Duration `env:"REALTIME_WRITE_TIMEOUT" envDefault:"10s"`
		PingInterval time.Duration `env:"REALTIME_PING_INTERVAL" envDefault:"30s"`
	}

	Auth struct {
		JWTSecret string        `env:"AUTH_JWT_SECRET,required"`
		Issuer    string        `env:"AUTH_JWT_ISSUER"`
		Leeway    time.Duration `env:"AUTH_JWT_LEEWAY" envDefault:"30s"`
	}

	Cache struct {
		Size int           `env:"CACHE_SIZE" envDefault:"1024"`
		TTL  time.Duration `env:"CACHE_TTL" envDefault:"30s"`
	}

	Swagger struct {
		Enabled bool `env:"SWAGGER_ENABLED" envDefault:"false"`
	}
)

func New() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	return cfg, nil
}

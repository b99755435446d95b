package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andreyxaxa/Ephemeral-Chat/config"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/admission"
	kafkactrl "github.com/andreyxaxa/Ephemeral-Chat/internal/controller/kafka"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/controller/restapi"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/controller/restapi/middleware"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/controller/worker/outbox"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/controller/worker/sweep"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/infrastructure"
	infrakafka "github.com/andreyxaxa/Ephemeral-Chat/internal/infrastructure/kafka"
	infrarabbitmq "github.com/andreyxaxa/Ephemeral-Chat/internal/infrastructure/rabbitmq"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/infrastructure/realtime"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/lifecycle"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/repo/persistent"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/usecase/media"
	"github.com/andreyxaxa/Ephemeral-Chat/migrations"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/httpserver"
	pkgkafka "github.com/andreyxaxa/Ephemeral-Chat/pkg/kafka"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/kafka/consumer"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/kafka/producer"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/logger"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/postgres"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/rabbitmq"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/s3client"
)

// room for the multipart envelope and form fields around the image
const _multipartOverhead = 1 << 20

func Run(cfg *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Logger
	l := logger.New(cfg.Log.Level)
	defer func() { _ = l.Sync() }()

	// Repository

	// migrations
	if cfg.PG.Migrate {
		err := postgres.Migrate(cfg.PG.URL, migrations.FS)
		if err != nil {
			l.Fatal(fmt.Errorf("app - Run - postgres.Migrate: %w", err))
		}
	}

	// s3
	s3Ctx, s3Cancel := context.WithTimeout(ctx, cfg.S3.CfgLoadTimeout)
	defer s3Cancel()
	s3c, err := s3client.New(s3Ctx, cfg.S3.Endpoint, cfg.S3.AccessKey, cfg.S3.SecretKey,
		s3client.Region(cfg.S3.Region),
		s3client.RetryMaxAttempts(cfg.S3.RetryAttempts),
	)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - s3client.New: %w", err))
	}
	err = s3c.EnsureBucket(s3Ctx, cfg.S3.Bucket)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - s3c.EnsureBucket: %w", err))
	}

	// postgres
	pg, err := postgres.New(cfg.PG.URL, postgres.MaxPoolSize(cfg.PG.PoolMax))
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - postgres.New: %w", err))
	}
	defer pg.Close()

	// Realtime
	hub := realtime.NewHub(realtime.NewDirectory(), l)

	// Use-Case
	mediaUseCase := media.New(
		persistent.NewMediaRecordRepo(pg),
		persistent.NewOutboxRepo(pg),
		persistent.NewPayloadRepo(s3c, cfg.S3.Bucket),
		pg,
		admission.New(cfg.Media.MaxSize),
		lifecycle.New(cfg.Media.TTL),
		hub,
		l,
		media.WithCache(cfg.Cache.Size, cfg.Cache.TTL),
		media.WithProducer(cfg.App.Name),
	)

	// Kafka Producer
	kafkaProducer, err := producer.New(ctx, cfg.Kafka.Brokers, producer.MaxAttempts(cfg.OutboxRelay.MaxRetries))
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - producer.New: %w", err))
	}
	err = pkgkafka.EnsureTopic(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - pkgkafka.EnsureTopic: %w", err))
	}

	// RabbitMQ mirror
	var mirrors []infrastructure.EventsSender
	if cfg.RabbitMQ.URL != "" {
		rmq, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			l.Fatal(fmt.Errorf("app - Run - rabbitmq.New: %w", err))
		}
		mirrors = append(mirrors, infrarabbitmq.NewEventPublisher(rmq, cfg.App.Name))
	}

	senders := infrastructure.NewSenders(
		infrakafka.NewEventProducer(kafkaProducer, cfg.Kafka.Topic),
		func(err error) {
			l.Warn("app - Run - mirror sender: %v", err)
		},
		mirrors...,
	)

	// Outbox Relay Worker
	outboxRelayWorker := outbox.New(
		mediaUseCase,
		senders,
		l,
		cfg.OutboxRelay.PollInterval,
		cfg.OutboxRelay.CleanupInterval,
		cfg.OutboxRelay.Retention,
		cfg.OutboxRelay.MarkFailedInterval,
		cfg.OutboxRelay.ProcessBatchTimeout,
		cfg.OutboxRelay.BatchSize,
		cfg.OutboxRelay.MaxRetries,
	)

	// Expiry Sweep Worker
	sweepWorker := sweep.New(
		mediaUseCase,
		l,
		cfg.Sweep.Interval,
		cfg.Sweep.BatchTimeout,
		cfg.Sweep.BatchSize,
	)

	// Kafka Consumer
	kafkaConsumer, err := consumer.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - consumer.New: %w", err))
	}

	// Kafka as Controller
	kafkaController := kafkactrl.New(
		mediaUseCase,
		infrakafka.NewEventConsumer(kafkaConsumer),
		l,
		cfg.KafkaController.CommitTimeout,
		cfg.KafkaController.ProcessTimeout,
		cfg.KafkaController.Workers,
	)

	// HTTP Server
	httpServer := httpserver.New(l,
		httpserver.AppName(cfg.App.Name),
		httpserver.Port(cfg.HTTP.Port),
		httpserver.Prefork(cfg.HTTP.UsePreforkMode),
		httpserver.BodyLimit(int(cfg.Media.MaxSize)+_multipartOverhead),
	)
	auth := middleware.NewAuth(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Leeway, l)
	restapi.NewRouter(httpServer.App, cfg, mediaUseCase, hub, auth, l)

	// Start Components
	err = outboxRelayWorker.Start(ctx)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - outboxRelayWorker.Start: %w", err))
	}
	err = sweepWorker.Start(ctx)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - sweepWorker.Start: %w", err))
	}
	err = kafkaController.Start(ctx)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - kafkaController.Start: %w", err))
	}
	httpServer.Start()

	// Waiting Signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-interrupt:
		l.Info("app - Run - signal: %s", s.String())
	case err = <-httpServer.Notify():
		l.Error(fmt.Errorf("app - Run - httpServer.Notify: %w", err))
	}

	// Shutdown
	err = httpServer.Shutdown()
	if err != nil {
		l.Error(fmt.Errorf("app - Run - httpServer.Shutdown: %w", err))
	}

	err = hub.Close()
	if err != nil {
		l.Error(fmt.Errorf("app - Run - hub.Close: %w", err))
	}

	swShutdownCtx, swShutdownCancel := context.WithTimeout(ctx, cfg.Sweep.ShutdownTimeout)
	defer swShutdownCancel()
	err = sweepWorker.Shutdown(swShutdownCtx)
	if err != nil {
		l.Error(fmt.Errorf("app - Run - sweepWorker.Shutdown: %w", err))
	}

	orlShutdownCtx, orlShutdownCancel := context.WithTimeout(ctx, cfg.OutboxRelay.ShutdownTimeout)
	defer orlShutdownCancel()
	err = outboxRelayWorker.Shutdown(orlShutdownCtx)
	if err != nil {
		l.Error(fmt.Errorf("app - Run - outboxRelayWorker.Shutdown: %w", err))
	}

	kcShutdownCtx, kcShutdownCancel := context.WithTimeout(ctx, cfg.KafkaController.ShutdownTimeout)
	defer kcShutdownCancel()
	err = kafkaController.Shutdown(kcShutdownCtx)
	if err != nil {
		l.Error(fmt.Errorf("app - Run - kafkaController.Shutdown: %w", err))
	}
}

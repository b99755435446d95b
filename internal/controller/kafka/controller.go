package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/dto"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
	infrakafka "github.com/andreyxaxa/Ephemeral-Chat/internal/infrastructure/kafka"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/usecase"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/logger"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/types/errs"
	"github.com/segmentio/kafka-go"
)

type EventReader interface {
	ReadEvent(ctx context.Context) (kafka.Message, error)
	CommitEvent(ctx context.Context, event kafka.Message) error
	Close() error
}

// KafkaController consumes the lifecycle stream and deletes the blobs released
// by expiries. Deleting a missing blob succeeds, so redelivery is harmless.
type KafkaController struct {
	uc     usecase.ExpiryUseCase
	er     EventReader
	logger logger.Interface

	commitTimeout  time.Duration
	processTimeout time.Duration

	workers int
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	started atomic.Bool
}

func New(
	uc usecase.ExpiryUseCase,
	er EventReader,
	l logger.Interface,
	commitTimeout time.Duration,
	processTimeout time.Duration,
	workers int,
) *KafkaController {
	if workers <= 0 {
		workers = 1
	}

	return &KafkaController{
		uc:             uc,
		er:             er,
		logger:         l,
		commitTimeout:  commitTimeout,
		processTimeout: processTimeout,
		workers:        workers,
	}
}

func (c *KafkaController) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return fmt.Errorf("KafkaController - Start - controller already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)

	tasks := make(chan kafka.Message, c.workers*2)

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(tasks)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(tasks)

		for {
			select {
			case <-c.ctx.Done():
				return
			default:
				event, err := c.er.ReadEvent(c.ctx)
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						c.logger.Error(err, "KafkaController - Start - c.er.ReadEvent")
					}
					continue
				}

				select {
				case tasks <- event:
				case <-c.ctx.Done():
					return
				}
			}
		}
	}()

	return nil
}

// handle returns nil for events that need no work, so they get committed.
func (c *KafkaController) handle(ctx context.Context, event kafka.Message) error {
	if t := infrakafka.EventType(event); t != "" && entity.EventName(t) != entity.EventImageExpired {
		return nil
	}

	var envelope dto.LifecycleEnvelope
	err := json.Unmarshal(event.Value, &envelope)
	if err != nil {
		return fmt.Errorf("KafkaController - handle - json.Unmarshal: %w", errors.Join(errs.ErrUnknownEvent, err))
	}

	if envelope.Meta.Type != entity.EventImageExpired {
		return nil
	}

	err = c.uc.PurgePayload(ctx, envelope.Data.PurgedKey)
	if err != nil {
		return fmt.Errorf("KafkaController - handle - c.uc.PurgePayload: %w", err)
	}

	return nil
}

func (c *KafkaController) worker(tasks <-chan kafka.Message) {
	defer c.wg.Done()

	for event := range tasks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error(fmt.Errorf("panic %v", r), "KafkaController - worker - panic")
				}
			}()

			processCtx, processCancel := context.WithTimeout(c.ctx, c.processTimeout)
			err := c.handle(processCtx, event)
			processCancel()
			if err != nil {
				c.logger.Error(err, "KafkaController - worker - c.handle")

				// a message that can never be decoded is skipped
				if !errors.Is(err, errs.ErrUnknownEvent) {
					return
				}
			}

			commitCtx, commitCancel := context.WithTimeout(c.ctx, c.commitTimeout)
			err = c.er.CommitEvent(commitCtx, event)
			commitCancel()
			if err != nil {
				c.logger.Error(err, "KafkaController - worker - c.er.CommitEvent")
			}
		}()
	}
}

func (c *KafkaController) Shutdown(ctx context.Context) error {
	if !c.started.Load() {
		return nil
	}

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})

	go func() {
		c.wg.Wait()
		if err := c.er.Close(); err != nil {
			c.logger.Error(err, "KafkaController - Shutdown - c.er.Close")
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("KafkaController - Shutdown: %w", ctx.Err())
	}
}

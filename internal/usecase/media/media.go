package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/admission"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/dto"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/infrastructure"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/lifecycle"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/metrics"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/repo"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/logger"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/types/errs"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	_defaultCacheSize = 1024
	_defaultCacheTTL  = 30 * time.Second
	_defaultProducer  = "ephemeral-chat"
)

type UseCase struct {
	records    repo.MediaRecordRepo
	outbox     repo.OutboxRepo
	payloads   repo.PayloadRepo
	transactor repo.Transactor

	validator *admission.Validator
	machine   *lifecycle.Machine
	fanOut    infrastructure.FanOut

	cache    *expirable.LRU[uuid.UUID, *entity.MediaRecord]
	gens     cacheGenerations
	locks    recordLocks
	producer string

	logger logger.Interface
}

type Option func(*UseCase)

// WithCache sets the size and TTL of the record read cache.
func WithCache(size int, ttl time.Duration) Option {
	return func(uc *UseCase) {
		uc.cache = expirable.NewLRU[uuid.UUID, *entity.MediaRecord](size, nil, ttl)
	}
}

// WithProducer names this process in lifecycle event envelopes.
func WithProducer(name string) Option {
	return func(uc *UseCase) {
		uc.producer = name
	}
}

func New(
	records repo.MediaRecordRepo,
	outbox repo.OutboxRepo,
	payloads repo.PayloadRepo,
	transactor repo.Transactor,
	validator *admission.Validator,
	machine *lifecycle.Machine,
	fanOut infrastructure.FanOut,
	l logger.Interface,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		records:    records,
		outbox:     outbox,
		payloads:   payloads,
		transactor: transactor,
		validator:  validator,
		machine:    machine,
		fanOut:     fanOut,
		producer:   _defaultProducer,
		logger:     l,
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.cache == nil {
		uc.cache = expirable.NewLRU[uuid.UUID, *entity.MediaRecord](_defaultCacheSize, nil, _defaultCacheTTL)
	}

	return uc
}

func (uc *UseCase) PrecheckUpload(declaredType string, size int64) error {
	res := uc.validator.ValidateMetadata(declaredType, size)
	if !res.Accepted {
		metrics.AdmissionsTotal.WithLabelValues("rejected", string(res.Reason)).Inc()

		return &admission.RejectionError{Reason: res.Reason}
	}

	return nil
}

// CreateImageMessage admits the upload, stores its bytes and persists a new
// active record. The blob is removed again if the record cannot be committed.
func (uc *UseCase) CreateImageMessage(
	ctx context.Context,
	senderID, receiverID string,
	upload dto.Upload,
) (*entity.MediaRecord, error) {
	if senderID == "" {
		return nil, fmt.Errorf("MediaUseCase - CreateImageMessage - empty sender: %w", errs.ErrForbidden)
	}
	if receiverID == "" {
		return nil, fmt.Errorf("MediaUseCase - CreateImageMessage - empty receiver: %w", errs.ErrInvalidArgument)
	}
	if senderID == receiverID {
		return nil, fmt.Errorf("MediaUseCase - CreateImageMessage: %w", errs.ErrSelfMessage)
	}
	for _, id := range []string{senderID, receiverID} {
		if err := entity.CheckUserID(id); err != nil {
			return nil, fmt.Errorf("MediaUseCase - CreateImageMessage - entity.CheckUserID: %w", errors.Join(errs.ErrInvalidArgument, err))
		}
	}

	payload, err := uc.validator.Admit(upload.Data, upload.DeclaredType)
	if err != nil {
		var rejection *admission.RejectionError
		if errors.As(err, &rejection) {
			metrics.AdmissionsTotal.WithLabelValues("rejected", string(rejection.Reason)).Inc()
		}

		return nil, fmt.Errorf("MediaUseCase - CreateImageMessage - uc.validator.Admit: %w", err)
	}
	metrics.AdmissionsTotal.WithLabelValues("accepted", "").Inc()

	id := uuid.New()
	payloadKey := fmt.Sprintf("payloads/%s", id)

	// 1. bytes first, so a committed record always points at an existing blob
	err = uc.payloads.UploadBytes(ctx, payloadKey, payload.Bytes(), payload.MimeType())
	if err != nil {
		return nil, fmt.Errorf("MediaUseCase - CreateImageMessage - uc.payloads.UploadBytes: %w", err)
	}

	preview := entity.PreviewImage
	if upload.Caption != "" {
		preview = upload.Caption
	}

	rec := &entity.MediaRecord{
		ID:               id,
		ConversationKey:  entity.NewConversationKey(senderID, receiverID),
		SenderID:         senderID,
		ReceiverID:       receiverID,
		PayloadKey:       &payloadKey,
		PayloadSize:      payload.Size(),
		DeclaredMimeType: upload.DeclaredType,
		SniffedFormat:    payload.Format(),
		Preview:          preview,
		State:            entity.StateActive,
		CreatedAt:        uc.machine.Now(),
	}

	unlock := uc.locks.lock(id)
	defer unlock()

	// 2. record and its outbox event in one transaction
	err = uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := uc.records.Create(ctx, rec); err != nil {
			return fmt.Errorf("MediaUseCase - CreateImageMessage - uc.records.Create: %w", err)
		}

		event, err := uc.newOutboxEvent(entity.EventMessageNew, rec, "", "")
		if err != nil {
			return fmt.Errorf("MediaUseCase - CreateImageMessage - uc.newOutboxEvent: %w", err)
		}
		if err := uc.outbox.Create(ctx, event); err != nil {
			return fmt.Errorf("MediaUseCase - CreateImageMessage - uc.outbox.Create: %w", err)
		}

		return nil
	})
	if err != nil {
		deleteErr := uc.payloads.Delete(context.WithoutCancel(ctx), payloadKey)
		if deleteErr != nil {
			uc.logger.Error(deleteErr, "MediaUseCase - CreateImageMessage - uc.payloads.Delete")
		}

		return nil, fmt.Errorf("MediaUseCase - CreateImageMessage - uc.transactor.WithinTransaction: %w", err)
	}

	metrics.TransitionsTotal.WithLabelValues(string(entity.StateActive), string(entity.TriggerClient)).Inc()

	// 3. publish only after commit
	uc.fanOut.Publish(ctx, entity.NewMessage{
		ConversationKey: rec.ConversationKey,
		RecordID:        rec.ID,
		SenderID:        rec.SenderID,
		ReceiverID:      rec.ReceiverID,
		MimeType:        rec.SniffedFormat.MimeType(),
		Preview:         rec.Preview,
		CreatedAt:       rec.CreatedAt,
	})

	return rec.Clone(), nil
}

// GetForClient returns the record as its participant (or an administrator) may see it.
func (uc *UseCase) GetForClient(ctx context.Context, id uuid.UUID, actor entity.Actor) (*dto.ClientMedia, error) {
	rec, err := uc.load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("MediaUseCase - GetForClient - uc.load: %w", err)
	}

	if !actor.Admin && !rec.IsParticipant(actor.ID) {
		return nil, fmt.Errorf("MediaUseCase - GetForClient - actor %q: %w", actor.ID, errs.ErrForbidden)
	}

	media, err := uc.SerializeForClient(ctx, rec, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("MediaUseCase - GetForClient - uc.SerializeForClient: %w", err)
	}

	return media, nil
}

// SerializeForClient is the only way a record leaves the service. Once the
// record is effectively expired it carries the placeholder and no bytes,
// whatever its stored state. The receiver gets bytes only after viewing.
func (uc *UseCase) SerializeForClient(ctx context.Context, rec *entity.MediaRecord, viewerID string) (*dto.ClientMedia, error) {
	media := &dto.ClientMedia{
		ID:              rec.ID,
		ConversationKey: rec.ConversationKey,
		SenderID:        rec.SenderID,
		ReceiverID:      rec.ReceiverID,
		MimeType:        rec.SniffedFormat.MimeType(),
		State:           rec.State,
		Read:            rec.Read,
		Preview:         rec.Preview,
		CreatedAt:       rec.CreatedAt,
		ViewedAt:        rec.ViewedAt,
		ExpiresAt:       rec.ExpiresAt,
	}

	if uc.machine.IsEffectivelyExpired(rec) {
		media.Expired = true
		media.State = entity.StateExpired
		media.Preview = entity.PreviewExpired

		return media, nil
	}

	if !rec.HasPayload() || !mayReadPayload(rec, viewerID) {
		return media, nil
	}

	b, err := uc.payloads.DownloadBytes(ctx, *rec.PayloadKey)
	if err != nil {
		return nil, fmt.Errorf("MediaUseCase - SerializeForClient - uc.payloads.DownloadBytes: %w", err)
	}

	// the deadline may have passed during the download
	if uc.machine.IsEffectivelyExpired(rec) {
		media.Expired = true
		media.State = entity.StateExpired
		media.Preview = entity.PreviewExpired

		return media, nil
	}

	media.Payload = b

	return media, nil
}

// MarkRead acknowledges the message envelope. It does not touch the image lifecycle.
func (uc *UseCase) MarkRead(ctx context.Context, id uuid.UUID, actor entity.Actor) error {
	rec, err := uc.load(ctx, id)
	if err != nil {
		return fmt.Errorf("MediaUseCase - MarkRead - uc.load: %w", err)
	}

	if actor.ID == "" || actor.ID != rec.ReceiverID {
		return fmt.Errorf("MediaUseCase - MarkRead - actor %q is not the receiver: %w", actor.ID, errs.ErrForbidden)
	}

	if rec.Read {
		return nil
	}

	err = uc.records.MarkRead(ctx, id)
	if err != nil {
		return fmt.Errorf("MediaUseCase - MarkRead - uc.records.MarkRead: %w", err)
	}

	uc.evict(id)

	return nil
}

// load reads through the cache. The returned record is a private copy.
func (uc *UseCase) load(ctx context.Context, id uuid.UUID) (*entity.MediaRecord, error) {
	if rec, ok := uc.cache.Get(id); ok {
		return rec.Clone(), nil
	}

	gen := uc.gens.current(id)

	rec, err := uc.records.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("MediaUseCase - load - uc.records.GetByID: %w", err)
	}

	cached := rec.Clone()
	uc.gens.fill(id, gen, func() { uc.cache.Add(id, cached) })

	return rec, nil
}

// evict drops the cached copy after a write to the store.
func (uc *UseCase) evict(id uuid.UUID) {
	uc.gens.invalidate(id, func() { uc.cache.Remove(id) })
}

func mayReadPayload(rec *entity.MediaRecord, viewerID string) bool {
	switch viewerID {
	case rec.SenderID:
		return true
	case rec.ReceiverID:
		return rec.State == entity.StateViewing
	default:
		return false
	}
}

package persistent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/postgres"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/types/errs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	// Table
	mediaTable = "media_records"

	// Columns
	idColumn               = "id"
	conversationKeyColumn  = "conversation_key"
	senderIDColumn         = "sender_id"
	receiverIDColumn       = "receiver_id"
	payloadKeyColumn       = "payload_key"
	payloadSizeColumn      = "payload_size"
	declaredMimeTypeColumn = "declared_mime_type"
	sniffedFormatColumn    = "sniffed_format"
	previewColumn          = "preview"
	stateColumn            = "state"
	readColumn             = "read"
	createdAtColumn        = "created_at"
	viewedAtColumn         = "viewed_at"
	expiresAtColumn        = "expires_at"
)

var mediaColumns = []string{
	idColumn,
	conversationKeyColumn,
	senderIDColumn,
	receiverIDColumn,
	payloadKeyColumn,
	payloadSizeColumn,
	declaredMimeTypeColumn,
	sniffedFormatColumn,
	previewColumn,
	stateColumn,
	readColumn,
	createdAtColumn,
	viewedAtColumn,
	expiresAtColumn,
}

type MediaRecordRepo struct {
	*postgres.Postgres
}

func NewMediaRecordRepo(pg *postgres.Postgres) *MediaRecordRepo {
	return &MediaRecordRepo{pg}
}

func (r *MediaRecordRepo) Create(ctx context.Context, rec *entity.MediaRecord) error {
	sql, args, err := r.Builder.
		Insert(mediaTable).
		Columns(mediaColumns...).
		Values(
			rec.ID,
			rec.ConversationKey.String(),
			rec.SenderID,
			rec.ReceiverID,
			rec.PayloadKey,
			rec.PayloadSize,
			rec.DeclaredMimeType,
			string(rec.SniffedFormat),
			rec.Preview,
			string(rec.State),
			rec.Read,
			rec.CreatedAt,
			rec.ViewedAt,
			rec.ExpiresAt,
		).ToSql()
	if err != nil {
		return fmt.Errorf("MediaRecordRepo - Create - r.Builder.ToSql: %w", err)
	}

	// Pool / Tx
	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("MediaRecordRepo - Create - executor.Exec: %w", err)
	}

	return nil
}

func (r *MediaRecordRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.MediaRecord, error) {
	sql, args, err := r.Builder.
		Select(mediaColumns...).
		From(mediaTable).
		Where(squirrel.Eq{idColumn: id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("MediaRecordRepo - GetByID - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	rec, err := scanMediaRecord(executor.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("MediaRecordRepo - GetByID: %w", errs.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("MediaRecordRepo - GetByID - executor.QueryRow: %w", err)
	}

	return rec, nil
}

func (r *MediaRecordRepo) FindDueForExpiry(
	ctx context.Context,
	now time.Time,
	limit int,
	skip uuid.UUIDs,
) ([]*entity.MediaRecord, error) {
	where := squirrel.And{
		squirrel.NotEq{stateColumn: string(entity.StateExpired)},
		squirrel.LtOrEq{expiresAtColumn: now},
	}
	if len(skip) > 0 {
		where = append(where, squirrel.NotEq{idColumn: skip.Strings()})
	}

	sql, args, err := r.Builder.
		Select(mediaColumns...).
		From(mediaTable).
		Where(where).
		OrderBy(expiresAtColumn + " ASC").
		Limit(uint64(limit)). //nolint:gosec // positive configured batch size
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("MediaRecordRepo - FindDueForExpiry - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("MediaRecordRepo - FindDueForExpiry - executor.Query: %w", err)
	}
	defer rows.Close()

	records := make([]*entity.MediaRecord, 0, limit)
	for rows.Next() {
		rec, err := scanMediaRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("MediaRecordRepo - FindDueForExpiry - rows.Scan: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("MediaRecordRepo - FindDueForExpiry - rows.Err: %w", err)
	}

	return records, nil
}

// Transition is a compare-and-set on the state column: the row is written only
// while it is still in state from, so of two racing writers exactly one applies.
func (r *MediaRecordRepo) Transition(ctx context.Context, rec *entity.MediaRecord, from entity.State) (bool, error) {
	sql, args, err := r.Builder.
		Update(mediaTable).
		Set(stateColumn, string(rec.State)).
		Set(payloadKeyColumn, rec.PayloadKey).
		Set(previewColumn, rec.Preview).
		Set(viewedAtColumn, rec.ViewedAt).
		Set(expiresAtColumn, rec.ExpiresAt).
		Where(squirrel.And{
			squirrel.Eq{idColumn: rec.ID},
			squirrel.Eq{stateColumn: string(from)},
		}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("MediaRecordRepo - Transition - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("MediaRecordRepo - Transition - executor.Exec: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *MediaRecordRepo) MarkRead(ctx context.Context, id uuid.UUID) error {
	sql, args, err := r.Builder.
		Update(mediaTable).
		Set(readColumn, true).
		Where(squirrel.Eq{idColumn: id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("MediaRecordRepo - MarkRead - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("MediaRecordRepo - MarkRead - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("MediaRecordRepo - MarkRead: %w", errs.ErrRecordNotFound)
	}

	return nil
}

func scanMediaRecord(row pgx.Row) (*entity.MediaRecord, error) {
	var (
		rec    entity.MediaRecord
		stored string
		format string
		state  string
	)

	err := row.Scan(
		&rec.ID,
		&stored,
		&rec.SenderID,
		&rec.ReceiverID,
		&rec.PayloadKey,
		&rec.PayloadSize,
		&rec.DeclaredMimeType,
		&format,
		&rec.Preview,
		&state,
		&rec.Read,
		&rec.CreatedAt,
		&rec.ViewedAt,
		&rec.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	// the participants are authoritative; the stored key is only an index
	rec.ConversationKey = entity.NewConversationKey(rec.SenderID, rec.ReceiverID)
	rec.SniffedFormat = entity.ImageFormat(format)
	rec.State = entity.State(state)

	return &rec, nil
}

package outbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	contractsv1 "beacon/contracts/gen/events/v1"
	"beacon/internal/shared/events"
)

const (
	tableOutbox = "outbox_messages"
	tableInbox  = "inbox_messages"

	defaultBatchSize = 100
)

type messageRow struct {
	ID             string     `gorm:"column:id;primaryKey"`
	EventType      string     `gorm:"column:type"`
	Content        []byte     `gorm:"column:content"`
	OccurredOnUTC  time.Time  `gorm:"column:occurred_on_utc"`
	ProcessedOnUTC *time.Time `gorm:"column:processed_on_utc"`
	Error          *string    `gorm:"column:error"`
}

func (r messageRow) toMessage() Message {
	return Message{
		ID:             r.ID,
		EventType:      r.EventType,
		Content:        append([]byte(nil), r.Content...),
		OccurredOnUTC:  r.OccurredOnUTC.UTC(),
		ProcessedOnUTC: r.ProcessedOnUTC,
		Error:          r.Error,
	}
}

type outboxConsumerModel struct {
	OutboxMessageID string `gorm:"column:outbox_message_id;primaryKey"`
	Name            string `gorm:"column:name;primaryKey"`
}

func (outboxConsumerModel) TableName() string { return "outbox_message_consumers" }

type inboxConsumerModel struct {
	InboxMessageID string `gorm:"column:inbox_message_id;primaryKey"`
	Name           string `gorm:"column:name;primaryKey"`
}

func (inboxConsumerModel) TableName() string { return "inbox_message_consumers" }

// GormStore is the postgres-backed event record store. Outbox and inbox rows
// live in the same database as business data so appends can join the business
// transaction.
type GormStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewGormStore(db *gorm.DB, logger *slog.Logger) *GormStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &GormStore{db: db, logger: logger}
}

func (s *GormStore) AppendOutbox(ctx context.Context, envelopes ...contractsv1.Envelope) error {
	return appendMessages(s.db.WithContext(ctx), tableOutbox, envelopes)
}

func (s *GormStore) AppendInbox(ctx context.Context, envelopes ...contractsv1.Envelope) error {
	return appendMessages(s.db.WithContext(ctx), tableInbox, envelopes)
}

// AppendOutboxTx appends inside a caller-owned transaction. If that
// transaction rolls back, no event row exists.
func (s *GormStore) AppendOutboxTx(tx *gorm.DB, envelopes ...contractsv1.Envelope) error {
	return appendMessages(tx, tableOutbox, envelopes)
}

// HarvestTx drains pending domain events from the given aggregates and
// appends one outbox row per event into the same transaction that is about
// to commit the business change. No-op for aggregates with no events.
func (s *GormStore) HarvestTx(tx *gorm.DB, sourceService string, aggregates ...events.Raiser) error {
	envelopes, err := EnvelopesFrom(sourceService, aggregates...)
	if err != nil {
		return err
	}
	return appendMessages(tx, tableOutbox, envelopes)
}

func appendMessages(tx *gorm.DB, table string, envelopes []contractsv1.Envelope) error {
	for _, envelope := range envelopes {
		content, err := json.Marshal(envelope)
		if err != nil {
			return err
		}
		row := messageRow{
			ID:            strings.TrimSpace(envelope.EventID),
			EventType:     envelope.EventType,
			Content:       content,
			OccurredOnUTC: envelope.OccurredAt.UTC(),
		}
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		if row.OccurredOnUTC.IsZero() {
			row.OccurredOnUTC = time.Now().UTC()
		}
		// Redelivered ids are a no-op so appends stay idempotent.
		if err := tx.Table(table).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoNothing: true,
			}).
			Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *GormStore) ProcessPendingOutbox(ctx context.Context, limit int, process ProcessFunc) (int, error) {
	return s.processPending(ctx, tableOutbox, false, limit, process)
}

func (s *GormStore) ProcessPendingInbox(ctx context.Context, limit int, process ProcessFunc) (int, error) {
	return s.processPending(ctx, tableInbox, true, limit, process)
}

func (s *GormStore) processPending(ctx context.Context, table string, inbox bool, limit int, process ProcessFunc) (int, error) {
	if limit <= 0 {
		limit = defaultBatchSize
	}

	attempted := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []messageRow
		if err := tx.Table(table).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("processed_on_utc IS NULL").
			Order("occurred_on_utc ASC").
			Limit(limit).
			Find(&rows).Error; err != nil {
			return err
		}

		scope := gormScope{tx: tx, inbox: inbox}
		for _, row := range rows {
			// Cancellation rolls the batch back whole; retried rows are
			// suppressed by the consumer ledger on the next tick.
			if err := ctx.Err(); err != nil {
				return err
			}

			updates := map[string]any{}
			if err := process(ctx, scope, row.toMessage()); err != nil {
				updates["error"] = err.Error()
			} else {
				updates["processed_on_utc"] = time.Now().UTC()
				updates["error"] = nil
			}
			if err := tx.Table(table).Where("id = ?", row.ID).Updates(updates).Error; err != nil {
				return err
			}
			attempted++
		}
		return nil
	})
	return attempted, err
}

func (s *GormStore) ListErroredOutbox(ctx context.Context, limit int) ([]Message, error) {
	return s.listErrored(ctx, tableOutbox, limit)
}

func (s *GormStore) ListErroredInbox(ctx context.Context, limit int) ([]Message, error) {
	return s.listErrored(ctx, tableInbox, limit)
}

func (s *GormStore) listErrored(ctx context.Context, table string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = defaultBatchSize
	}
	var rows []messageRow
	if err := s.db.WithContext(ctx).
		Table(table).
		Where("processed_on_utc IS NULL AND error IS NOT NULL").
		Order("occurred_on_utc ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]Message, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toMessage())
	}
	return items, nil
}

type gormScope struct {
	tx    *gorm.DB
	inbox bool
}

func (s gormScope) HandlerApplied(ctx context.Context, messageID string, handlerName string) (bool, error) {
	var count int64
	q := s.tx.WithContext(ctx)
	if s.inbox {
		q = q.Model(&inboxConsumerModel{}).
			Where("inbox_message_id = ? AND name = ?", messageID, handlerName)
	} else {
		q = q.Model(&outboxConsumerModel{}).
			Where("outbox_message_id = ? AND name = ?", messageID, handlerName)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s gormScope) RecordHandlerApplied(ctx context.Context, messageID string, handlerName string) error {
	conflict := clause.OnConflict{DoNothing: true}
	if s.inbox {
		return s.tx.WithContext(ctx).
			Clauses(conflict).
			Create(&inboxConsumerModel{InboxMessageID: messageID, Name: handlerName}).
			Error
	}
	return s.tx.WithContext(ctx).
		Clauses(conflict).
		Create(&outboxConsumerModel{OutboxMessageID: messageID, Name: handlerName}).
		Error
}

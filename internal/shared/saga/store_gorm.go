package saga

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type sagaInstanceModel struct {
	SagaName        string    `gorm:"column:saga_name;primaryKey"`
	CorrelationID   string    `gorm:"column:correlation_id;primaryKey"`
	CurrentState    string    `gorm:"column:current_state"`
	StartedAtUTC    time.Time `gorm:"column:started_at_utc"`
	CompletionFlags uint32    `gorm:"column:completion_flags"`
	TimeoutTokenID  string    `gorm:"column:timeout_token_id"`
	Attempt         uint32    `gorm:"column:attempt"`
}

func (sagaInstanceModel) TableName() string { return "saga_instances" }

func (r sagaInstanceModel) toInstance() Instance {
	return Instance{
		SagaName:        r.SagaName,
		CorrelationID:   r.CorrelationID,
		CurrentState:    State(r.CurrentState),
		StartedAtUTC:    r.StartedAtUTC.UTC(),
		CompletionFlags: r.CompletionFlags,
		TimeoutTokenID:  r.TimeoutTokenID,
		Attempt:         r.Attempt,
	}
}

type sagaTimeoutModel struct {
	TokenID        string     `gorm:"column:token_id;primaryKey"`
	SagaName       string     `gorm:"column:saga_name"`
	CorrelationID  string     `gorm:"column:correlation_id"`
	DueAtUTC       time.Time  `gorm:"column:due_at_utc"`
	Reason         string     `gorm:"column:reason"`
	CancelledAtUTC *time.Time `gorm:"column:cancelled_at_utc"`
	FiredAtUTC     *time.Time `gorm:"column:fired_at_utc"`
}

func (sagaTimeoutModel) TableName() string { return "saga_timeouts" }

// GormStore persists saga instances and timeout tokens in postgres. It is
// both the InstanceStore and the durable Scheduler.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) GetInstance(ctx context.Context, sagaName string, correlationID string) (Instance, bool, error) {
	var row sagaInstanceModel
	err := s.db.WithContext(ctx).
		Where("saga_name = ? AND correlation_id = ?", sagaName, correlationID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Instance{}, false, nil
		}
		return Instance{}, false, err
	}
	return row.toInstance(), true, nil
}

// UpdateInstance locks the instance row FOR UPDATE for the whole
// read-modify-write, so concurrent handlers for the same correlation
// serialize on the row instead of overwriting each other. Two racing creates
// resolve through the upsert; duplicate start transitions are no-ops and
// stale timeout tokens are rejected by token id.
func (s *GormStore) UpdateInstance(ctx context.Context, sagaName string, correlationID string, fn UpdateFunc) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row sagaInstanceModel
		found := true
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("saga_name = ? AND correlation_id = ?", sagaName, correlationID).
			First(&row).
			Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			found = false
		}

		var instance Instance
		if found {
			instance = row.toInstance()
		}
		next, save, err := fn(instance, found)
		if err != nil || !save {
			return err
		}

		out := sagaInstanceModel{
			SagaName:        sagaName,
			CorrelationID:   correlationID,
			CurrentState:    string(next.CurrentState),
			StartedAtUTC:    next.StartedAtUTC.UTC(),
			CompletionFlags: next.CompletionFlags,
			TimeoutTokenID:  next.TimeoutTokenID,
			Attempt:         next.Attempt,
		}
		return tx.
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "saga_name"}, {Name: "correlation_id"}},
				UpdateAll: true,
			}).
			Create(&out).
			Error
	})
}

func (s *GormStore) Schedule(ctx context.Context, token Token) error {
	row := sagaTimeoutModel{
		TokenID:       token.TokenID,
		SagaName:      token.SagaName,
		CorrelationID: token.CorrelationID,
		DueAtUTC:      token.DueAtUTC.UTC(),
		Reason:        token.Reason,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token_id"}},
			DoNothing: true,
		}).
		Create(&row).
		Error
}

func (s *GormStore) Unschedule(ctx context.Context, tokenID string) error {
	// Zero rows affected means the token is unknown, already fired, or
	// already cancelled; all of those are no-ops.
	return s.db.WithContext(ctx).
		Model(&sagaTimeoutModel{}).
		Where("token_id = ? AND fired_at_utc IS NULL AND cancelled_at_utc IS NULL", tokenID).
		Update("cancelled_at_utc", time.Now().UTC()).
		Error
}

func (s *GormStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]Token, error) {
	if limit <= 0 {
		limit = 100
	}

	var claimed []Token
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []sagaTimeoutModel
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("due_at_utc <= ? AND fired_at_utc IS NULL AND cancelled_at_utc IS NULL", now.UTC()).
			Order("due_at_utc ASC").
			Limit(limit).
			Find(&rows).Error; err != nil {
			return err
		}

		for _, row := range rows {
			if err := tx.Model(&sagaTimeoutModel{}).
				Where("token_id = ?", row.TokenID).
				Update("fired_at_utc", now.UTC()).
				Error; err != nil {
				return err
			}
			claimed = append(claimed, Token{
				TokenID:       row.TokenID,
				SagaName:      row.SagaName,
				CorrelationID: row.CorrelationID,
				DueAtUTC:      row.DueAtUTC.UTC(),
				Reason:        row.Reason,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

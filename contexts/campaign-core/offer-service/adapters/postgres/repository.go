package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"beacon/contexts/campaign-core/offer-service/domain/entities"
	domainerrors "beacon/contexts/campaign-core/offer-service/domain/errors"
	"beacon/internal/shared/outbox"
)

const sourceService = "campaign-core/offer-service"

type offerModel struct {
	OfferID    string    `gorm:"column:offer_id;primaryKey"`
	CampaignID string    `gorm:"column:campaign_id"`
	BloggerID  string    `gorm:"column:blogger_id"`
	Price      float64   `gorm:"column:price"`
	Status     string    `gorm:"column:status"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (offerModel) TableName() string { return "offers" }

func (m offerModel) toEntity() entities.Offer {
	return entities.Offer{
		OfferID:    m.OfferID,
		CampaignID: m.CampaignID,
		BloggerID:  m.BloggerID,
		Price:      m.Price,
		Status:     entities.OfferStatus(m.Status),
		CreatedAt:  m.CreatedAt.UTC(),
		UpdatedAt:  m.UpdatedAt.UTC(),
	}
}

func modelFromEntity(offer *entities.Offer) offerModel {
	return offerModel{
		OfferID:    offer.OfferID,
		CampaignID: offer.CampaignID,
		BloggerID:  offer.BloggerID,
		Price:      offer.Price,
		Status:     string(offer.Status),
		CreatedAt:  offer.CreatedAt.UTC(),
		UpdatedAt:  offer.UpdatedAt.UTC(),
	}
}

// Repository persists offers and, in the same transaction, their pending
// domain events via the outbox store.
type Repository struct {
	db     *gorm.DB
	outbox *outbox.GormStore
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, outboxStore *outbox.GormStore, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, outbox: outboxStore, logger: logger}
}

func (r *Repository) CreateOffer(ctx context.Context, offer *entities.Offer) error {
	row := modelFromEntity(offer)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrInvalidOfferInput
			}
			return err
		}
		return r.outbox.HarvestTx(tx, sourceService, offer)
	})
}

func (r *Repository) UpdateOffer(ctx context.Context, offer *entities.Offer) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&offerModel{}).
			Where("offer_id = ?", strings.TrimSpace(offer.OfferID)).
			Updates(map[string]any{
				"status":     string(offer.Status),
				"updated_at": offer.UpdatedAt.UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrOfferNotFound
		}
		return r.outbox.HarvestTx(tx, sourceService, offer)
	})
}

func (r *Repository) GetOffer(ctx context.Context, offerID string) (entities.Offer, error) {
	var row offerModel
	err := r.db.WithContext(ctx).
		Where("offer_id = ?", strings.TrimSpace(offerID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Offer{}, domainerrors.ErrOfferNotFound
		}
		return entities.Offer{}, err
	}
	return row.toEntity(), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"beacon/contexts/campaign-core/offer-service/domain/entities"
	domainerrors "beacon/contexts/campaign-core/offer-service/domain/errors"
	"beacon/internal/shared/outbox"
)

const sourceService = "campaign-core/offer-service"

// Store is the in-memory offer repository. Pending domain events are
// harvested into the given record store on create/update, matching the
// postgres adapter's transactional behavior.
type Store struct {
	mu      sync.RWMutex
	offers  map[string]entities.Offer
	records *outbox.MemoryStore
}

func NewStore(records *outbox.MemoryStore) *Store {
	return &Store{
		offers:  make(map[string]entities.Offer),
		records: records,
	}
}

func (s *Store) CreateOffer(ctx context.Context, offer *entities.Offer) error {
	s.mu.Lock()
	if _, exists := s.offers[offer.OfferID]; exists {
		s.mu.Unlock()
		return domainerrors.ErrInvalidOfferInput
	}
	s.offers[offer.OfferID] = snapshot(offer)
	s.mu.Unlock()

	return s.records.Harvest(ctx, sourceService, offer)
}

func (s *Store) UpdateOffer(ctx context.Context, offer *entities.Offer) error {
	s.mu.Lock()
	if _, exists := s.offers[offer.OfferID]; !exists {
		s.mu.Unlock()
		return domainerrors.ErrOfferNotFound
	}
	s.offers[offer.OfferID] = snapshot(offer)
	s.mu.Unlock()

	return s.records.Harvest(ctx, sourceService, offer)
}

func (s *Store) GetOffer(_ context.Context, offerID string) (entities.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	offer, found := s.offers[strings.TrimSpace(offerID)]
	if !found {
		return entities.Offer{}, domainerrors.ErrOfferNotFound
	}
	return offer, nil
}

// SystemClock is the default runtime clock implementation.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// UUIDGenerator creates identifiers for offers and their events.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func snapshot(offer *entities.Offer) entities.Offer {
	return entities.Offer{
		OfferID:    offer.OfferID,
		CampaignID: offer.CampaignID,
		BloggerID:  offer.BloggerID,
		Price:      offer.Price,
		Status:     offer.Status,
		CreatedAt:  offer.CreatedAt,
		UpdatedAt:  offer.UpdatedAt,
	}
}

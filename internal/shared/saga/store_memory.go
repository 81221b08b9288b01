package saga

import (
	"context"
	"sort"
	"sync"
	"time"
)

type instanceKey struct {
	sagaName      string
	correlationID string
}

type memoryToken struct {
	token     Token
	fired     bool
	cancelled bool
}

// MemoryStore is the in-memory instance store and scheduler used by tests
// and the in-memory module wiring. It implements the same contracts as the
// postgres-backed store. Instances and tokens are guarded separately so an
// UpdateInstance callback can schedule or cancel tokens on the same store
// without deadlocking.
type MemoryStore struct {
	instMu    sync.Mutex
	instances map[instanceKey]Instance

	tokenMu sync.Mutex
	tokens  map[string]*memoryToken
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		instances: make(map[instanceKey]Instance),
		tokens:    make(map[string]*memoryToken),
	}
}

func (s *MemoryStore) GetInstance(_ context.Context, sagaName string, correlationID string) (Instance, bool, error) {
	s.instMu.Lock()
	defer s.instMu.Unlock()

	instance, found := s.instances[instanceKey{sagaName: sagaName, correlationID: correlationID}]
	return instance, found, nil
}

// UpdateInstance holds the instance lock across the whole read-modify-write,
// mirroring the row lock the postgres store takes.
func (s *MemoryStore) UpdateInstance(_ context.Context, sagaName string, correlationID string, fn UpdateFunc) error {
	s.instMu.Lock()
	defer s.instMu.Unlock()

	key := instanceKey{sagaName: sagaName, correlationID: correlationID}
	instance, found := s.instances[key]
	next, save, err := fn(instance, found)
	if err != nil || !save {
		return err
	}
	next.SagaName = sagaName
	next.CorrelationID = correlationID
	s.instances[key] = next
	return nil
}

func (s *MemoryStore) Schedule(_ context.Context, token Token) error {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	if _, exists := s.tokens[token.TokenID]; exists {
		return nil
	}
	s.tokens[token.TokenID] = &memoryToken{token: token}
	return nil
}

func (s *MemoryStore) Unschedule(_ context.Context, tokenID string) error {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	entry, found := s.tokens[tokenID]
	if !found || entry.fired || entry.cancelled {
		return nil
	}
	entry.cancelled = true
	return nil
}

func (s *MemoryStore) ClaimDue(_ context.Context, now time.Time, limit int) ([]Token, error) {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	var due []*memoryToken
	for _, entry := range s.tokens {
		if !entry.fired && !entry.cancelled && !entry.token.DueAtUTC.After(now) {
			due = append(due, entry)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].token.DueAtUTC.Before(due[j].token.DueAtUTC)
	})
	if len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]Token, 0, len(due))
	for _, entry := range due {
		entry.fired = true
		claimed = append(claimed, entry.token)
	}
	return claimed, nil
}

// PendingTokens returns tokens that are neither fired nor cancelled.
func (s *MemoryStore) PendingTokens() []Token {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	var pending []Token
	for _, entry := range s.tokens {
		if !entry.fired && !entry.cancelled {
			pending = append(pending, entry.token)
		}
	}
	return pending
}

// TokenCancelled reports whether the given token id was cancelled.
func (s *MemoryStore) TokenCancelled(tokenID string) bool {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	entry, found := s.tokens[tokenID]
	return found && entry.cancelled
}

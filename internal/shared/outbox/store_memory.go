package outbox

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	contractsv1 "beacon/contracts/gen/events/v1"
	"beacon/internal/shared/events"
)

// MemoryStore is the in-memory event record store used by tests and the
// in-memory module wiring. It mirrors the locking semantics of the postgres
// store: rows claimed by one in-flight batch are invisible to concurrent
// batches.
type MemoryStore struct {
	mu sync.Mutex

	outbox []*Message
	inbox  []*Message

	outboxLedger map[LedgerEntry]bool
	inboxLedger  map[LedgerEntry]bool

	claimed map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		outboxLedger: make(map[LedgerEntry]bool),
		inboxLedger:  make(map[LedgerEntry]bool),
		claimed:      make(map[string]bool),
	}
}

func (s *MemoryStore) AppendOutbox(_ context.Context, envelopes ...contractsv1.Envelope) error {
	return s.append(&s.outbox, envelopes)
}

func (s *MemoryStore) AppendInbox(_ context.Context, envelopes ...contractsv1.Envelope) error {
	return s.append(&s.inbox, envelopes)
}

// Harvest drains pending domain events from aggregates into the outbox,
// matching GormStore.HarvestTx for in-memory wiring.
func (s *MemoryStore) Harvest(ctx context.Context, sourceService string, aggregates ...events.Raiser) error {
	envelopes, err := EnvelopesFrom(sourceService, aggregates...)
	if err != nil {
		return err
	}
	return s.AppendOutbox(ctx, envelopes...)
}

func (s *MemoryStore) append(side *[]*Message, envelopes []contractsv1.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, envelope := range envelopes {
		content, err := json.Marshal(envelope)
		if err != nil {
			return err
		}
		id := envelope.EventID
		if id == "" {
			id = uuid.NewString()
		}
		if s.findLocked(*side, id) != nil {
			continue
		}
		occurred := envelope.OccurredAt.UTC()
		if occurred.IsZero() {
			occurred = time.Now().UTC()
		}
		*side = append(*side, &Message{
			ID:            id,
			EventType:     envelope.EventType,
			Content:       content,
			OccurredOnUTC: occurred,
		})
	}
	return nil
}

func (s *MemoryStore) findLocked(side []*Message, id string) *Message {
	for _, row := range side {
		if row.ID == id {
			return row
		}
	}
	return nil
}

func (s *MemoryStore) ProcessPendingOutbox(ctx context.Context, limit int, process ProcessFunc) (int, error) {
	return s.processPending(ctx, &s.outbox, s.outboxLedger, limit, process)
}

func (s *MemoryStore) ProcessPendingInbox(ctx context.Context, limit int, process ProcessFunc) (int, error) {
	return s.processPending(ctx, &s.inbox, s.inboxLedger, limit, process)
}

func (s *MemoryStore) processPending(ctx context.Context, side *[]*Message, ledger map[LedgerEntry]bool, limit int, process ProcessFunc) (int, error) {
	if limit <= 0 {
		limit = defaultBatchSize
	}

	batch := s.claimBatch(side, limit)
	defer s.releaseBatch(batch)

	scope := memoryScope{store: s, ledger: ledger}
	attempted := 0
	for _, row := range batch {
		if err := ctx.Err(); err != nil {
			return attempted, err
		}

		msg := *row
		msg.Content = append([]byte(nil), row.Content...)
		err := process(ctx, scope, msg)

		s.mu.Lock()
		if err != nil {
			text := err.Error()
			row.Error = &text
		} else {
			now := time.Now().UTC()
			row.ProcessedOnUTC = &now
			row.Error = nil
		}
		s.mu.Unlock()
		attempted++
	}
	return attempted, nil
}

func (s *MemoryStore) claimBatch(side *[]*Message, limit int) []*Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]*Message, 0, limit)
	for _, row := range *side {
		if row.ProcessedOnUTC != nil || s.claimed[row.ID] {
			continue
		}
		pending = append(pending, row)
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].OccurredOnUTC.Before(pending[j].OccurredOnUTC)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	for _, row := range pending {
		s.claimed[row.ID] = true
	}
	return pending
}

func (s *MemoryStore) releaseBatch(batch []*Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range batch {
		delete(s.claimed, row.ID)
	}
}

func (s *MemoryStore) ListErroredOutbox(_ context.Context, limit int) ([]Message, error) {
	return s.listErrored(s.outbox, limit), nil
}

func (s *MemoryStore) ListErroredInbox(_ context.Context, limit int) ([]Message, error) {
	return s.listErrored(s.inbox, limit), nil
}

func (s *MemoryStore) listErrored(side []*Message, limit int) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = defaultBatchSize
	}
	items := make([]Message, 0)
	for _, row := range side {
		if row.ProcessedOnUTC == nil && row.Error != nil && len(items) < limit {
			items = append(items, *row)
		}
	}
	return items
}

// OutboxMessages returns a snapshot of all outbox rows, oldest first.
func (s *MemoryStore) OutboxMessages() []Message {
	return s.snapshot(s.outbox)
}

// InboxMessages returns a snapshot of all inbox rows, oldest first.
func (s *MemoryStore) InboxMessages() []Message {
	return s.snapshot(s.inbox)
}

func (s *MemoryStore) snapshot(side []*Message) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]Message, 0, len(side))
	for _, row := range side {
		items = append(items, *row)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].OccurredOnUTC.Before(items[j].OccurredOnUTC)
	})
	return items
}

// InboxLedger returns a snapshot of the inbox consumer ledger.
func (s *MemoryStore) InboxLedger() []LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]LedgerEntry, 0, len(s.inboxLedger))
	for entry := range s.inboxLedger {
		entries = append(entries, entry)
	}
	return entries
}

type memoryScope struct {
	store  *MemoryStore
	ledger map[LedgerEntry]bool
}

func (s memoryScope) HandlerApplied(_ context.Context, messageID string, handlerName string) (bool, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	return s.ledger[LedgerEntry{MessageID: messageID, HandlerName: handlerName}], nil
}

func (s memoryScope) RecordHandlerApplied(_ context.Context, messageID string, handlerName string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.ledger[LedgerEntry{MessageID: messageID, HandlerName: handlerName}] = true
	return nil
}

package saga

import (
	"context"
	"testing"
	"time"

	"beacon/internal/shared/outbox"
)

func TestTimeoutJobDeliversDueTokensThroughInbox(t *testing.T) {
	instances := NewMemoryStore()
	records := outbox.NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	due := Token{
		TokenID:       "tok-due",
		SagaName:      "test-saga",
		CorrelationID: "corr-1",
		DueAtUTC:      now.Add(-time.Second),
		Reason:        "no finish in time",
	}
	future := Token{
		TokenID:       "tok-future",
		SagaName:      "test-saga",
		CorrelationID: "corr-2",
		DueAtUTC:      now.Add(time.Hour),
	}
	if err := instances.Schedule(ctx, due); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	if err := instances.Schedule(ctx, future); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	job := &TimeoutJob{
		Scheduler:   instances,
		Inbox:       records,
		Definitions: []Definition{testDefinition()},
		BatchSize:   10,
		Clock:       fixedClock{now: now},
	}
	if err := job.RunOnce(ctx); err != nil {
		t.Fatalf("timeout run failed: %v", err)
	}

	inbox := records.InboxMessages()
	if len(inbox) != 1 {
		t.Fatalf("expected one synthetic timeout event, got %d", len(inbox))
	}
	if inbox[0].ID != "tok-due" || inbox[0].EventType != "test.timeout" {
		t.Fatalf("unexpected timeout event %s/%s", inbox[0].ID, inbox[0].EventType)
	}

	// Fired tokens are claimed exactly once.
	if err := job.RunOnce(ctx); err != nil {
		t.Fatalf("second timeout run failed: %v", err)
	}
	if got := len(records.InboxMessages()); got != 1 {
		t.Fatalf("expected fired token claimed once, got %d inbox rows", got)
	}

	pending := instances.PendingTokens()
	if len(pending) != 1 || pending[0].TokenID != "tok-future" {
		t.Fatalf("expected only the future token pending, got %v", pending)
	}
}

func TestTimeoutJobDropsTokensForUnknownSagas(t *testing.T) {
	instances := NewMemoryStore()
	records := outbox.NewMemoryStore()
	now := time.Now().UTC()
	ctx := context.Background()

	orphan := Token{
		TokenID:       "tok-orphan",
		SagaName:      "retired-saga",
		CorrelationID: "corr-1",
		DueAtUTC:      now.Add(-time.Second),
	}
	if err := instances.Schedule(ctx, orphan); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	job := &TimeoutJob{
		Scheduler:   instances,
		Inbox:       records,
		Definitions: []Definition{testDefinition()},
		BatchSize:   10,
		Clock:       fixedClock{now: now},
	}
	if err := job.RunOnce(ctx); err != nil {
		t.Fatalf("timeout run failed: %v", err)
	}
	if got := len(records.InboxMessages()); got != 0 {
		t.Fatalf("expected orphan token dropped, got %d inbox rows", got)
	}
}

package bootstrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	contractsv1 "beacon/contracts/gen/events/v1"
	"beacon/internal/platform/config"
	"beacon/internal/shared/outbox"
)

// unreachableStore fails every call, as a store does while its database is
// briefly down.
type unreachableStore struct {
	calls int
}

func (s *unreachableStore) AppendOutbox(context.Context, ...contractsv1.Envelope) error {
	return errors.New("connection refused")
}

func (s *unreachableStore) AppendInbox(context.Context, ...contractsv1.Envelope) error {
	return errors.New("connection refused")
}

func (s *unreachableStore) ProcessPendingOutbox(context.Context, int, outbox.ProcessFunc) (int, error) {
	s.calls++
	return 0, errors.New("connection refused")
}

func (s *unreachableStore) ProcessPendingInbox(context.Context, int, outbox.ProcessFunc) (int, error) {
	return 0, errors.New("connection refused")
}

func (s *unreachableStore) ListErroredOutbox(context.Context, int) ([]outbox.Message, error) {
	return nil, errors.New("connection refused")
}

func (s *unreachableStore) ListErroredInbox(context.Context, int) ([]outbox.Message, error) {
	return nil, errors.New("connection refused")
}

func TestWorkerRunSurvivesTransientJobFailures(t *testing.T) {
	store := &unreachableStore{}
	app := &WorkerApp{
		publisher: &outbox.PublisherJob{
			Store:     store,
			Registry:  outbox.NewRegistry(),
			BatchSize: 1,
		},
		cfg: config.Config{
			EnableOutboxPublisher: true,
		},
		pollInterval: time.Millisecond,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := app.Run(ctx); err != nil {
		t.Fatalf("expected worker to outlive failing cycles, got %v", err)
	}
	if store.calls < 2 {
		t.Fatalf("expected the loop to keep polling after a failed cycle, got %d calls", store.calls)
	}
}

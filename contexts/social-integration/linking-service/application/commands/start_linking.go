package commands

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	application "beacon/contexts/social-integration/linking-service/application"
	domainerrors "beacon/contexts/social-integration/linking-service/domain/errors"
	"beacon/contexts/social-integration/linking-service/domain/workflow"
	contractsv1 "beacon/contracts/gen/events/v1"
	"beacon/internal/shared/outbox"

	"log/slog"

	"beacon/contexts/social-integration/linking-service/ports"
)

// StartLinkingUseCase records the account-linked trigger event through the
// outbox. The workflow itself advances only when the event flows back through
// the publisher, broker, and inbox.
type StartLinkingUseCase struct {
	Outbox      outbox.Appender
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (uc StartLinkingUseCase) Execute(ctx context.Context, userID string) (string, error) {
	return appendTrigger(ctx, triggerInput{
		Outbox:      uc.Outbox,
		Clock:       uc.Clock,
		IDGenerator: uc.IDGenerator,
		Logger:      uc.Logger,
		UserID:      userID,
		EventType:   workflow.EventTypeAccountLinked,
	})
}

// RequestRenewalUseCase records the access-renewal trigger event.
type RequestRenewalUseCase struct {
	Outbox      outbox.Appender
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (uc RequestRenewalUseCase) Execute(ctx context.Context, userID string) (string, error) {
	return appendTrigger(ctx, triggerInput{
		Outbox:      uc.Outbox,
		Clock:       uc.Clock,
		IDGenerator: uc.IDGenerator,
		Logger:      uc.Logger,
		UserID:      userID,
		EventType:   workflow.EventTypeRenewalRequested,
	})
}

type triggerInput struct {
	Outbox      outbox.Appender
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
	UserID      string
	EventType   string
}

func appendTrigger(ctx context.Context, in triggerInput) (string, error) {
	logger := application.ResolveLogger(in.Logger)

	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return "", domainerrors.ErrUserIDRequired
	}

	eventID, err := in.IDGenerator.NewID(ctx)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	if in.Clock != nil {
		now = in.Clock.Now().UTC()
	}

	payload, err := json.Marshal(workflow.StartPayload{UserID: userID})
	if err != nil {
		return "", err
	}
	envelope := contractsv1.Envelope{
		EventID:       eventID,
		EventType:     in.EventType,
		OccurredAt:    now,
		SourceService: "social-integration/linking-service",
		TraceID:       eventID,
		SchemaVersion: 1,
		CorrelationID: userID,
		PartitionKey:  userID,
		Data:          payload,
	}
	if err := in.Outbox.AppendOutbox(ctx, envelope); err != nil {
		logger.Error("workflow trigger append failed",
			"event", "social_linking_trigger_append_failed",
			"module", "social-integration/linking-service",
			"layer", "application",
			"user_id", userID,
			"event_type", in.EventType,
			"error", err.Error(),
		)
		return "", err
	}

	logger.Info("workflow trigger recorded",
		"event", "social_linking_trigger_recorded",
		"module", "social-integration/linking-service",
		"layer", "application",
		"user_id", userID,
		"event_type", in.EventType,
		"event_id", eventID,
	)
	return eventID, nil
}

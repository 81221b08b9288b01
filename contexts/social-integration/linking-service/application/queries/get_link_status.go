package queries

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "beacon/contexts/social-integration/linking-service/application"
	domainerrors "beacon/contexts/social-integration/linking-service/domain/errors"
	"beacon/contexts/social-integration/linking-service/ports"
	"beacon/internal/shared/saga"
)

// GetLinkStatusUseCase reads a workflow instance, preferring the status
// cache when one is wired.
type GetLinkStatusUseCase struct {
	Instances  saga.InstanceStore
	Cache      ports.StatusCache
	Definition saga.Definition
	CacheTTL   time.Duration
	Logger     *slog.Logger
}

func (uc GetLinkStatusUseCase) Execute(ctx context.Context, userID string) (ports.LinkStatus, error) {
	logger := application.ResolveLogger(uc.Logger)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ports.LinkStatus{}, domainerrors.ErrUserIDRequired
	}

	if uc.Cache != nil {
		cached, found, err := uc.Cache.GetStatus(ctx, userID, uc.Definition.Name)
		if err != nil {
			logger.Warn("link status cache read failed",
				"event", "social_linking_status_cache_read_failed",
				"module", "social-integration/linking-service",
				"layer", "application",
				"user_id", userID,
				"error", err.Error(),
			)
		} else if found {
			return cached, nil
		}
	}

	instance, found, err := uc.Instances.GetInstance(ctx, uc.Definition.Name, userID)
	if err != nil {
		return ports.LinkStatus{}, err
	}
	if !found {
		return ports.LinkStatus{}, domainerrors.ErrLinkNotFound
	}

	status := ports.LinkStatus{
		UserID:    instance.CorrelationID,
		Workflow:  instance.SagaName,
		State:     string(instance.CurrentState),
		StartedAt: instance.StartedAtUTC,
		Finalized: uc.Definition.Terminal(instance.CurrentState),
	}
	if uc.Cache != nil {
		if err := uc.Cache.SetStatus(ctx, status, uc.CacheTTL); err != nil {
			logger.Warn("link status cache write failed",
				"event", "social_linking_status_cache_write_failed",
				"module", "social-integration/linking-service",
				"layer", "application",
				"user_id", userID,
				"error", err.Error(),
			)
		}
	}
	return status, nil
}

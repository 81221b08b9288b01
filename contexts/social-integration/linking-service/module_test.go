package linkingservice

import (
	"context"
	"errors"
	"testing"
	"time"

	domainerrors "beacon/contexts/social-integration/linking-service/domain/errors"
	"beacon/contexts/social-integration/linking-service/domain/workflow"
	contractsv1 "beacon/contracts/gen/events/v1"
	"beacon/internal/shared/outbox"
)

func integrationEvent(id string, eventType string, userID string) contractsv1.Envelope {
	return contractsv1.Envelope{
		EventID:       id,
		EventType:     eventType,
		OccurredAt:    time.Now().UTC(),
		SourceService: "social-integration/instagram-gateway",
		TraceID:       id,
		SchemaVersion: 1,
		CorrelationID: userID,
		PartitionKey:  userID,
		Data:          []byte(`{"user_id":"` + userID + `"}`),
	}
}

func drainOutbox(t *testing.T, module InMemoryModule) {
	t.Helper()
	job := &outbox.PublisherJob{Store: module.Records, Registry: module.Registry, BatchSize: 100}
	for i := 0; i < 5; i++ {
		if err := job.RunOnce(context.Background()); err != nil {
			t.Fatalf("publisher run failed: %v", err)
		}
	}
}

func drainInbox(t *testing.T, module InMemoryModule) {
	t.Helper()
	job := &outbox.ConsumerJob{Store: module.Records, Registry: module.Registry, BatchSize: 100}
	for i := 0; i < 5; i++ {
		if err := job.RunOnce(context.Background()); err != nil {
			t.Fatalf("consumer run failed: %v", err)
		}
	}
}

func countEventType(msgs []outbox.Message, eventType string) int {
	count := 0
	for _, msg := range msgs {
		if msg.EventType == eventType {
			count++
		}
	}
	return count
}

func TestLinkingWorkflowCompletesWhenBothBranchesFinish(t *testing.T) {
	module := NewInMemoryModule(nil)
	ctx := context.Background()

	if _, err := module.StartLinking.Execute(ctx, "user-1"); err != nil {
		t.Fatalf("start linking failed: %v", err)
	}
	drainOutbox(t, module)

	instance, found, err := module.Instances.GetInstance(ctx, workflow.LinkingSagaName, "user-1")
	if err != nil || !found {
		t.Fatalf("expected live instance, found=%v err=%v", found, err)
	}
	if instance.CurrentState != workflow.StateStarted {
		t.Fatalf("expected started state, got %s", instance.CurrentState)
	}
	tokenID := instance.TimeoutTokenID
	if tokenID == "" {
		t.Fatalf("expected timeout token scheduled at start")
	}
	if got := countEventType(module.Records.OutboxMessages(), workflow.EventTypeLinkingStarted); got != 1 {
		t.Fatalf("expected one linking_started announcement, got %d", got)
	}

	if err := module.Records.AppendInbox(ctx,
		integrationEvent("evt-fetch", workflow.EventTypeAccountDataFetched, "user-1"),
	); err != nil {
		t.Fatalf("append inbox failed: %v", err)
	}
	drainInbox(t, module)

	instance, _, _ = module.Instances.GetInstance(ctx, workflow.LinkingSagaName, "user-1")
	if instance.CurrentState != workflow.StateFetched {
		t.Fatalf("expected fetched state, got %s", instance.CurrentState)
	}
	if !module.Instances.TokenCancelled(tokenID) {
		t.Fatalf("expected timeout token cancelled after data fetch")
	}

	if err := module.Records.AppendInbox(ctx,
		integrationEvent("evt-media", workflow.EventTypeMediaSynced, "user-1"),
	); err != nil {
		t.Fatalf("append inbox failed: %v", err)
	}
	drainInbox(t, module)

	instance, _, _ = module.Instances.GetInstance(ctx, workflow.LinkingSagaName, "user-1")
	if instance.CurrentState != workflow.StateCompleted {
		t.Fatalf("expected completed state, got %s", instance.CurrentState)
	}
	if got := countEventType(module.Records.OutboxMessages(), workflow.EventTypeLinkingCompleted); got != 1 {
		t.Fatalf("expected exactly one linking_completed, got %d", got)
	}

	status, err := module.GetLinkStatus.Execute(ctx, "user-1")
	if err != nil {
		t.Fatalf("get status failed: %v", err)
	}
	if status.State != string(workflow.StateCompleted) || !status.Finalized {
		t.Fatalf("expected finalized completed status, got %+v", status)
	}
}

func TestLinkingCompletedEmittedOnceUnderRedelivery(t *testing.T) {
	module := NewInMemoryModule(nil)
	ctx := context.Background()

	if _, err := module.StartLinking.Execute(ctx, "user-2"); err != nil {
		t.Fatalf("start linking failed: %v", err)
	}
	drainOutbox(t, module)

	if err := module.Records.AppendInbox(ctx,
		integrationEvent("evt-fetch", workflow.EventTypeAccountDataFetched, "user-2"),
		integrationEvent("evt-media", workflow.EventTypeMediaSynced, "user-2"),
	); err != nil {
		t.Fatalf("append inbox failed: %v", err)
	}
	drainInbox(t, module)

	// Redeliver both events with the same ids, then again under fresh ids.
	if err := module.Records.AppendInbox(ctx,
		integrationEvent("evt-fetch", workflow.EventTypeAccountDataFetched, "user-2"),
		integrationEvent("evt-media", workflow.EventTypeMediaSynced, "user-2"),
		integrationEvent("evt-media-dup", workflow.EventTypeMediaSynced, "user-2"),
	); err != nil {
		t.Fatalf("redelivery append failed: %v", err)
	}
	drainInbox(t, module)

	instance, _, _ := module.Instances.GetInstance(ctx, workflow.LinkingSagaName, "user-2")
	if instance.CurrentState != workflow.StateCompleted {
		t.Fatalf("expected completed state, got %s", instance.CurrentState)
	}
	if got := countEventType(module.Records.OutboxMessages(), workflow.EventTypeLinkingCompleted); got != 1 {
		t.Fatalf("expected exactly one linking_completed under redelivery, got %d", got)
	}
}

func TestLinkingTimeoutFailsWorkflowAndAllowsRetry(t *testing.T) {
	module := NewInMemoryModule(nil)
	ctx := context.Background()

	if _, err := module.StartLinking.Execute(ctx, "user-3"); err != nil {
		t.Fatalf("start linking failed: %v", err)
	}
	drainOutbox(t, module)

	instance, _, _ := module.Instances.GetInstance(ctx, workflow.LinkingSagaName, "user-3")
	timeout := integrationEvent(instance.TimeoutTokenID, workflow.EventTypeLinkingTimeout, "user-3")
	if err := module.Records.AppendInbox(ctx, timeout); err != nil {
		t.Fatalf("append timeout failed: %v", err)
	}
	drainInbox(t, module)

	instance, _, _ = module.Instances.GetInstance(ctx, workflow.LinkingSagaName, "user-3")
	if instance.CurrentState != workflow.StateFailed {
		t.Fatalf("expected failed state after timeout, got %s", instance.CurrentState)
	}
	if got := countEventType(module.Records.OutboxMessages(), workflow.EventTypeLinkingTimedOut); got != 1 {
		t.Fatalf("expected one linking_timed_out, got %d", got)
	}

	// A completing event arriving after finalization changes nothing.
	if err := module.Records.AppendInbox(ctx,
		integrationEvent("evt-late", workflow.EventTypeAccountDataFetched, "user-3"),
	); err != nil {
		t.Fatalf("append late event failed: %v", err)
	}
	drainInbox(t, module)
	instance, _, _ = module.Instances.GetInstance(ctx, workflow.LinkingSagaName, "user-3")
	if instance.CurrentState != workflow.StateFailed {
		t.Fatalf("expected failed state to stick, got %s", instance.CurrentState)
	}

	// The user links again, which begins a fresh attempt for the same subject.
	if _, err := module.StartLinking.Execute(ctx, "user-3"); err != nil {
		t.Fatalf("retry start failed: %v", err)
	}
	drainOutbox(t, module)

	instance, _, _ = module.Instances.GetInstance(ctx, workflow.LinkingSagaName, "user-3")
	if instance.CurrentState != workflow.StateStarted {
		t.Fatalf("expected retried workflow started, got %s", instance.CurrentState)
	}
	if instance.Attempt != 2 {
		t.Fatalf("expected second attempt, got %d", instance.Attempt)
	}
	if instance.TimeoutTokenID == "" {
		t.Fatalf("expected a fresh timeout token for the retry")
	}
	if got := countEventType(module.Records.OutboxMessages(), workflow.EventTypeLinkingStarted); got != 2 {
		t.Fatalf("expected one linking_started per attempt, got %d", got)
	}

	if err := module.Records.AppendInbox(ctx,
		integrationEvent("evt-retry-fetch", workflow.EventTypeAccountDataFetched, "user-3"),
		integrationEvent("evt-retry-media", workflow.EventTypeMediaSynced, "user-3"),
	); err != nil {
		t.Fatalf("append retry events failed: %v", err)
	}
	drainInbox(t, module)

	instance, _, _ = module.Instances.GetInstance(ctx, workflow.LinkingSagaName, "user-3")
	if instance.CurrentState != workflow.StateCompleted {
		t.Fatalf("expected retry to complete, got %s", instance.CurrentState)
	}
	if got := countEventType(module.Records.OutboxMessages(), workflow.EventTypeLinkingCompleted); got != 1 {
		t.Fatalf("expected one linking_completed from the retry, got %d", got)
	}
	if got := countEventType(module.Records.OutboxMessages(), workflow.EventTypeLinkingTimedOut); got != 1 {
		t.Fatalf("expected the first attempt's timeout outcome only, got %d", got)
	}
}

func TestLinkingFailureEventCompensates(t *testing.T) {
	module := NewInMemoryModule(nil)
	ctx := context.Background()

	if _, err := module.StartLinking.Execute(ctx, "user-4"); err != nil {
		t.Fatalf("start linking failed: %v", err)
	}
	drainOutbox(t, module)

	instance, _, _ := module.Instances.GetInstance(ctx, workflow.LinkingSagaName, "user-4")
	tokenID := instance.TimeoutTokenID

	if err := module.Records.AppendInbox(ctx,
		integrationEvent("evt-fail", workflow.EventTypeLinkingFailed, "user-4"),
	); err != nil {
		t.Fatalf("append failure failed: %v", err)
	}
	drainInbox(t, module)

	instance, _, _ = module.Instances.GetInstance(ctx, workflow.LinkingSagaName, "user-4")
	if instance.CurrentState != workflow.StateFailed {
		t.Fatalf("expected failed state, got %s", instance.CurrentState)
	}
	if !module.Instances.TokenCancelled(tokenID) {
		t.Fatalf("expected pending token cancelled on failure")
	}
	if got := countEventType(module.Records.OutboxMessages(), workflow.EventTypeLinkingCompensated); got != 1 {
		t.Fatalf("expected one compensation outcome, got %d", got)
	}
}

func TestRenewalWorkflowRunsIndependently(t *testing.T) {
	module := NewInMemoryModule(nil)
	ctx := context.Background()

	if _, err := module.RequestRenewal.Execute(ctx, "user-5"); err != nil {
		t.Fatalf("request renewal failed: %v", err)
	}
	drainOutbox(t, module)

	renewal, found, _ := module.Instances.GetInstance(ctx, workflow.RenewalSagaName, "user-5")
	if !found || renewal.CurrentState != workflow.StateStarted {
		t.Fatalf("expected renewal instance started, found=%v state=%s", found, renewal.CurrentState)
	}
	if _, found, _ = module.Instances.GetInstance(ctx, workflow.LinkingSagaName, "user-5"); found {
		t.Fatalf("renewal trigger must not start a linking instance")
	}

	if err := module.Records.AppendInbox(ctx,
		integrationEvent("evt-refresh", workflow.EventTypeTokenRefreshed, "user-5"),
		integrationEvent("evt-resync", workflow.EventTypeProfileResynced, "user-5"),
	); err != nil {
		t.Fatalf("append inbox failed: %v", err)
	}
	drainInbox(t, module)

	renewal, _, _ = module.Instances.GetInstance(ctx, workflow.RenewalSagaName, "user-5")
	if renewal.CurrentState != workflow.StateCompleted {
		t.Fatalf("expected renewal completed, got %s", renewal.CurrentState)
	}
	if got := countEventType(module.Records.OutboxMessages(), workflow.EventTypeRenewalCompleted); got != 1 {
		t.Fatalf("expected one renewal_completed, got %d", got)
	}
}

func TestGetLinkStatusErrors(t *testing.T) {
	module := NewInMemoryModule(nil)
	ctx := context.Background()

	if _, err := module.GetLinkStatus.Execute(ctx, "nobody"); !errors.Is(err, domainerrors.ErrLinkNotFound) {
		t.Fatalf("expected link not found, got %v", err)
	}
	if _, err := module.GetLinkStatus.Execute(ctx, "  "); !errors.Is(err, domainerrors.ErrUserIDRequired) {
		t.Fatalf("expected user id required, got %v", err)
	}
	if _, err := module.StartLinking.Execute(ctx, ""); !errors.Is(err, domainerrors.ErrUserIDRequired) {
		t.Fatalf("expected user id required on start, got %v", err)
	}
}

func TestDefinitionsExposeBothWorkflows(t *testing.T) {
	module := NewInMemoryModule(nil)

	names := make(map[string]bool)
	for _, def := range module.Definitions {
		names[def.Name] = true
	}
	if !names[workflow.LinkingSagaName] || !names[workflow.RenewalSagaName] {
		t.Fatalf("expected both saga definitions exposed, got %v", names)
	}
}

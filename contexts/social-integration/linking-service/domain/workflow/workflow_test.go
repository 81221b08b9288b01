package workflow

import (
	"testing"
	"time"

	contractsv1 "beacon/contracts/gen/events/v1"
	"beacon/internal/shared/saga"
)

func linkingEvent(eventType string) contractsv1.Envelope {
	return contractsv1.Envelope{
		EventID:       "evt-" + eventType,
		EventType:     eventType,
		OccurredAt:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		CorrelationID: "user-1",
		PartitionKey:  "user-1",
		Data:          []byte(`{"user_id":"user-1"}`),
	}
}

func instanceAt(state saga.State, flags uint32) saga.Instance {
	return saga.Instance{
		SagaName:        LinkingSagaName,
		CorrelationID:   "user-1",
		CurrentState:    state,
		CompletionFlags: flags,
	}
}

func effectTypes(effects []saga.Effect) []string {
	var kinds []string
	for _, effect := range effects {
		switch effect.(type) {
		case saga.PublishEffect:
			kinds = append(kinds, "publish")
		case saga.ScheduleTimeoutEffect:
			kinds = append(kinds, "schedule")
		case saga.CancelTimeoutEffect:
			kinds = append(kinds, "cancel")
		case saga.SetCompletionFlagEffect:
			kinds = append(kinds, "flag")
		}
	}
	return kinds
}

func TestLinkingStartSchedulesWindowAndAnnounces(t *testing.T) {
	def := NewLinkingDefinition(DefaultTimeoutWindow)

	transition, ok := def.Transition(instanceAt(StateInitial, 0), linkingEvent(EventTypeAccountLinked))
	if !ok {
		t.Fatalf("expected start transition to apply")
	}
	if transition.Next != StateStarted {
		t.Fatalf("expected started state, got %s", transition.Next)
	}

	kinds := effectTypes(transition.Effects)
	if len(kinds) != 2 || kinds[0] != "schedule" || kinds[1] != "publish" {
		t.Fatalf("expected schedule then publish, got %v", kinds)
	}
	schedule := transition.Effects[0].(saga.ScheduleTimeoutEffect)
	if schedule.Delay != DefaultTimeoutWindow {
		t.Fatalf("expected %v window, got %v", DefaultTimeoutWindow, schedule.Delay)
	}
	publish := transition.Effects[1].(saga.PublishEffect)
	if publish.Envelope.EventType != EventTypeLinkingStarted {
		t.Fatalf("expected %s, got %s", EventTypeLinkingStarted, publish.Envelope.EventType)
	}
}

func TestLinkingDuplicateStartIsIgnored(t *testing.T) {
	def := NewLinkingDefinition(DefaultTimeoutWindow)

	if _, ok := def.Transition(instanceAt(StateStarted, 0), linkingEvent(EventTypeAccountLinked)); ok {
		t.Fatalf("expected duplicate start to be ignored while instance is live")
	}
}

func TestLinkingBothBranchOrdersComplete(t *testing.T) {
	def := NewLinkingDefinition(DefaultTimeoutWindow)

	// Data fetched first, media synced second.
	first, ok := def.Transition(instanceAt(StateStarted, 0), linkingEvent(EventTypeAccountDataFetched))
	if !ok || first.Next != StateFetched {
		t.Fatalf("expected fetched state, got %s ok=%v", first.Next, ok)
	}
	kinds := effectTypes(first.Effects)
	if len(kinds) != 2 || kinds[0] != "cancel" || kinds[1] != "flag" {
		t.Fatalf("expected cancel then flag, got %v", kinds)
	}

	second, ok := def.Transition(instanceAt(StateFetched, FlagDataFetched), linkingEvent(EventTypeMediaSynced))
	if !ok || second.Next != StateCompleted {
		t.Fatalf("expected completion, got %s ok=%v", second.Next, ok)
	}

	// Media synced first, data fetched second.
	first, ok = def.Transition(instanceAt(StateStarted, 0), linkingEvent(EventTypeMediaSynced))
	if !ok || first.Next != StateStarted {
		t.Fatalf("expected state to hold while waiting for data fetch, got %s", first.Next)
	}

	second, ok = def.Transition(instanceAt(StateStarted, FlagMediaSynced), linkingEvent(EventTypeAccountDataFetched))
	if !ok || second.Next != StateCompleted {
		t.Fatalf("expected completion, got %s ok=%v", second.Next, ok)
	}
	var completedEnvelope contractsv1.Envelope
	for _, effect := range second.Effects {
		if publish, isPublish := effect.(saga.PublishEffect); isPublish {
			completedEnvelope = publish.Envelope
		}
	}
	if completedEnvelope.EventType != EventTypeLinkingCompleted {
		t.Fatalf("expected %s outcome, got %s", EventTypeLinkingCompleted, completedEnvelope.EventType)
	}
}

func TestLinkingFailureCompensatesFromAnyLiveState(t *testing.T) {
	def := NewLinkingDefinition(DefaultTimeoutWindow)

	for _, state := range []saga.State{StateStarted, StateFetched} {
		transition, ok := def.Transition(instanceAt(state, 0), linkingEvent(EventTypeLinkingFailed))
		if !ok || transition.Next != StateFailed {
			t.Fatalf("expected failure from %s, got %s ok=%v", state, transition.Next, ok)
		}
		kinds := effectTypes(transition.Effects)
		if len(kinds) != 2 || kinds[0] != "cancel" || kinds[1] != "publish" {
			t.Fatalf("expected cancel then compensation publish, got %v", kinds)
		}
	}
}

func TestLinkingTimeoutFinalizesWithRetryableOutcome(t *testing.T) {
	def := NewLinkingDefinition(DefaultTimeoutWindow)

	transition, ok := def.Transition(instanceAt(StateStarted, 0), linkingEvent(EventTypeLinkingTimeout))
	if !ok || transition.Next != StateFailed {
		t.Fatalf("expected timeout to fail the workflow, got %s ok=%v", transition.Next, ok)
	}
	publish := transition.Effects[0].(saga.PublishEffect)
	if publish.Envelope.EventType != EventTypeLinkingTimedOut {
		t.Fatalf("expected %s, got %s", EventTypeLinkingTimedOut, publish.Envelope.EventType)
	}
}

func TestOutcomeEventIDIsDeterministic(t *testing.T) {
	def := NewLinkingDefinition(DefaultTimeoutWindow)

	first, _ := def.Transition(instanceAt(StateStarted, FlagMediaSynced), linkingEvent(EventTypeAccountDataFetched))
	second, _ := def.Transition(instanceAt(StateStarted, FlagMediaSynced), linkingEvent(EventTypeAccountDataFetched))

	var firstID, secondID string
	for _, effect := range first.Effects {
		if publish, ok := effect.(saga.PublishEffect); ok {
			firstID = publish.Envelope.EventID
		}
	}
	for _, effect := range second.Effects {
		if publish, ok := effect.(saga.PublishEffect); ok {
			secondID = publish.Envelope.EventID
		}
	}
	if firstID == "" || firstID != secondID {
		t.Fatalf("expected stable outcome event id, got %q and %q", firstID, secondID)
	}
}

func TestRenewalDefinitionUsesItsOwnVocabulary(t *testing.T) {
	def := NewRenewalDefinition(DefaultTimeoutWindow)

	if def.Name != RenewalSagaName {
		t.Fatalf("unexpected saga name %s", def.Name)
	}
	if !def.StartEventTypes[EventTypeRenewalRequested] {
		t.Fatalf("expected renewal to start from %s", EventTypeRenewalRequested)
	}
	if def.TimeoutEventType != EventTypeRenewalTimeout {
		t.Fatalf("unexpected timeout event type %s", def.TimeoutEventType)
	}

	instance := saga.Instance{
		SagaName:      RenewalSagaName,
		CorrelationID: "user-1",
		CurrentState:  StateInitial,
	}
	transition, ok := def.Transition(instance, contractsv1.Envelope{
		EventType:     EventTypeRenewalRequested,
		CorrelationID: "user-1",
		OccurredAt:    time.Now().UTC(),
	})
	if !ok || transition.Next != StateStarted {
		t.Fatalf("expected renewal start, got %s ok=%v", transition.Next, ok)
	}
}

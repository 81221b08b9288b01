package workflow

// Integration events consumed by the account-linking workflow.
const (
	EventTypeAccountLinked      = "instagram.account_linked"
	EventTypeAccountDataFetched = "instagram.account_data_fetched"
	EventTypeMediaSynced        = "instagram.media_synced"
	EventTypeLinkingFailed      = "instagram.linking_failed"
)

// Events published by the account-linking workflow.
const (
	EventTypeLinkingStarted     = "instagram.linking_started"
	EventTypeLinkingCompleted   = "instagram.linking_completed"
	EventTypeLinkingCompensated = "instagram.linking_compensated"
	EventTypeLinkingTimedOut    = "instagram.linking_timed_out"
)

// EventTypeLinkingTimeout is the synthetic event delivered when the linking
// timeout token fires.
const EventTypeLinkingTimeout = "instagram.linking_timeout"

// Access-renewal workflow vocabulary: same state machine, different events.
const (
	EventTypeRenewalRequested = "instagram.access_renewal_requested"
	EventTypeTokenRefreshed   = "instagram.access_token_refreshed"
	EventTypeProfileResynced  = "instagram.profile_resynced"
	EventTypeRenewalFailed    = "instagram.access_renewal_failed"

	EventTypeRenewalStarted     = "instagram.renewal_started"
	EventTypeRenewalCompleted   = "instagram.renewal_completed"
	EventTypeRenewalCompensated = "instagram.renewal_compensated"
	EventTypeRenewalTimedOut    = "instagram.renewal_timed_out"

	EventTypeRenewalTimeout = "instagram.renewal_timeout"
)

// StartPayload is the data carried by workflow-starting trigger events.
type StartPayload struct {
	UserID string `json:"user_id"`
}

// OutcomePayload is the data carried by workflow outcome events.
type OutcomePayload struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason,omitempty"`
}

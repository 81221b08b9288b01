package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type StartWorkflowResponse struct {
	UserID  string `json:"user_id"`
	EventID string `json:"event_id"`
}

type LinkStatusResponse struct {
	UserID    string    `json:"user_id"`
	Workflow  string    `json:"workflow"`
	State     string    `json:"state"`
	StartedAt time.Time `json:"started_at"`
	Finalized bool      `json:"finalized"`
}

package errors

import "errors"

var (
	ErrUserIDRequired  = errors.New("user id is required")
	ErrLinkNotFound    = errors.New("no linking workflow found for user")
	ErrUnknownWorkflow = errors.New("unknown workflow name")
)

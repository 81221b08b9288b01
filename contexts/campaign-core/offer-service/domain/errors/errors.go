package errors

import "errors"

var (
	ErrOfferNotFound     = errors.New("offer not found")
	ErrInvalidOfferInput = errors.New("invalid offer input")
	ErrOfferNotPending   = errors.New("offer is not pending")
)

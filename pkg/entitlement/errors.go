package entitlement

import "errors"

var (
	// ErrNotFound indicates no entitlement record exists for the lookup key.
	ErrNotFound = errors.New("entitlement: record not found")
	// ErrUsageLimitReached indicates the monthly counter is at the ceiling.
	ErrUsageLimitReached = errors.New("entitlement: monthly usage limit reached")
	// ErrInvalidTransition indicates a forbidden subscription state change.
	ErrInvalidTransition = errors.New("entitlement: invalid subscription transition")
	// ErrFailedToUpdate indicates a store write failed.
	ErrFailedToUpdate = errors.New("entitlement: failed to update record")
)

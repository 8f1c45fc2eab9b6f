package billing

import "errors"

var (
	// ErrInvalidSignature indicates webhook authentication failed.
	ErrInvalidSignature = errors.New("billing: invalid webhook signature")
	// ErrInvalidPayload indicates the webhook body could not be parsed.
	ErrInvalidPayload = errors.New("billing: invalid webhook payload")
	// ErrMissingIdentity indicates a completed session carries no internal
	// user id, so it can never be attributed. Redelivery cannot fix it.
	ErrMissingIdentity = errors.New("billing: session has no user identity")
	// ErrSubscriptionNotFound indicates the user has no subscription on file.
	ErrSubscriptionNotFound = errors.New("billing: no subscription found")
	// ErrUnknownItem indicates the item id is not in the catalog.
	ErrUnknownItem = errors.New("billing: unknown item")
	// ErrUnknownPlan indicates the plan id is not in the catalog.
	ErrUnknownPlan = errors.New("billing: unknown plan")
	// ErrAlreadyPurchased indicates the user already holds the item.
	ErrAlreadyPurchased = errors.New("billing: item already purchased")
	// ErrProviderFailure indicates a payment processor call failed.
	ErrProviderFailure = errors.New("billing: payment provider request failed")
)

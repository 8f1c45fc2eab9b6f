package entitlement

import (
	"context"
	"time"
)

// Store persists user entitlement records.
//
// All mutating operations are single-document updates so concurrent webhook
// deliveries and API calls interleave safely at the document level.
type Store interface {
	// Get returns the record for the user, or ErrNotFound.
	Get(ctx context.Context, userID string) (UserEntitlement, error)

	// Ensure returns the record for the user, creating the free-plan
	// default if none exists yet.
	Ensure(ctx context.Context, userID string) (UserEntitlement, error)

	// GrantItem adds an item to the user's purchased set. Granting an
	// already-held item is a no-op. The record is created if missing.
	GrantItem(ctx context.Context, userID, itemID string) error

	// ActivateSubscription puts the user on the premium plan and links the
	// subscription. The record is created if missing.
	ActivateSubscription(ctx context.Context, userID, subscriptionID, email string) error

	// MarkCancelPending flags the subscription as canceling at period end.
	// Premium access stays on until the deletion event arrives.
	MarkCancelPending(ctx context.Context, userID string) error

	// ClearSubscription drops the user back to the free plan: the
	// subscription link is removed and the status set to canceled.
	ClearSubscription(ctx context.Context, userID string) error

	// FindBySubscriptionID resolves the user holding the given
	// subscription, or ErrNotFound.
	FindBySubscriptionID(ctx context.Context, subscriptionID string) (UserEntitlement, error)

	// ResetUsage zeroes the monthly counter and stamps the reset time.
	ResetUsage(ctx context.Context, userID string, resetAt time.Time) error

	// IncrementUsage bumps the monthly counter by one, re-validating the
	// ceiling inside the update so concurrent increments cannot exceed it.
	// Returns the new counter value, or ErrUsageLimitReached with the
	// counter unchanged. The record is created with count 1 if missing.
	IncrementUsage(ctx context.Context, userID string, limit int) (int, error)
}

package entitlement

import (
	"slices"
	"time"
)

// Plan is the billing plan a user is on.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// SubscriptionStatus is the persisted subscription lifecycle marker.
type SubscriptionStatus string

const (
	StatusNone          SubscriptionStatus = ""
	StatusActive        SubscriptionStatus = "active"
	StatusCancelPending SubscriptionStatus = "cancel_at_period_end"
	StatusCanceled      SubscriptionStatus = "canceled"
)

// UserEntitlement is the single durable record per user: plan, subscription
// linkage, granted items and the monthly usage counter.
//
// Records are created lazily on first access with free-plan defaults, so a
// missing record and a fresh free-tier record are equivalent.
type UserEntitlement struct {
	UserID             string             `bson:"_id"`
	Plan               Plan               `bson:"plan"`
	SubscriptionID     string             `bson:"subscription_id,omitempty"`
	SubscriptionStatus SubscriptionStatus `bson:"subscription_status,omitempty"`
	PurchasedItemIDs   []string           `bson:"purchased_item_ids,omitempty"`
	MonthlyUsageCount  int                `bson:"monthly_usage_count"`
	UsageResetAt       time.Time          `bson:"usage_reset_at"`
	Email              string             `bson:"email,omitempty"`
	// Settings is an opaque client preference blob owned by the settings
	// endpoint; billing and quota code carries it through untouched.
	Settings map[string]any `bson:"settings,omitempty"`
	CreatedAt          time.Time          `bson:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at"`
}

// NewFree returns the default record a user starts with.
func NewFree(userID string, now time.Time) UserEntitlement {
	return UserEntitlement{
		UserID:       userID,
		Plan:         PlanFree,
		UsageResetAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsPremium reports whether the user is on the premium plan.
// CANCEL_PENDING subscriptions still count as premium until the period ends.
func (e UserEntitlement) IsPremium() bool {
	return e.Plan == PlanPremium
}

// HasItem reports whether the item has already been granted.
func (e UserEntitlement) HasItem(itemID string) bool {
	return slices.Contains(e.PurchasedItemIDs, itemID)
}

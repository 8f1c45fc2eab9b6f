package billing

import (
	"context"
	"time"
)

// Mode is the checkout mode: a one-off payment or a recurring subscription.
type Mode string

const (
	ModePayment      Mode = "payment"
	ModeSubscription Mode = "subscription"
)

// EventType is the normalized webhook event kind.
type EventType string

const (
	EventCheckoutCompleted   EventType = "checkout.session.completed"
	EventSubscriptionCreated EventType = "customer.subscription.created"
	EventSubscriptionDeleted EventType = "customer.subscription.deleted"
)

// Event is a normalized webhook notification from the payment processor.
// Only the identifiers needed for dispatch are extracted; session details
// are re-fetched from the processor rather than trusted from the payload.
type Event struct {
	ID             string
	Type           EventType
	SessionID      string
	SubscriptionID string
	UserID         string // internal user id from processor metadata, may be empty
}

// Session is a processor checkout session in provider-neutral form.
type Session struct {
	ID             string
	URL            string
	Mode           Mode
	Status         string
	PaymentStatus  string
	UserID         string // internal user id from session metadata, may be empty
	CustomerEmail  string
	SubscriptionID string
	AmountTotal    int64
	Currency       string
	PriceIDs       []string // price ids of the session line items
}

// CheckoutParams describes the session to create.
type CheckoutParams struct {
	UserID     string
	PriceID    string
	Mode       Mode
	SuccessURL string
	CancelURL  string
}

// Provider abstracts the payment processor.
type Provider interface {
	// CreateCheckoutSession starts a hosted checkout. The internal user id
	// is stamped into the session metadata (and subscription metadata for
	// recurring checkouts) so webhook events can be attributed.
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (Session, error)

	// GetSession re-fetches a checkout session with line items expanded.
	GetSession(ctx context.Context, sessionID string) (Session, error)

	// CancelAtPeriodEnd schedules the subscription for cancellation at the
	// end of the paid period and returns the effective cancellation time.
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (time.Time, error)

	// ParseWebhook authenticates and normalizes a webhook delivery.
	ParseWebhook(payload []byte, signature string) (Event, error)
}

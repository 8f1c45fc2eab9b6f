package billing

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/dmitrymomot/replykit/pkg/logger"
)

// Config holds payment processor credentials.
// WebhookSecret is optional: without it deliveries are parsed unverified,
// which is only acceptable for local development.
type Config struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY,required"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
}

// metadataUserKey is the metadata field carrying the internal user id.
const metadataUserKey = "user_id"

// compile-time interface check
var _ Provider = (*StripeProvider)(nil)

// StripeProvider implements Provider on the Stripe API.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
	log           *slog.Logger
}

// NewStripeProvider creates a Stripe-backed provider with its own API client.
func NewStripeProvider(cfg Config, log *slog.Logger) *StripeProvider {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)

	if cfg.WebhookSecret == "" {
		log.Warn("webhook secret not configured, deliveries will not be verified")
	}

	return &StripeProvider{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		log:           log,
	}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (Session, error) {
	sp := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(params.Mode)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(params.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
		Metadata: map[string]string{
			metadataUserKey: params.UserID,
		},
	}
	sp.Context = ctx

	// Recurring checkouts also stamp the user id into the subscription
	// itself so later subscription events can be attributed without a
	// session lookup.
	if params.Mode == ModeSubscription {
		sp.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				metadataUserKey: params.UserID,
			},
		}
	}

	sess, err := p.api.CheckoutSessions.New(sp)
	if err != nil {
		return Session{}, errors.Join(ErrProviderFailure, err)
	}
	return fromStripeSession(sess), nil
}

func (p *StripeProvider) GetSession(ctx context.Context, sessionID string) (Session, error) {
	sp := &stripe.CheckoutSessionParams{}
	sp.Context = ctx
	sp.AddExpand("line_items")

	sess, err := p.api.CheckoutSessions.Get(sessionID, sp)
	if err != nil {
		return Session{}, errors.Join(ErrProviderFailure, err)
	}
	return fromStripeSession(sess), nil
}

func (p *StripeProvider) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (time.Time, error) {
	sp := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	sp.Context = ctx

	sub, err := p.api.Subscriptions.Update(subscriptionID, sp)
	if err != nil {
		return time.Time{}, errors.Join(ErrProviderFailure, err)
	}
	if sub.CancelAt > 0 {
		return time.Unix(sub.CancelAt, 0).UTC(), nil
	}
	return time.Time{}, nil
}

// ParseWebhook verifies the delivery signature and extracts dispatch fields.
// Without a configured secret the payload is parsed unverified and the
// degraded mode is logged on every delivery.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (Event, error) {
	var event stripe.Event

	if p.webhookSecret != "" {
		verified, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			return Event{}, errors.Join(ErrInvalidSignature, err)
		}
		event = verified
	} else {
		p.log.Warn("processing unverified webhook delivery")
		if err := json.Unmarshal(payload, &event); err != nil {
			return Event{}, errors.Join(ErrInvalidPayload, err)
		}
	}

	out := Event{
		ID:   event.ID,
		Type: EventType(event.Type),
	}

	switch out.Type {
	case EventCheckoutCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return Event{}, errors.Join(ErrInvalidPayload, err)
		}
		out.SessionID = sess.ID
		out.UserID = sess.Metadata[metadataUserKey]
		if sess.Subscription != nil {
			out.SubscriptionID = sess.Subscription.ID
		}
	case EventSubscriptionCreated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return Event{}, errors.Join(ErrInvalidPayload, err)
		}
		out.SubscriptionID = sub.ID
		out.UserID = sub.Metadata[metadataUserKey]
	default:
		p.log.Debug("ignoring webhook event", logger.EventType(string(event.Type)))
	}

	return out, nil
}

func fromStripeSession(sess *stripe.CheckoutSession) Session {
	out := Session{
		ID:            sess.ID,
		URL:           sess.URL,
		Mode:          Mode(sess.Mode),
		Status:        string(sess.Status),
		PaymentStatus: string(sess.PaymentStatus),
		CustomerEmail: sess.CustomerEmail,
		AmountTotal:   sess.AmountTotal,
		Currency:      string(sess.Currency),
	}
	if sess.Metadata != nil {
		out.UserID = sess.Metadata[metadataUserKey]
	}
	if out.CustomerEmail == "" && sess.CustomerDetails != nil {
		out.CustomerEmail = sess.CustomerDetails.Email
	}
	if sess.Subscription != nil {
		out.SubscriptionID = sess.Subscription.ID
	}
	if sess.LineItems != nil {
		for _, li := range sess.LineItems.Data {
			if li.Price != nil {
				out.PriceIDs = append(out.PriceIDs, li.Price.ID)
			}
		}
	}
	return out
}

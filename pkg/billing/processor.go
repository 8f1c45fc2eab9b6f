package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/replykit/pkg/catalog"
	"github.com/dmitrymomot/replykit/pkg/entitlement"
	"github.com/dmitrymomot/replykit/pkg/logger"
	"github.com/dmitrymomot/replykit/pkg/purchase"
)

// Processor reconciles webhook events into the purchase ledger and user
// entitlements.
//
// Deliveries are at-least-once and unordered, so every handler is written to
// be idempotent: replaying any event against an already-reconciled state is
// a no-op. Handler errors are for the caller's logs; the HTTP layer still
// acknowledges the delivery because retries only help transient failures.
type Processor struct {
	provider     Provider
	catalog      *catalog.Catalog
	ledger       purchase.Ledger
	entitlements entitlement.Store
	notifier     *Notifier
	log          *slog.Logger
	now          func() time.Time
}

// NewProcessor wires the webhook reconciliation pipeline.
func NewProcessor(
	provider Provider,
	cat *catalog.Catalog,
	ledger purchase.Ledger,
	entitlements entitlement.Store,
	notifier *Notifier,
	log *slog.Logger,
) *Processor {
	return &Processor{
		provider:     provider,
		catalog:      cat,
		ledger:       ledger,
		entitlements: entitlements,
		notifier:     notifier,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// HandleEvent dispatches a normalized webhook event.
// Unknown event kinds are acknowledged and ignored.
func (p *Processor) HandleEvent(ctx context.Context, ev Event) error {
	switch ev.Type {
	case EventCheckoutCompleted:
		return p.handleCheckoutCompleted(ctx, ev)
	case EventSubscriptionCreated:
		return p.handleSubscriptionCreated(ctx, ev)
	case EventSubscriptionDeleted:
		return p.handleSubscriptionDeleted(ctx, ev)
	default:
		p.log.DebugContext(ctx, "webhook event ignored", logger.EventType(string(ev.Type)))
		return nil
	}
}

// handleCheckoutCompleted is the main reconciliation path: re-fetch the
// session, write the ledger row, then apply the entitlement change.
func (p *Processor) handleCheckoutCompleted(ctx context.Context, ev Event) error {
	sess, err := p.provider.GetSession(ctx, ev.SessionID)
	if err != nil {
		return err
	}

	// A session without an internal user id can never be attributed, now or
	// on any redelivery. Nothing is persisted for it.
	if sess.UserID == "" {
		p.log.ErrorContext(ctx, "completed session has no user identity, skipping",
			logger.SessionID(sess.ID))
		return ErrMissingIdentity
	}

	exists, err := p.ledger.Exists(ctx, sess.ID)
	if err != nil {
		return err
	}

	var item catalog.Item
	var itemFound bool
	itemID := catalog.PlanPremiumMonthly
	if sess.Mode != ModeSubscription {
		item, itemFound = p.resolveItem(sess.PriceIDs)
		itemID = item.ID
		if !itemFound {
			// The payment is still recorded so it shows up in the history
			// even when the price cannot be mapped to an item.
			p.log.WarnContext(ctx, "no catalog item for session prices",
				logger.SessionID(sess.ID), slog.Any("price_ids", sess.PriceIDs))
		}
	}

	// recorded tracks whether this delivery wrote the ledger row. The
	// entitlement mutation below runs on every delivery either way: grants
	// are set-based, so a redelivery can repair a grant that failed after
	// the row was already written.
	recorded := !exists
	if !exists {
		status := sess.PaymentStatus
		if status == "" {
			status = "completed"
		}
		rec := purchase.Record{
			ID:          uuid.NewString(),
			UserID:      sess.UserID,
			SessionID:   sess.ID,
			ItemID:      itemID,
			Amount:      sess.AmountTotal,
			Currency:    sess.Currency,
			Status:      status,
			PurchasedAt: p.now(),
			CreatedAt:   p.now(),
		}
		switch sess.Mode {
		case ModeSubscription:
			rec.Type = purchase.TypeSubscription
			if plan, ok := p.catalog.PlanByID(catalog.PlanPremiumMonthly); ok {
				rec.ItemName = plan.Name
			}
		default:
			rec.Type = purchase.TypeItem
			rec.ItemName = item.Name
		}

		if err := p.ledger.Append(ctx, rec); err != nil {
			if !errors.Is(err, purchase.ErrDuplicateSession) {
				return err
			}
			// A concurrent redelivery won the insert race; fall through to
			// the entitlement mutation like any other redelivery.
			recorded = false
		}
	}

	switch sess.Mode {
	case ModeSubscription:
		if err := p.activate(ctx, sess.UserID, sess.SubscriptionID, sess.CustomerEmail); err != nil {
			// A redelivery arriving after the subscription already moved on
			// in its lifecycle has nothing left to repair.
			if !recorded && errors.Is(err, entitlement.ErrInvalidTransition) {
				return nil
			}
			return err
		}
		if recorded {
			p.notifier.SubscriptionActivated(ctx, sess.CustomerEmail)
		}
	default:
		if itemFound {
			if err := p.entitlements.GrantItem(ctx, sess.UserID, item.ID); err != nil {
				return err
			}
			if recorded {
				p.notifier.PurchaseConfirmed(ctx, sess.CustomerEmail, item.Name)
			}
		}
	}

	p.log.InfoContext(ctx, "checkout session reconciled",
		logger.SessionID(sess.ID), logger.UserID(sess.UserID),
		slog.String("mode", string(sess.Mode)), logger.ItemID(itemID),
		slog.Bool("redelivery", !recorded))
	return nil
}

func (p *Processor) handleSubscriptionCreated(ctx context.Context, ev Event) error {
	userID, _, err := p.resolveSubscriber(ctx, ev)
	if err != nil {
		return err
	}
	return p.activate(ctx, userID, ev.SubscriptionID, "")
}

func (p *Processor) handleSubscriptionDeleted(ctx context.Context, ev Event) error {
	userID, rec, err := p.resolveSubscriber(ctx, ev)
	if err != nil {
		// A deletion for a subscription nobody holds has nothing to clear.
		if errors.Is(err, entitlement.ErrNotFound) {
			p.log.InfoContext(ctx, "deleted subscription not on file, nothing to clear",
				logger.SubscriptionID(ev.SubscriptionID))
			return nil
		}
		return err
	}

	state := entitlement.StateOf(rec)
	if state == entitlement.StateCanceled || state == entitlement.StateNone {
		// Redelivered deletion, already cleared.
		return nil
	}

	if err := p.entitlements.ClearSubscription(ctx, userID); err != nil {
		return err
	}

	p.log.InfoContext(ctx, "subscription canceled, user back on free plan",
		logger.UserID(userID), logger.SubscriptionID(ev.SubscriptionID))

	// The notice never blocks or rolls back the downgrade.
	p.notifier.SubscriptionCanceled(ctx, rec.Email)
	return nil
}

// activate confirms a subscription, honoring the lifecycle table.
func (p *Processor) activate(ctx context.Context, userID, subscriptionID, email string) error {
	rec, err := p.entitlements.Ensure(ctx, userID)
	if err != nil {
		return err
	}

	if err := entitlement.Transition(entitlement.StateOf(rec), entitlement.StateActive); err != nil {
		p.log.WarnContext(ctx, "subscription confirmation rejected by lifecycle",
			logger.Error(err), logger.UserID(userID), logger.SubscriptionID(subscriptionID))
		return err
	}

	return p.entitlements.ActivateSubscription(ctx, userID, subscriptionID, email)
}

// resolveSubscriber attributes a subscription event to a user: the metadata
// user id when stamped at checkout, otherwise a reverse lookup by
// subscription id.
func (p *Processor) resolveSubscriber(ctx context.Context, ev Event) (string, entitlement.UserEntitlement, error) {
	if ev.UserID != "" {
		rec, err := p.entitlements.Ensure(ctx, ev.UserID)
		if err != nil {
			return "", entitlement.UserEntitlement{}, err
		}
		return ev.UserID, rec, nil
	}

	rec, err := p.entitlements.FindBySubscriptionID(ctx, ev.SubscriptionID)
	if err != nil {
		return "", entitlement.UserEntitlement{}, err
	}
	return rec.UserID, rec, nil
}

// resolveItem maps session line-item prices to a catalog item.
// Exact price-id lookup only; the first mapped price wins.
func (p *Processor) resolveItem(priceIDs []string) (catalog.Item, bool) {
	for _, priceID := range priceIDs {
		if item, ok := p.catalog.ItemForPrice(priceID); ok {
			return item, true
		}
	}
	return catalog.Item{}, false
}

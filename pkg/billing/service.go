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

// CheckoutType selects what a checkout session pays for.
type CheckoutType string

const (
	CheckoutSubscription CheckoutType = "subscription"
	CheckoutOneTime      CheckoutType = "one_time"
)

// CheckoutRequest describes a checkout the user wants to start.
type CheckoutRequest struct {
	Type       CheckoutType
	PlanID     string // required for subscription checkouts
	ItemID     string // required for one-time checkouts
	SuccessURL string
	CancelURL  string
}

// CheckoutResult points the client at the hosted checkout page.
type CheckoutResult struct {
	SessionID string
	URL       string
}

// SessionStatus is the client-facing view of a checkout session.
type SessionStatus struct {
	Status        string
	PaymentStatus string
	CustomerEmail string
	Mode          Mode
	AmountTotal   int64
	Currency      string
}

// CancelResult reports a scheduled cancellation.
type CancelResult struct {
	CancelAt time.Time
}

// Service is the synchronous, user-facing side of billing: starting
// checkouts, querying session status, canceling subscriptions and the
// direct item grant path.
type Service struct {
	provider     Provider
	catalog      *catalog.Catalog
	ledger       purchase.Ledger
	entitlements entitlement.Store
	log          *slog.Logger
	now          func() time.Time
}

// NewService wires the user-facing billing operations.
func NewService(
	provider Provider,
	cat *catalog.Catalog,
	ledger purchase.Ledger,
	entitlements entitlement.Store,
	log *slog.Logger,
) *Service {
	return &Service{
		provider:     provider,
		catalog:      cat,
		ledger:       ledger,
		entitlements: entitlements,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateCheckout starts a hosted checkout session for the user.
func (s *Service) CreateCheckout(ctx context.Context, userID string, req CheckoutRequest) (CheckoutResult, error) {
	var priceID string
	var mode Mode

	switch req.Type {
	case CheckoutSubscription:
		plan, ok := s.catalog.PlanByID(req.PlanID)
		if !ok {
			return CheckoutResult{}, ErrUnknownPlan
		}
		priceID = plan.PriceID
		mode = ModeSubscription
	case CheckoutOneTime:
		item, ok := s.catalog.ItemByID(req.ItemID)
		if !ok {
			return CheckoutResult{}, ErrUnknownItem
		}
		priceID = item.PriceID
		mode = ModePayment
	default:
		return CheckoutResult{}, ErrUnknownItem
	}

	sess, err := s.provider.CreateCheckoutSession(ctx, CheckoutParams{
		UserID:     userID,
		PriceID:    priceID,
		Mode:       mode,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		return CheckoutResult{}, err
	}

	s.log.InfoContext(ctx, "checkout session created",
		logger.UserID(userID), logger.SessionID(sess.ID), slog.String("mode", string(mode)))
	return CheckoutResult{SessionID: sess.ID, URL: sess.URL}, nil
}

// PurchaseStatus returns the processor's view of a checkout session, used by
// the client success page to poll payment completion.
func (s *Service) PurchaseStatus(ctx context.Context, sessionID string) (SessionStatus, error) {
	sess, err := s.provider.GetSession(ctx, sessionID)
	if err != nil {
		return SessionStatus{}, err
	}
	return SessionStatus{
		Status:        sess.Status,
		PaymentStatus: sess.PaymentStatus,
		CustomerEmail: sess.CustomerEmail,
		Mode:          sess.Mode,
		AmountTotal:   sess.AmountTotal,
		Currency:      sess.Currency,
	}, nil
}

// CancelSubscription schedules the user's subscription for cancellation at
// period end. Premium access stays on until the processor confirms the
// deletion via webhook.
func (s *Service) CancelSubscription(ctx context.Context, userID string) (CancelResult, error) {
	rec, err := s.entitlements.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, entitlement.ErrNotFound) {
			return CancelResult{}, ErrSubscriptionNotFound
		}
		return CancelResult{}, err
	}
	if rec.SubscriptionID == "" {
		return CancelResult{}, ErrSubscriptionNotFound
	}

	// Retrying an already-pending cancellation is allowed and converges on
	// the same state.
	if err := entitlement.Transition(entitlement.StateOf(rec), entitlement.StateCancelPending); err != nil {
		return CancelResult{}, err
	}

	cancelAt, err := s.provider.CancelAtPeriodEnd(ctx, rec.SubscriptionID)
	if err != nil {
		return CancelResult{}, err
	}

	if err := s.entitlements.MarkCancelPending(ctx, userID); err != nil {
		return CancelResult{}, err
	}

	s.log.InfoContext(ctx, "subscription cancellation scheduled",
		logger.UserID(userID), logger.SubscriptionID(rec.SubscriptionID),
		slog.Time("cancel_at", cancelAt))
	return CancelResult{CancelAt: cancelAt}, nil
}

// PurchaseItem grants a catalog item directly and writes the ledger row
// synchronously, with the same idempotency rules as the webhook path.
func (s *Service) PurchaseItem(ctx context.Context, userID, itemID string) (purchase.Record, error) {
	item, ok := s.catalog.ItemByID(itemID)
	if !ok {
		return purchase.Record{}, ErrUnknownItem
	}

	rec, err := s.entitlements.Ensure(ctx, userID)
	if err != nil {
		return purchase.Record{}, err
	}
	if rec.HasItem(item.ID) {
		return purchase.Record{}, ErrAlreadyPurchased
	}

	if err := s.entitlements.GrantItem(ctx, userID, item.ID); err != nil {
		return purchase.Record{}, err
	}

	row := purchase.Record{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        purchase.TypeItem,
		ItemID:      item.ID,
		ItemName:    item.Name,
		Amount:      item.Amount,
		Currency:    item.Currency,
		Status:      "completed",
		PurchasedAt: s.now(),
		CreatedAt:   s.now(),
	}
	if err := s.ledger.Append(ctx, row); err != nil {
		return purchase.Record{}, err
	}

	s.log.InfoContext(ctx, "item granted",
		logger.UserID(userID), logger.ItemID(item.ID))
	return row, nil
}

// History returns the user's purchase history, unioned across ledgers,
// deduplicated and sorted newest first.
func (s *Service) History(ctx context.Context, userID string) ([]purchase.Record, error) {
	return s.ledger.History(ctx, userID)
}

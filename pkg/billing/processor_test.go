package billing_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/replykit/pkg/billing"
	"github.com/dmitrymomot/replykit/pkg/catalog"
	"github.com/dmitrymomot/replykit/pkg/entitlement"
	"github.com/dmitrymomot/replykit/pkg/logger"
	"github.com/dmitrymomot/replykit/pkg/purchase"
)

// Mock implementations

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) CreateCheckoutSession(ctx context.Context, params billing.CheckoutParams) (billing.Session, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(billing.Session), args.Error(1)
}

func (m *mockProvider) GetSession(ctx context.Context, sessionID string) (billing.Session, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(billing.Session), args.Error(1)
}

func (m *mockProvider) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (time.Time, error) {
	args := m.Called(ctx, subscriptionID)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *mockProvider) ParseWebhook(payload []byte, signature string) (billing.Event, error) {
	args := m.Called(payload, signature)
	return args.Get(0).(billing.Event), args.Error(1)
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Exists(ctx context.Context, sessionID string) (bool, error) {
	args := m.Called(ctx, sessionID)
	return args.Bool(0), args.Error(1)
}

func (m *mockLedger) Append(ctx context.Context, rec purchase.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockLedger) History(ctx context.Context, userID string) ([]purchase.Record, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]purchase.Record), args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, userID string) (entitlement.UserEntitlement, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(entitlement.UserEntitlement), args.Error(1)
}

func (m *mockStore) Ensure(ctx context.Context, userID string) (entitlement.UserEntitlement, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(entitlement.UserEntitlement), args.Error(1)
}

func (m *mockStore) GrantItem(ctx context.Context, userID, itemID string) error {
	args := m.Called(ctx, userID, itemID)
	return args.Error(0)
}

func (m *mockStore) ActivateSubscription(ctx context.Context, userID, subscriptionID, email string) error {
	args := m.Called(ctx, userID, subscriptionID, email)
	return args.Error(0)
}

func (m *mockStore) MarkCancelPending(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockStore) ClearSubscription(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockStore) FindBySubscriptionID(ctx context.Context, subscriptionID string) (entitlement.UserEntitlement, error) {
	args := m.Called(ctx, subscriptionID)
	return args.Get(0).(entitlement.UserEntitlement), args.Error(1)
}

func (m *mockStore) ResetUsage(ctx context.Context, userID string, resetAt time.Time) error {
	args := m.Called(ctx, userID, resetAt)
	return args.Error(0)
}

func (m *mockStore) IncrementUsage(ctx context.Context, userID string, limit int) (int, error) {
	args := m.Called(ctx, userID, limit)
	return args.Int(0), args.Error(1)
}

// Test helpers

func testCatalog() *catalog.Catalog {
	return catalog.New(catalog.Config{
		FirstMessagePriceID:   "price_first",
		ToneShiftPriceID:      "price_tone",
		InvitationPriceID:     "price_invite",
		TopicsPriceID:         "price_topics",
		PremiumMonthlyPriceID: "price_premium",
	})
}

func testLogger() *slog.Logger {
	return logger.New(logger.WithOutput(io.Discard))
}

func newProcessor(provider billing.Provider, ledger purchase.Ledger, store entitlement.Store) *billing.Processor {
	log := testLogger()
	return billing.NewProcessor(provider, testCatalog(), ledger, store, billing.NewNotifier(nil, log), log)
}

func TestProcessor_CheckoutCompleted(t *testing.T) {
	t.Parallel()

	t.Run("item purchase writes ledger row and grants item", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		ledger := &mockLedger{}
		store := &mockStore{}

		provider.On("GetSession", mock.Anything, "cs_1").Return(billing.Session{
			ID:            "cs_1",
			Mode:          billing.ModePayment,
			UserID:        "user-1",
			CustomerEmail: "user@example.com",
			AmountTotal:   2500,
			Currency:      "jpy",
			PriceIDs:      []string{"price_topics"},
		}, nil)
		ledger.On("Exists", mock.Anything, "cs_1").Return(false, nil)
		ledger.On("Append", mock.Anything, mock.MatchedBy(func(rec purchase.Record) bool {
			return rec.SessionID == "cs_1" &&
				rec.UserID == "user-1" &&
				rec.Type == purchase.TypeItem &&
				rec.ItemID == "topics_pack"
		})).Return(nil)
		store.On("GrantItem", mock.Anything, "user-1", "topics_pack").Return(nil)

		err := newProcessor(provider, ledger, store).HandleEvent(context.Background(), billing.Event{
			Type:      billing.EventCheckoutCompleted,
			SessionID: "cs_1",
		})

		require.NoError(t, err)
		provider.AssertExpectations(t)
		ledger.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("redelivery reapplies the grant without a second ledger row", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		ledger := &mockLedger{}
		store := &mockStore{}

		provider.On("GetSession", mock.Anything, "cs_1").Return(billing.Session{
			ID:       "cs_1",
			Mode:     billing.ModePayment,
			UserID:   "user-1",
			PriceIDs: []string{"price_topics"},
		}, nil)
		ledger.On("Exists", mock.Anything, "cs_1").Return(true, nil)
		store.On("GrantItem", mock.Anything, "user-1", "topics_pack").Return(nil)

		err := newProcessor(provider, ledger, store).HandleEvent(context.Background(), billing.Event{
			Type:      billing.EventCheckoutCompleted,
			SessionID: "cs_1",
		})

		require.NoError(t, err)
		ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
		store.AssertExpectations(t)
	})

	t.Run("redelivery repairs a grant that failed after the row was written", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		ledger := &mockLedger{}
		store := &mockStore{}

		provider.On("GetSession", mock.Anything, "cs_1").Return(billing.Session{
			ID:       "cs_1",
			Mode:     billing.ModePayment,
			UserID:   "user-1",
			PriceIDs: []string{"price_topics"},
		}, nil)
		ledger.On("Exists", mock.Anything, "cs_1").Return(false, nil).Once()
		ledger.On("Append", mock.Anything, mock.Anything).Return(nil).Once()
		store.On("GrantItem", mock.Anything, "user-1", "topics_pack").
			Return(errors.New("write timeout")).Once()

		p := newProcessor(provider, ledger, store)
		ev := billing.Event{Type: billing.EventCheckoutCompleted, SessionID: "cs_1"}

		// First delivery writes the row but the grant fails; the error
		// surfaces for the logs while the delivery is still acked upstream.
		require.Error(t, p.HandleEvent(context.Background(), ev))

		ledger.On("Exists", mock.Anything, "cs_1").Return(true, nil).Once()
		store.On("GrantItem", mock.Anything, "user-1", "topics_pack").Return(nil).Once()

		require.NoError(t, p.HandleEvent(context.Background(), ev))
		ledger.AssertNumberOfCalls(t, "Append", 1)
		store.AssertNumberOfCalls(t, "GrantItem", 2)
	})

	t.Run("session without user identity is aborted before any write", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		ledger := &mockLedger{}
		store := &mockStore{}

		provider.On("GetSession", mock.Anything, "cs_2").Return(billing.Session{
			ID:       "cs_2",
			Mode:     billing.ModePayment,
			PriceIDs: []string{"price_topics"},
		}, nil)

		err := newProcessor(provider, ledger, store).HandleEvent(context.Background(), billing.Event{
			Type:      billing.EventCheckoutCompleted,
			SessionID: "cs_2",
		})

		assert.ErrorIs(t, err, billing.ErrMissingIdentity)
		ledger.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
		ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "GrantItem", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unmapped price persists row without granting", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		ledger := &mockLedger{}
		store := &mockStore{}

		provider.On("GetSession", mock.Anything, "cs_3").Return(billing.Session{
			ID:       "cs_3",
			Mode:     billing.ModePayment,
			UserID:   "user-1",
			PriceIDs: []string{"price_retired_pack"},
		}, nil)
		ledger.On("Exists", mock.Anything, "cs_3").Return(false, nil)
		ledger.On("Append", mock.Anything, mock.MatchedBy(func(rec purchase.Record) bool {
			return rec.SessionID == "cs_3" && rec.ItemID == ""
		})).Return(nil)

		err := newProcessor(provider, ledger, store).HandleEvent(context.Background(), billing.Event{
			Type:      billing.EventCheckoutCompleted,
			SessionID: "cs_3",
		})

		require.NoError(t, err)
		ledger.AssertExpectations(t)
		store.AssertNotCalled(t, "GrantItem", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("subscription checkout activates premium", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		ledger := &mockLedger{}
		store := &mockStore{}

		provider.On("GetSession", mock.Anything, "cs_4").Return(billing.Session{
			ID:             "cs_4",
			Mode:           billing.ModeSubscription,
			UserID:         "user-2",
			CustomerEmail:  "user2@example.com",
			SubscriptionID: "sub_1",
			AmountTotal:    1980,
			Currency:       "jpy",
		}, nil)
		ledger.On("Exists", mock.Anything, "cs_4").Return(false, nil)
		ledger.On("Append", mock.Anything, mock.MatchedBy(func(rec purchase.Record) bool {
			return rec.Type == purchase.TypeSubscription && rec.ItemID == catalog.PlanPremiumMonthly
		})).Return(nil)
		store.On("Ensure", mock.Anything, "user-2").Return(entitlement.UserEntitlement{
			UserID: "user-2",
			Plan:   entitlement.PlanFree,
		}, nil)
		store.On("ActivateSubscription", mock.Anything, "user-2", "sub_1", "user2@example.com").Return(nil)

		err := newProcessor(provider, ledger, store).HandleEvent(context.Background(), billing.Event{
			Type:      billing.EventCheckoutCompleted,
			SessionID: "cs_4",
		})

		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("duplicate insert race still applies the grant", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		ledger := &mockLedger{}
		store := &mockStore{}

		provider.On("GetSession", mock.Anything, "cs_5").Return(billing.Session{
			ID:       "cs_5",
			Mode:     billing.ModePayment,
			UserID:   "user-1",
			PriceIDs: []string{"price_topics"},
		}, nil)
		ledger.On("Exists", mock.Anything, "cs_5").Return(false, nil)
		ledger.On("Append", mock.Anything, mock.Anything).Return(purchase.ErrDuplicateSession)
		store.On("GrantItem", mock.Anything, "user-1", "topics_pack").Return(nil)

		err := newProcessor(provider, ledger, store).HandleEvent(context.Background(), billing.Event{
			Type:      billing.EventCheckoutCompleted,
			SessionID: "cs_5",
		})

		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("redelivered subscription checkout after a cancel request is a no-op", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		ledger := &mockLedger{}
		store := &mockStore{}

		provider.On("GetSession", mock.Anything, "cs_6").Return(billing.Session{
			ID:             "cs_6",
			Mode:           billing.ModeSubscription,
			UserID:         "user-2",
			SubscriptionID: "sub_1",
		}, nil)
		ledger.On("Exists", mock.Anything, "cs_6").Return(true, nil)
		store.On("Ensure", mock.Anything, "user-2").Return(entitlement.UserEntitlement{
			UserID:             "user-2",
			Plan:               entitlement.PlanPremium,
			SubscriptionID:     "sub_1",
			SubscriptionStatus: entitlement.StatusCancelPending,
		}, nil)

		err := newProcessor(provider, ledger, store).HandleEvent(context.Background(), billing.Event{
			Type:      billing.EventCheckoutCompleted,
			SessionID: "cs_6",
		})

		require.NoError(t, err)
		store.AssertNotCalled(t, "ActivateSubscription", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestProcessor_SubscriptionCreated(t *testing.T) {
	t.Parallel()

	t.Run("metadata user id wins", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		ledger := &mockLedger{}
		store := &mockStore{}

		store.On("Ensure", mock.Anything, "user-1").Return(entitlement.UserEntitlement{
			UserID: "user-1",
		}, nil)
		store.On("ActivateSubscription", mock.Anything, "user-1", "sub_1", "").Return(nil)

		err := newProcessor(provider, ledger, store).HandleEvent(context.Background(), billing.Event{
			Type:           billing.EventSubscriptionCreated,
			SubscriptionID: "sub_1",
			UserID:         "user-1",
		})

		require.NoError(t, err)
		store.AssertNotCalled(t, "FindBySubscriptionID", mock.Anything, mock.Anything)
		store.AssertExpectations(t)
	})

	t.Run("falls back to subscription id lookup", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		ledger := &mockLedger{}
		store := &mockStore{}

		store.On("FindBySubscriptionID", mock.Anything, "sub_2").Return(entitlement.UserEntitlement{
			UserID:             "user-2",
			SubscriptionID:     "sub_2",
			Plan:               entitlement.PlanPremium,
			SubscriptionStatus: entitlement.StatusActive,
		}, nil)
		store.On("Ensure", mock.Anything, "user-2").Return(entitlement.UserEntitlement{
			UserID:             "user-2",
			SubscriptionID:     "sub_2",
			Plan:               entitlement.PlanPremium,
			SubscriptionStatus: entitlement.StatusActive,
		}, nil)
		store.On("ActivateSubscription", mock.Anything, "user-2", "sub_2", "").Return(nil)

		err := newProcessor(provider, ledger, store).HandleEvent(context.Background(), billing.Event{
			Type:           billing.EventSubscriptionCreated,
			SubscriptionID: "sub_2",
		})

		require.NoError(t, err)
	})

	t.Run("pending cancellation rejects reactivation", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		ledger := &mockLedger{}
		store := &mockStore{}

		store.On("Ensure", mock.Anything, "user-3").Return(entitlement.UserEntitlement{
			UserID:             "user-3",
			Plan:               entitlement.PlanPremium,
			SubscriptionID:     "sub_3",
			SubscriptionStatus: entitlement.StatusCancelPending,
		}, nil)

		err := newProcessor(provider, ledger, store).HandleEvent(context.Background(), billing.Event{
			Type:           billing.EventSubscriptionCreated,
			SubscriptionID: "sub_3",
			UserID:         "user-3",
		})

		assert.ErrorIs(t, err, entitlement.ErrInvalidTransition)
		store.AssertNotCalled(t, "ActivateSubscription", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestProcessor_SubscriptionDeleted(t *testing.T) {
	t.Parallel()

	t.Run("clears subscription and downgrades to free", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		ledger := &mockLedger{}
		store := &mockStore{}

		store.On("FindBySubscriptionID", mock.Anything, "sub_1").Return(entitlement.UserEntitlement{
			UserID:             "user-1",
			Plan:               entitlement.PlanPremium,
			SubscriptionID:     "sub_1",
			SubscriptionStatus: entitlement.StatusCancelPending,
			Email:              "user@example.com",
		}, nil)
		store.On("ClearSubscription", mock.Anything, "user-1").Return(nil)

		err := newProcessor(provider, ledger, store).HandleEvent(context.Background(), billing.Event{
			Type:           billing.EventSubscriptionDeleted,
			SubscriptionID: "sub_1",
		})

		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("unknown subscription is a no-op", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		ledger := &mockLedger{}
		store := &mockStore{}

		store.On("FindBySubscriptionID", mock.Anything, "sub_missing").
			Return(entitlement.UserEntitlement{}, entitlement.ErrNotFound)

		err := newProcessor(provider, ledger, store).HandleEvent(context.Background(), billing.Event{
			Type:           billing.EventSubscriptionDeleted,
			SubscriptionID: "sub_missing",
		})

		require.NoError(t, err)
		store.AssertNotCalled(t, "ClearSubscription", mock.Anything, mock.Anything)
	})

	t.Run("redelivered deletion on canceled record is a no-op", func(t *testing.T) {
		t.Parallel()
		provider := &mockProvider{}
		ledger := &mockLedger{}
		store := &mockStore{}

		store.On("FindBySubscriptionID", mock.Anything, "sub_2").Return(entitlement.UserEntitlement{
			UserID:             "user-2",
			Plan:               entitlement.PlanFree,
			SubscriptionID:     "sub_2",
			SubscriptionStatus: entitlement.StatusCanceled,
		}, nil)

		err := newProcessor(provider, ledger, store).HandleEvent(context.Background(), billing.Event{
			Type:           billing.EventSubscriptionDeleted,
			SubscriptionID: "sub_2",
		})

		require.NoError(t, err)
		store.AssertNotCalled(t, "ClearSubscription", mock.Anything, mock.Anything)
	})
}

func TestProcessor_UnknownEvent(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{}
	ledger := &mockLedger{}
	store := &mockStore{}

	err := newProcessor(provider, ledger, store).HandleEvent(context.Background(), billing.Event{
		Type: "invoice.paid",
	})

	require.NoError(t, err)
	provider.AssertNotCalled(t, "GetSession", mock.Anything, mock.Anything)
}

func TestProcessor_ProviderFailureSurfaces(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{}
	ledger := &mockLedger{}
	store := &mockStore{}

	provider.On("GetSession", mock.Anything, "cs_err").
		Return(billing.Session{}, errors.New("stripe unavailable"))

	err := newProcessor(provider, ledger, store).HandleEvent(context.Background(), billing.Event{
		Type:      billing.EventCheckoutCompleted,
		SessionID: "cs_err",
	})

	assert.Error(t, err)
}

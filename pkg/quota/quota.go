package quota

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/replykit/pkg/entitlement"
	"github.com/dmitrymomot/replykit/pkg/logger"
)

const (
	// FreeMonthlyLimit is the number of generations a free user gets per
	// calendar month.
	FreeMonthlyLimit = 3
	// Unlimited is the sentinel reported for premium users.
	Unlimited = -1
)

// Result is the outcome of a quota check or increment.
type Result struct {
	CanUse        bool             `json:"can_use"`
	RemainingUses int              `json:"remaining_uses"`
	TotalUses     int              `json:"total_uses"`
	Plan          entitlement.Plan `json:"plan"`
}

func unlimitedResult() Result {
	return Result{
		CanUse:        true,
		RemainingUses: Unlimited,
		TotalUses:     Unlimited,
		Plan:          entitlement.PlanPremium,
	}
}

func freeResult(used int) Result {
	remaining := FreeMonthlyLimit - used
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		CanUse:        remaining > 0,
		RemainingUses: remaining,
		TotalUses:     FreeMonthlyLimit,
		Plan:          entitlement.PlanFree,
	}
}

// Option configures the quota service.
type Option func(*Service)

// WithClock overrides the time source, used by tests to cross month
// boundaries deterministically.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service enforces the free-tier monthly quota.
//
// The monthly window resets lazily: no scheduler runs at month boundaries,
// the first operation in a new calendar month zeroes the counter as a side
// effect.
type Service struct {
	store entitlement.Store
	log   *slog.Logger
	now   func() time.Time
}

// NewService creates a quota service.
func NewService(store entitlement.Store, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check reports whether the user may use the feature now.
//
// Check never returns an error: a storage failure degrades to the full free
// quota so a database outage cannot lock users out of a feature they are
// entitled to. The failure is logged for operators.
func (s *Service) Check(ctx context.Context, userID string) Result {
	e, err := s.store.Ensure(ctx, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "quota check degraded to full free quota",
			logger.Error(err), logger.UserID(userID))
		return freeResult(0)
	}

	if e.IsPremium() {
		return unlimitedResult()
	}

	if needsReset(s.now(), e.UsageResetAt) {
		if err := s.store.ResetUsage(ctx, userID, s.now()); err != nil {
			s.log.ErrorContext(ctx, "monthly usage reset failed",
				logger.Error(err), logger.UserID(userID))
			return freeResult(0)
		}
		e.MonthlyUsageCount = 0
	}

	return freeResult(e.MonthlyUsageCount)
}

// Increment consumes one use.
//
// Unlike Check, storage failures surface to the caller: silently allowing a
// use that was never counted would make the quota advisory. At the ceiling
// it returns ErrQuotaExceeded and the counter is left unchanged.
func (s *Service) Increment(ctx context.Context, userID string) (Result, error) {
	e, err := s.store.Ensure(ctx, userID)
	if err != nil {
		return Result{}, err
	}

	// Premium users are never metered.
	if e.IsPremium() {
		return unlimitedResult(), nil
	}

	if needsReset(s.now(), e.UsageResetAt) {
		if err := s.store.ResetUsage(ctx, userID, s.now()); err != nil {
			return Result{}, err
		}
	}

	count, err := s.store.IncrementUsage(ctx, userID, FreeMonthlyLimit)
	if err != nil {
		if errors.Is(err, entitlement.ErrUsageLimitReached) {
			return freeResult(FreeMonthlyLimit), ErrQuotaExceeded
		}
		return Result{}, err
	}

	return freeResult(count), nil
}

// needsReset reports whether the reset timestamp belongs to a different
// calendar month than now. Comparison is by calendar position, not elapsed
// duration, and any mismatch counts: a future-dated timestamp (clock skew,
// a restored backup) must not pin the counter forever.
func needsReset(now, resetAt time.Time) bool {
	if resetAt.IsZero() {
		return false
	}
	return now.Year() != resetAt.Year() || now.Month() != resetAt.Month()
}

package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/vitalux/internal/models"
)

// Point thresholds for the discount tiers, applied to the trailing-window
// total of personal plus network points.
const (
	silverMinPoints = 50
	goldMinPoints   = 100
)

// tierUpdateRetries bounds the optimistic-concurrency retry loop. Losing
// every attempt leaves a stale tier until the next settlement.
const tierUpdateRetries = 3

// TierFor maps a trailing-window point total to a discount percent.
func TierFor(points int) int {
	switch {
	case points >= goldMinPoints:
		return models.DiscountGold
	case points >= silverMinPoints:
		return models.DiscountSilver
	default:
		return models.DiscountNone
	}
}

// TrailingWindow returns the evaluation window: the current calendar month
// plus the two preceding ones, up to now. Boundaries follow the calendar,
// not a fixed 90-day span.
func TrailingWindow(now time.Time) (time.Time, time.Time) {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return firstOfMonth.AddDate(0, -2, 0), now
}

// TierValidUntil returns the end of the last day of the month three months
// from now, the expiry stamped on a freshly evaluated tier.
func TierValidUntil(now time.Time) time.Time {
	// Day zero of month+4 normalizes to the last day of month+3.
	return time.Date(now.Year(), now.Month()+4, 0, 23, 59, 59, 0, now.Location())
}

// TierNotifier receives best-effort notifications about tier changes.
type TierNotifier interface {
	NotifyTierChange(user *models.User, newPercent, recentTotal int, validUntil time.Time) error
}

// TierResult is the outcome of one evaluation.
type TierResult struct {
	Percent     int
	ValidUntil  *time.Time
	RecentTotal int
	Changed     bool
}

// TierEvaluator recomputes a user's discount tier from the ledger. The
// stored tier is a cached projection; the ledger remains authoritative.
type TierEvaluator struct {
	users    UserStore
	ledger   LedgerStore
	notifier TierNotifier
}

// NewTierEvaluator constructs a TierEvaluator. notifier may be nil.
func NewTierEvaluator(users UserStore, ledger LedgerStore, notifier TierNotifier) *TierEvaluator {
	return &TierEvaluator{users: users, ledger: ledger, notifier: notifier}
}

// Evaluate sums the user's trailing-window points and updates the stored
// tier when it changed. Concurrent evaluations of the same user are
// resolved by a compare-and-swap on the user's tier version; after bounded
// retries the stale value is accepted until the next settlement.
func (e *TierEvaluator) Evaluate(ctx context.Context, userID uuid.UUID, now time.Time) (TierResult, error) {
	from, to := TrailingWindow(now)

	var result TierResult
	for attempt := 0; attempt < tierUpdateRetries; attempt++ {
		user, err := e.users.GetUser(ctx, userID)
		if err != nil {
			return TierResult{}, err
		}

		personal, err := e.ledger.SumInWindow(ctx, userID, models.ScopePersonal, from, to)
		if err != nil {
			return TierResult{}, err
		}
		network, err := e.ledger.SumInWindow(ctx, userID, models.ScopeNetwork, from, to)
		if err != nil {
			return TierResult{}, err
		}

		total := personal + network
		percent := TierFor(total)
		result = TierResult{Percent: percent, ValidUntil: user.DiscountValidUntil, RecentTotal: total}

		expired := user.DiscountValidUntil != nil && user.DiscountValidUntil.Before(now)
		if percent == user.DiscountPercent && !expired {
			// Unchanged and still valid, skip the write to avoid needless
			// row contention.
			return result, nil
		}

		validUntil := TierValidUntil(now)
		updated, err := e.users.UpdateTier(ctx, userID, user.TierVersion, percent, validUntil)
		if err != nil {
			return TierResult{}, err
		}
		if updated {
			result.ValidUntil = &validUntil
			result.Changed = percent != user.DiscountPercent
			if result.Changed {
				e.notify(user, percent, total, validUntil)
			}
			return result, nil
		}
		// Lost the race against a concurrent evaluation, re-read and retry.
	}

	log.Printf("[Tier] giving up on user %s after %d update conflicts, tier stays stale until next settlement", userID, tierUpdateRetries)
	return result, nil
}

func (e *TierEvaluator) notify(user *models.User, percent, total int, validUntil time.Time) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.NotifyTierChange(user, percent, total, validUntil); err != nil {
		log.Printf("[Tier] notification failed for user %s: %v", user.ID, err)
	}
}

// EvaluateQuietly runs Evaluate and downgrades every failure to a log
// line. The order path must never be blocked by tier bookkeeping.
func (e *TierEvaluator) EvaluateQuietly(ctx context.Context, userID uuid.UUID, now time.Time) {
	if _, err := e.Evaluate(ctx, userID, now); err != nil && !errors.Is(err, ErrUserNotFound) {
		log.Printf("[Tier] evaluation failed for user %s: %v", userID, err)
	}
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/example/vitalux/internal/models"
)

func TestTierFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		points int
		want   int
	}{
		{0, 0},
		{49, 0},
		{50, 15},
		{99, 15},
		{100, 30},
		{150, 30},
	}
	for _, tc := range cases {
		if got := TierFor(tc.points); got != tc.want {
			t.Errorf("TierFor(%d) = %d, want %d", tc.points, got, tc.want)
		}
	}
}

func TestTrailingWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 29, 10, 30, 0, 0, time.UTC)
	from, to := TrailingWindow(now)

	wantFrom := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	if !from.Equal(wantFrom) {
		t.Errorf("window start = %s, want %s", from, wantFrom)
	}
	if !to.Equal(now) {
		t.Errorf("window end = %s, want %s", to, now)
	}

	// Year boundary
	now = time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)
	from, _ = TrailingWindow(now)
	wantFrom = time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC)
	if !from.Equal(wantFrom) {
		t.Errorf("window start across year = %s, want %s", from, wantFrom)
	}
}

func TestTierValidUntil(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 29, 10, 0, 0, 0, time.UTC)
	got := TierValidUntil(now)
	want := time.Date(2026, time.November, 30, 23, 59, 59, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("TierValidUntil = %s, want %s", got, want)
	}

	// Month-length normalization
	now = time.Date(2026, time.November, 30, 0, 0, 0, 0, time.UTC)
	got = TierValidUntil(now)
	want = time.Date(2027, time.February, 28, 23, 59, 59, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("TierValidUntil over year = %s, want %s", got, want)
	}
}

func TestEvaluateUpdatesTier(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	user := store.addUser("alice", nil)
	evaluator := NewTierEvaluator(store, store, nil)
	ctx := context.Background()

	order := uuid.New()
	if err := store.Append(ctx, &models.PointLedgerEntry{
		UserID: user.ID, OrderID: order, Scope: models.ScopePersonal,
		EntryType: models.EntryTypeCredit, Amount: 120,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	now := store.clock.Add(time.Hour)
	result, err := evaluator.Evaluate(ctx, user.ID, now)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if result.Percent != models.DiscountGold || !result.Changed {
		t.Fatalf("got percent %d changed %v, want 30 changed", result.Percent, result.Changed)
	}
	if result.RecentTotal != 120 {
		t.Fatalf("recent total = %d, want 120", result.RecentTotal)
	}

	stored, _ := store.GetUser(ctx, user.ID)
	if stored.DiscountPercent != models.DiscountGold {
		t.Fatalf("stored percent = %d, want 30", stored.DiscountPercent)
	}
	wantUntil := TierValidUntil(now)
	if stored.DiscountValidUntil == nil || !stored.DiscountValidUntil.Equal(wantUntil) {
		t.Fatalf("stored valid until = %v, want %s", stored.DiscountValidUntil, wantUntil)
	}
}

func TestEvaluateCombinesScopes(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	user := store.addUser("bob", nil)
	evaluator := NewTierEvaluator(store, store, nil)
	ctx := context.Background()

	store.Append(ctx, &models.PointLedgerEntry{
		UserID: user.ID, OrderID: uuid.New(), Scope: models.ScopePersonal,
		EntryType: models.EntryTypeCredit, Amount: 30,
	})
	store.Append(ctx, &models.PointLedgerEntry{
		UserID: user.ID, OrderID: uuid.New(), Scope: models.ScopeNetwork,
		EntryType: models.EntryTypeCredit, Amount: 25,
	})

	result, err := evaluator.Evaluate(ctx, user.ID, store.clock.Add(time.Hour))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if result.RecentTotal != 55 || result.Percent != models.DiscountSilver {
		t.Fatalf("got total %d percent %d, want 55 and 15", result.RecentTotal, result.Percent)
	}
}

func TestEvaluateIgnoresEntriesOutsideWindow(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	user := store.addUser("carol", nil)
	evaluator := NewTierEvaluator(store, store, nil)
	ctx := context.Background()

	now := store.clock
	stale := models.PointLedgerEntry{
		UserID: user.ID, OrderID: uuid.New(), Scope: models.ScopePersonal,
		EntryType: models.EntryTypeCredit, Amount: 500,
	}
	from, _ := TrailingWindow(now)
	stale.CreatedAt = from.Add(-time.Hour)
	store.Append(ctx, &stale)

	result, err := evaluator.Evaluate(ctx, user.ID, now)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if result.RecentTotal != 0 || result.Percent != models.DiscountNone {
		t.Fatalf("stale entry leaked into window: total %d percent %d", result.RecentTotal, result.Percent)
	}
}

func TestEvaluateSkipsWriteWhenUnchanged(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	user := store.addUser("dave", nil)
	evaluator := NewTierEvaluator(store, store, nil)

	result, err := evaluator.Evaluate(context.Background(), user.ID, store.clock)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if result.Changed {
		t.Fatal("expected no change for zero points")
	}
	if store.tierWrites != 0 {
		t.Fatalf("expected no tier writes, got %d", store.tierWrites)
	}
}

func TestEvaluateRetriesOnConflict(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	user := store.addUser("erin", nil)
	evaluator := NewTierEvaluator(store, store, nil)
	ctx := context.Background()

	store.Append(ctx, &models.PointLedgerEntry{
		UserID: user.ID, OrderID: uuid.New(), Scope: models.ScopePersonal,
		EntryType: models.EntryTypeCredit, Amount: 60,
	})

	store.mu.Lock()
	store.tierConflicts = 1
	store.mu.Unlock()

	result, err := evaluator.Evaluate(ctx, user.ID, store.clock.Add(time.Hour))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !result.Changed || result.Percent != models.DiscountSilver {
		t.Fatalf("expected retry to land the update, got changed %v percent %d", result.Changed, result.Percent)
	}
}

func TestEvaluateAcceptsStaleAfterRetryBudget(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	user := store.addUser("frank", nil)
	evaluator := NewTierEvaluator(store, store, nil)
	ctx := context.Background()

	store.Append(ctx, &models.PointLedgerEntry{
		UserID: user.ID, OrderID: uuid.New(), Scope: models.ScopePersonal,
		EntryType: models.EntryTypeCredit, Amount: 200,
	})

	store.mu.Lock()
	store.tierConflicts = tierUpdateRetries + 1
	store.mu.Unlock()

	result, err := evaluator.Evaluate(ctx, user.ID, store.clock.Add(time.Hour))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if result.Changed {
		t.Fatal("expected stale acceptance after exhausted retries")
	}
	if result.Percent != models.DiscountGold {
		t.Fatalf("computed percent = %d, want 30", result.Percent)
	}

	stored, _ := store.GetUser(ctx, user.ID)
	if stored.DiscountPercent != models.DiscountNone {
		t.Fatalf("stored tier should be untouched, got %d", stored.DiscountPercent)
	}
}

func TestEvaluateRestampsExpiredTier(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	user := store.addUser("gina", nil)
	ctx := context.Background()

	past := store.clock.Add(-time.Hour)
	store.mu.Lock()
	store.users[user.ID].DiscountValidUntil = &past
	store.mu.Unlock()

	evaluator := NewTierEvaluator(store, store, nil)
	result, err := evaluator.Evaluate(ctx, user.ID, store.clock)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if result.Changed {
		t.Fatal("percent did not change, Changed must be false")
	}

	stored, _ := store.GetUser(ctx, user.ID)
	if stored.DiscountValidUntil == nil || !stored.DiscountValidUntil.After(store.clock) {
		t.Fatalf("expired stamp was not refreshed: %v", stored.DiscountValidUntil)
	}
}

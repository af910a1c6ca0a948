package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/example/vitalux/internal/models"
)

var (
	// ErrUserNotFound is returned by stores when a user id resolves to nothing.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEntry marks an append that hit the ledger idempotency key.
	ErrDuplicateEntry = errors.New("duplicate ledger entry")
)

// UserStore is the persistence surface for members and their cached tier.
type UserStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	Downline(ctx context.Context, id uuid.UUID) ([]models.User, error)
	// Snapshot returns a point-in-time copy of every member, enough to
	// rebuild the referral forest in memory.
	Snapshot(ctx context.Context) ([]models.User, error)
	// UpdateTier writes the cached tier fields guarded by the version the
	// caller read. It reports false without error when another writer won.
	UpdateTier(ctx context.Context, id uuid.UUID, version int64, percent int, validUntil time.Time) (bool, error)
	// ExpiredTiers lists users whose discount_valid_until has passed.
	ExpiredTiers(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// LedgerStore is the append-only point ledger. There is deliberately no
// update or delete: corrections are reversal entries.
type LedgerStore interface {
	// Append inserts one entry, returning ErrDuplicateEntry when the
	// (order, user, scope, type) key already exists.
	Append(ctx context.Context, entry *models.PointLedgerEntry) error
	// SumInWindow aggregates amounts for one user and scope over [from, to).
	SumInWindow(ctx context.Context, userID uuid.UUID, scope string, from, to time.Time) (int, error)
	EntriesByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PointLedgerEntry, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.PointLedgerEntry, int64, error)
}

// SalesStore aggregates order revenue for the reporting path.
type SalesStore interface {
	// TotalsByUser returns per-user order totals for point-earning orders
	// placed in [from, to).
	TotalsByUser(ctx context.Context, from, to time.Time) (map[uuid.UUID]float64, error)
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/vitalux/internal/models"
	"github.com/example/vitalux/internal/services"
)

// Ledger is the gorm-backed services.LedgerStore. The table is
// append-mostly: no update or delete statement exists anywhere in the
// repository.
type Ledger struct {
	db *gorm.DB
}

// NewLedger constructs a Ledger repository.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Append inserts one immutable entry. The composite unique index on
// (order_id, user_id, scope, entry_type) turns a duplicate settlement into
// ErrDuplicateEntry instead of a second credit.
func (r *Ledger) Append(ctx context.Context, entry *models.PointLedgerEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return services.ErrDuplicateEntry
		}
		return err
	}
	return nil
}

// SumInWindow aggregates one user's entries for a scope over [from, to).
func (r *Ledger) SumInWindow(ctx context.Context, userID uuid.UUID, scope string, from, to time.Time) (int, error) {
	var total int
	err := r.db.WithContext(ctx).
		Model(&models.PointLedgerEntry{}).
		Where("user_id = ? AND scope = ? AND created_at >= ? AND created_at < ?", userID, scope, from, to).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

func (r *Ledger) EntriesByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PointLedgerEntry, error) {
	var entries []models.PointLedgerEntry
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at asc").
		Find(&entries).Error
	return entries, err
}

func (r *Ledger) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.PointLedgerEntry, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.PointLedgerEntry{}).
		Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.PointLedgerEntry
	if err := query.
		Order("created_at desc").
		Limit(limit).Offset(offset).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

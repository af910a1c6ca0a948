package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/vitalux/internal/models"
)

// Sales is the gorm-backed services.SalesStore.
type Sales struct {
	db *gorm.DB
}

// NewSales constructs a Sales repository.
func NewSales(db *gorm.DB) *Sales {
	return &Sales{db: db}
}

// TotalsByUser sums order totals per user for point-earning orders placed
// in [from, to). One grouped query feeds an entire report walk.
func (r *Sales) TotalsByUser(ctx context.Context, from, to time.Time) (map[uuid.UUID]float64, error) {
	type row struct {
		UserID uuid.UUID
		Total  float64
	}

	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("user_id, COALESCE(SUM(total_amount), 0) as total").
		Where("user_id IS NOT NULL AND status IN ? AND placed_at >= ? AND placed_at < ?",
			[]string{models.OrderStatusPaid, models.OrderStatusDelivered}, from, to).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[uuid.UUID]float64, len(rows))
	for _, r := range rows {
		totals[r.UserID] = r.Total
	}
	return totals, nil
}

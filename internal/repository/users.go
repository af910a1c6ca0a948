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

// Users is the gorm-backed services.UserStore.
type Users struct {
	db *gorm.DB
}

// NewUsers constructs a Users repository.
func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

func (r *Users) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *Users) Downline(ctx context.Context, id uuid.UUID) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("referrer_id = ?", id).
		Order("created_at asc").
		Find(&users).Error
	return users, err
}

func (r *Users) Snapshot(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Select("id", "referrer_id", "display_name", "referral_code", "created_at").
		Find(&users).Error
	return users, err
}

// UpdateTier writes the cached tier fields with a compare-and-swap on
// tier_version. A concurrent writer makes RowsAffected zero, reported to
// the caller as updated=false.
func (r *Users) UpdateTier(ctx context.Context, id uuid.UUID, version int64, percent int, validUntil time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND tier_version = ?", id, version).
		Updates(map[string]interface{}{
			"discount_percent":     percent,
			"discount_valid_until": validUntil,
			"tier_version":         version + 1,
			"updated_at":           time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Users) ExpiredTiers(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("discount_valid_until IS NOT NULL AND discount_valid_until < ?", now).
		Order("discount_valid_until asc").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

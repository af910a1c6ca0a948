package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/vitalux/internal/models"
)

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	db *gorm.DB
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

// DashboardStats returns aggregate statistics for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	var totalMembers int64
	if err := h.db.Model(&models.User{}).Count(&totalMembers).Error; err != nil {
		return err
	}

	var referredMembers int64
	if err := h.db.Model(&models.User{}).
		Where("referrer_id IS NOT NULL").
		Count(&referredMembers).Error; err != nil {
		return err
	}

	// Members by discount tier
	type tierCount struct {
		DiscountPercent int   `json:"discount_percent"`
		Count           int64 `json:"count"`
	}
	var tierCounts []tierCount
	if err := h.db.Model(&models.User{}).
		Select("discount_percent, count(*) as count").
		Group("discount_percent").
		Scan(&tierCounts).Error; err != nil {
		return err
	}

	membersByTier := make(map[int]int64)
	for _, tc := range tierCounts {
		membersByTier[tc.DiscountPercent] = tc.Count
	}

	var totalOrders int64
	if err := h.db.Model(&models.Order{}).Count(&totalOrders).Error; err != nil {
		return err
	}

	// Orders by status
	type statusCount struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	var statusCounts []statusCount
	if err := h.db.Model(&models.Order{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return err
	}

	ordersByStatus := make(map[string]int64)
	for _, sc := range statusCounts {
		ordersByStatus[sc.Status] = sc.Count
	}

	// Total revenue (sum of total_amount for non-cancelled orders)
	var totalRevenue float64
	if err := h.db.Model(&models.Order{}).
		Where("status != ?", models.OrderStatusCancelled).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&totalRevenue).Error; err != nil {
		return err
	}

	// Points issued, net of reversals
	var pointsIssued int64
	if err := h.db.Model(&models.PointLedgerEntry{}).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&pointsIssued).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_members":    totalMembers,
			"referred_members": referredMembers,
			"members_by_tier":  membersByTier,
			"total_orders":     totalOrders,
			"orders_by_status": ordersByStatus,
			"total_revenue":    totalRevenue,
			"points_issued":    pointsIssued,
		},
	})
}

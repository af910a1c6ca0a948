package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/vitalux/internal/middleware"
	"github.com/example/vitalux/internal/models"
	"github.com/example/vitalux/internal/services"
	"github.com/example/vitalux/internal/utils"
)

// PointsHandler exposes the member-facing points dashboard: window
// summaries, the chronological ledger, and the cached discount tier.
type PointsHandler struct {
	users  services.UserStore
	ledger services.LedgerStore
}

// NewPointsHandler constructs PointsHandler.
func NewPointsHandler(users services.UserStore, ledger services.LedgerStore) *PointsHandler {
	return &PointsHandler{users: users, ledger: ledger}
}

// Summary returns personal/network/total points for a window (the trailing
// tier window by default), plus the cached discount tier.
func (h *PointsHandler) Summary(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	now := time.Now()
	recentFrom, recentTo := services.TrailingWindow(now)

	from, to := recentFrom, recentTo
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid from timestamp")
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid to timestamp")
		}
		to = parsed
	}

	user, err := h.users.GetUser(c.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}

	personal, err := h.ledger.SumInWindow(c.Context(), userID, models.ScopePersonal, from, to)
	if err != nil {
		return err
	}
	network, err := h.ledger.SumInWindow(c.Context(), userID, models.ScopeNetwork, from, to)
	if err != nil {
		return err
	}

	recentPersonal, err := h.ledger.SumInWindow(c.Context(), userID, models.ScopePersonal, recentFrom, recentTo)
	if err != nil {
		return err
	}
	recentNetwork, err := h.ledger.SumInWindow(c.Context(), userID, models.ScopeNetwork, recentFrom, recentTo)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"personal_points":      personal,
			"network_points":       network,
			"total_points":         personal + network,
			"recent_total_points":  recentPersonal + recentNetwork,
			"discount_percent":     user.DiscountPercent,
			"discount_valid_until": user.DiscountValidUntil,
			"window": fiber.Map{
				"from": from,
				"to":   to,
			},
		},
	})
}

// Ledger returns the user's point entries, newest first.
func (h *PointsHandler) Ledger(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	entries, total, err := h.ledger.ListByUser(c.Context(), userID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    entries,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// Discount is the cheap read consumed by checkout: the stored tier, never a
// recomputation.
func (h *PointsHandler) Discount(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	user, err := h.users.GetUser(c.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"discount_percent":     user.DiscountPercent,
			"discount_valid_until": user.DiscountValidUntil,
		},
	})
}

package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/vitalux/internal/middleware"
	"github.com/example/vitalux/internal/services"
)

// NetworkHandler exposes the referral network read paths: one-level
// downlines for members and recursive sales roll-ups for the admin
// dashboard.
type NetworkHandler struct {
	directory  *services.Directory
	aggregator *services.Aggregator
}

// NewNetworkHandler constructs NetworkHandler.
func NewNetworkHandler(directory *services.Directory, aggregator *services.Aggregator) *NetworkHandler {
	return &NetworkHandler{directory: directory, aggregator: aggregator}
}

// Downline returns the authenticated user's direct referees.
func (h *NetworkHandler) Downline(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	users, err := h.directory.Downline(c.Context(), userID)
	if err != nil {
		return err
	}

	members := make([]fiber.Map, 0, len(users))
	for _, user := range users {
		members = append(members, fiber.Map{
			"id":            user.ID,
			"display_name":  user.DisplayName,
			"referral_code": user.ReferralCode,
			"joined_at":     user.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{"success": true, "data": members})
}

// Tree returns the recursive subtree sales report for one root (or every
// root) over a calendar month. Oversized or malformed directories produce a
// partial tree with a truncation flag instead of an error.
func (h *NetworkHandler) Tree(c *fiber.Ctx) error {
	from, to, err := monthWindow(c.Query("month"), c.Query("year"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	root := c.Query("root", "all")
	if root == "all" {
		reports, truncated, err := h.aggregator.AllRoots(c.Context(), from, to)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": reports, "truncated": truncated})
	}

	rootID, err := uuid.Parse(root)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid root id")
	}

	report, truncated, err := h.aggregator.Subtree(c.Context(), rootID, from, to)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": report, "truncated": truncated})
}

// monthWindow resolves month/year query params to an inclusive-exclusive
// calendar-month window, defaulting to the current month.
func monthWindow(monthParam, yearParam string) (time.Time, time.Time, error) {
	now := time.Now()
	month := int(now.Month())
	year := now.Year()

	if monthParam != "" {
		parsed, err := strconv.Atoi(monthParam)
		if err != nil || parsed < 1 || parsed > 12 {
			return time.Time{}, time.Time{}, errors.New("invalid month")
		}
		month = parsed
	}
	if yearParam != "" {
		parsed, err := strconv.Atoi(yearParam)
		if err != nil || parsed < 2000 || parsed > 2100 {
			return time.Time{}, time.Time{}, errors.New("invalid year")
		}
		year = parsed
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0), nil
}

package handlers

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/vitalux/internal/middleware"
	"github.com/example/vitalux/internal/models"
	"github.com/example/vitalux/internal/services"
	"github.com/example/vitalux/internal/utils"
)

// OrderHandler manages order intake and status transitions. Settlement and
// reversal hang off the status transition; their failures are logged, never
// propagated, so point bookkeeping cannot block order fulfillment.
type OrderHandler struct {
	db         *gorm.DB
	settlement *services.Settlement
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(db *gorm.DB, settlement *services.Settlement) *OrderHandler {
	return &OrderHandler{db: db, settlement: settlement}
}

type orderItemRequest struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
	PointValue  int     `json:"point_value"`
}

type createOrderRequest struct {
	Currency    string             `json:"currency"`
	Items       []orderItemRequest `json:"items"`
	TotalAmount float64            `json:"total_amount"`
	Notes       string             `json:"notes"`
}

// CreateOrder allows authenticated users to place an order. Item point
// values arrive as a snapshot of the product's current value and are never
// corrected retroactively.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.Items) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "order has no items")
	}

	order := models.Order{
		UserID:   &userID,
		Currency: req.Currency,
		Notes:    req.Notes,
		Status:   models.OrderStatusPending,
		PlacedAt: time.Now(),
	}

	if order.Currency == "" {
		order.Currency = "USD"
	}

	var subtotal float64
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "item quantity must be positive")
		}

		lineTotal := item.LineTotal
		if lineTotal == 0 {
			lineTotal = item.UnitPrice * float64(item.Quantity)
		}

		orderItem := models.OrderItem{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   lineTotal,
			PointValue:  item.PointValue,
		}

		if item.ProductID != "" {
			if id, err := uuid.Parse(item.ProductID); err == nil {
				orderItem.ProductID = &id
			}
		}

		subtotal += lineTotal
		order.Items = append(order.Items, orderItem)
	}

	order.Subtotal = subtotal
	order.TotalAmount = req.TotalAmount
	if order.TotalAmount == 0 {
		order.TotalAmount = subtotal
	}
	order.OrderNumber = generateOrderNumber()

	if err := h.db.Create(&order).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":           order.ID,
			"order_number": order.OrderNumber,
			"status":       order.Status,
			"placed_at":    order.PlacedAt,
			"total":        order.TotalAmount,
			"currency":     order.Currency,
			"points":       order.PersonalPoints(),
		},
	})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

var validStatuses = map[string]bool{
	models.OrderStatusPending:   true,
	models.OrderStatusPaid:      true,
	models.OrderStatusDelivered: true,
	models.OrderStatusCancelled: true,
}

// UpdateStatus transitions an order. Entering a point-earning status
// settles the order's points; cancelling a previously settled order issues
// offsetting reversal entries. Both are idempotent on the ledger key, so
// duplicate transition events stay harmless.
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if !validStatuses[req.Status] {
		return fiber.NewError(fiber.StatusBadRequest, "unknown status")
	}

	var order models.Order
	if err := h.db.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	if order.Status == req.Status {
		return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"id": order.ID, "status": order.Status}})
	}

	previous := order.Status
	if err := h.db.Model(&models.Order{}).Where("id = ?", order.ID).
		Updates(map[string]interface{}{"status": req.Status, "updated_at": time.Now()}).Error; err != nil {
		return err
	}
	order.Status = req.Status

	switch {
	case models.PointEarningStatus(req.Status) && !models.PointEarningStatus(previous):
		if err := h.settlement.Settle(c.Context(), &order); err != nil {
			log.Printf("[Order] settlement failed for order %s: %v", order.OrderNumber, err)
		}
	case req.Status == models.OrderStatusCancelled:
		if err := h.settlement.Reverse(c.Context(), &order); err != nil {
			log.Printf("[Order] reversal failed for order %s: %v", order.OrderNumber, err)
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"id": order.ID, "status": order.Status},
	})
}

// ListOrders returns orders for authenticated user.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	query := h.db.Where("user_id = ?", userID).Model(&models.Order{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := query.Preload("Items").
		Order("placed_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetOrder returns a single order for the authenticated user.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var order models.Order
	if err := h.db.Preload("Items").
		First(&order, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

func generateOrderNumber() string {
	return fmt.Sprintf("#%d", time.Now().UnixNano()%1000000000)
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Order statuses. Points are settled when an order first enters a
// point-earning status and reversed when it is cancelled afterwards.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// PointEarningStatus reports whether orders in the given status generate
// network points.
func PointEarningStatus(status string) bool {
	return status == OrderStatusPaid || status == OrderStatusDelivered
}

type Order struct {
	BaseModel
	UserID      *uuid.UUID  `gorm:"type:uuid;index" json:"user_id,omitempty"`
	User        *User       `json:"user,omitempty"`
	OrderNumber string      `gorm:"uniqueIndex" json:"order_number"`
	Status      string      `gorm:"index" json:"status"`
	PlacedAt    time.Time   `json:"placed_at"`
	Subtotal    float64     `json:"subtotal"`
	TotalAmount float64     `json:"total_amount"`
	Currency    string      `json:"currency"`
	Notes       string      `json:"notes"`
	Items       []OrderItem `json:"items,omitempty"`
}

// PersonalPoints is the point value of the whole order: quantity times the
// per-item point value snapshot taken at intake.
func (o *Order) PersonalPoints() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity * item.PointValue
	}
	return total
}

type OrderItem struct {
	BaseModel
	OrderID     uuid.UUID  `gorm:"type:uuid;index" json:"order_id"`
	ProductID   *uuid.UUID `gorm:"type:uuid" json:"product_id"`
	ProductName string     `json:"product_name"`
	Quantity    int        `json:"quantity"`
	UnitPrice   float64    `json:"unit_price"`
	LineTotal   float64    `json:"line_total"`
	// PointValue is copied from the product at intake and never corrected
	// retroactively when the product's point value changes.
	PointValue int `json:"point_value"`
}

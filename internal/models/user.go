package models

import (
	"time"

	"github.com/google/uuid"
)

// Discount tiers a user can hold. The stored value is a cached projection
// of the trailing-window point total; the ledger stays authoritative.
const (
	DiscountNone   = 0
	DiscountSilver = 15
	DiscountGold   = 30
)

// User represents a network member. ReferrerID is a non-owning back
// reference: deleting a referrer nulls the pointer on referees, it never
// cascades to them.
type User struct {
	BaseModel
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Phone        string `gorm:"uniqueIndex" json:"phone"`
	DisplayName  string `json:"display_name"`
	PasswordHash string `json:"-"`

	ReferralCode string     `gorm:"uniqueIndex" json:"referral_code"`
	ReferrerID   *uuid.UUID `gorm:"type:uuid;index" json:"referrer_id,omitempty"`
	Referrer     *User      `gorm:"foreignKey:ReferrerID;constraint:OnDelete:SET NULL" json:"referrer,omitempty"`

	DiscountPercent    int        `json:"discount_percent"`
	DiscountValidUntil *time.Time `json:"discount_valid_until,omitempty"`
	// TierVersion guards the discount fields against concurrent
	// read-modify-write during simultaneous settlements.
	TierVersion int64 `json:"-"`

	Orders        []Order            `json:"orders,omitempty"`
	LedgerEntries []PointLedgerEntry `json:"ledger_entries,omitempty"`
}

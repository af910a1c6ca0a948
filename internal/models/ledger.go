package models

import (
	"github.com/google/uuid"
)

// Scopes of a point ledger entry.
const (
	ScopePersonal = "personal"
	ScopeNetwork  = "network"
)

// Entry types. A reversal offsets an earlier credit with a negated amount
// when a settled order is cancelled.
const (
	EntryTypeCredit   = "credit"
	EntryTypeReversal = "reversal"
)

// PointLedgerEntry is an immutable point-earning event. The ledger is
// append-only: no update or delete path exists, corrections are issued as
// reversal entries. The composite unique index is the idempotency key for
// settlements, so a duplicate status-change event becomes a no-op insert.
type PointLedgerEntry struct {
	BaseModel
	UserID      uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_ledger_order_user_scope_type" json:"user_id"`
	OrderID     uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_ledger_order_user_scope_type" json:"order_id"`
	Scope       string    `gorm:"uniqueIndex:idx_ledger_order_user_scope_type" json:"scope"`
	EntryType   string    `gorm:"default:credit;uniqueIndex:idx_ledger_order_user_scope_type" json:"entry_type"`
	Amount      int       `json:"amount"`
	Description string    `json:"description"`
}

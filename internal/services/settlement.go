package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/vitalux/internal/models"
)

// Settlement is the only write path into the point ledger. It converts a
// completed order into ledger entries for the purchaser (personal scope)
// and the purchaser's direct upline (network scope, exactly one level).
type Settlement struct {
	directory *Directory
	ledger    LedgerStore
	tiers     *TierEvaluator
	users     UserStore
	nowFn     func() time.Time
}

// NewSettlement constructs a Settlement processor.
func NewSettlement(directory *Directory, ledger LedgerStore, tiers *TierEvaluator, users UserStore) *Settlement {
	return &Settlement{
		directory: directory,
		ledger:    ledger,
		tiers:     tiers,
		users:     users,
		nowFn:     time.Now,
	}
}

// Settle credits points for one order transitioning into a point-earning
// status. Guest orders earn nothing. Calling it twice for the same order is
// a no-op: the ledger's unique key absorbs the duplicate appends. A missing
// beneficiary is logged and skipped so the surrounding order-status
// transition never fails over bookkeeping.
func (p *Settlement) Settle(ctx context.Context, order *models.Order) error {
	if order.UserID == nil {
		log.Printf("[Settlement] order %s has no user, skipping points", order.OrderNumber)
		return nil
	}

	personal := order.PersonalPoints()
	if personal <= 0 {
		return nil
	}

	purchaser, err := p.users.GetUser(ctx, *order.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			log.Printf("[Settlement] order %s references missing user %s, skipping points", order.OrderNumber, *order.UserID)
			return nil
		}
		return err
	}

	p.append(ctx, &models.PointLedgerEntry{
		UserID:      purchaser.ID,
		OrderID:     order.ID,
		Scope:       models.ScopePersonal,
		EntryType:   models.EntryTypeCredit,
		Amount:      personal,
		Description: fmt.Sprintf("purchase %s", order.OrderNumber),
	})

	referrer, err := p.directory.Upline(ctx, purchaser.ID)
	if err != nil {
		return err
	}
	if referrer != nil {
		// Network credit propagates exactly one level up, never to the
		// whole upline chain.
		p.append(ctx, &models.PointLedgerEntry{
			UserID:      referrer.ID,
			OrderID:     order.ID,
			Scope:       models.ScopeNetwork,
			EntryType:   models.EntryTypeCredit,
			Amount:      personal,
			Description: fmt.Sprintf("network credit from %s, order %s", purchaser.DisplayName, order.OrderNumber),
		})
	}

	now := p.nowFn()
	p.tiers.EvaluateQuietly(ctx, purchaser.ID, now)
	if referrer != nil {
		p.tiers.EvaluateQuietly(ctx, referrer.ID, now)
	}

	return nil
}

// Reverse issues offsetting entries for a settled order that was cancelled.
// Beneficiaries are taken from the ledger itself, so a referral edge that
// changed since settlement cannot misdirect the reversal. Reversing an
// unsettled or already-reversed order is a no-op.
func (p *Settlement) Reverse(ctx context.Context, order *models.Order) error {
	entries, err := p.ledger.EntriesByOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	type key struct {
		userID uuid.UUID
		scope  string
	}
	net := map[key]int{}
	for _, entry := range entries {
		net[key{entry.UserID, entry.Scope}] += entry.Amount
	}

	affected := make([]uuid.UUID, 0, len(net))
	for k, amount := range net {
		if amount <= 0 {
			continue
		}
		p.append(ctx, &models.PointLedgerEntry{
			UserID:      k.userID,
			OrderID:     order.ID,
			Scope:       k.scope,
			EntryType:   models.EntryTypeReversal,
			Amount:      -amount,
			Description: fmt.Sprintf("reversal for cancelled order %s", order.OrderNumber),
		})
		affected = append(affected, k.userID)
	}

	now := p.nowFn()
	for _, userID := range affected {
		p.tiers.EvaluateQuietly(ctx, userID, now)
	}

	return nil
}

// append writes one ledger entry, treating the idempotency-key collision as
// a silent no-op.
func (p *Settlement) append(ctx context.Context, entry *models.PointLedgerEntry) {
	if err := p.ledger.Append(ctx, entry); err != nil {
		if errors.Is(err, ErrDuplicateEntry) {
			log.Printf("[Settlement] %s/%s entry for order %s already exists, skipping", entry.Scope, entry.EntryType, entry.OrderID)
			return
		}
		log.Printf("[Settlement] failed to append %s entry for order %s: %v", entry.Scope, entry.OrderID, err)
	}
}

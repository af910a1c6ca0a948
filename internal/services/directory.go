package services

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/example/vitalux/internal/models"
)

// ErrReferralCycle is returned when a referrer assignment would close a
// loop in the referral forest.
var ErrReferralCycle = errors.New("referrer assignment would create a cycle")

// maxReferralDepth bounds upline walks. Chains deeper than this are treated
// as corrupt data.
const maxReferralDepth = 64

// Directory resolves upline and downline relationships. It only reads
// referral edges; they are created once at registration.
type Directory struct {
	users UserStore
}

// NewDirectory constructs a Directory.
func NewDirectory(users UserStore) *Directory {
	return &Directory{users: users}
}

// Upline returns the direct referrer of a user, or nil for roots. A
// referrer id pointing at a deleted user is logged and treated as a root
// rather than failing the read.
func (d *Directory) Upline(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := d.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.ReferrerID == nil {
		return nil, nil
	}

	referrer, err := d.users.GetUser(ctx, *user.ReferrerID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			log.Printf("[Directory] user %s has dangling referrer %s, treating as root", userID, *user.ReferrerID)
			return nil, nil
		}
		return nil, err
	}
	return referrer, nil
}

// Downline returns the direct referees of a user, one level only.
func (d *Directory) Downline(ctx context.Context, userID uuid.UUID) ([]models.User, error) {
	return d.users.Downline(ctx, userID)
}

// ValidateReferrer checks that attaching newUserID under referrerID keeps
// the forest acyclic. It walks the referrer's upline chain with a visited
// set so even already-corrupt data cannot loop it.
func (d *Directory) ValidateReferrer(ctx context.Context, newUserID, referrerID uuid.UUID) error {
	if newUserID == referrerID {
		return ErrReferralCycle
	}

	visited := map[uuid.UUID]bool{referrerID: true}
	current := referrerID
	for depth := 0; depth < maxReferralDepth; depth++ {
		user, err := d.users.GetUser(ctx, current)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				// Dangling pointer terminates the chain.
				return nil
			}
			return err
		}
		if user.ReferrerID == nil {
			return nil
		}
		next := *user.ReferrerID
		if next == newUserID || visited[next] {
			return ErrReferralCycle
		}
		visited[next] = true
		current = next
	}

	log.Printf("[Directory] referrer chain for %s exceeds depth %d, rejecting", referrerID, maxReferralDepth)
	return ErrReferralCycle
}

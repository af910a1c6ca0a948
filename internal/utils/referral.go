package utils

import (
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// NewReferralCode builds a vanity referral code from the user's display
// name plus a short random suffix to keep codes unique.
func NewReferralCode(displayName string) string {
	base := slug.Make(displayName)
	if base == "" {
		base = "member"
	}
	if len(base) > 24 {
		base = base[:24]
	}
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return base + "-" + suffix
}

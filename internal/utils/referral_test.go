package utils

import (
	"strings"
	"testing"
)

func TestNewReferralCodeSlugsDisplayName(t *testing.T) {
	t.Parallel()

	code := NewReferralCode("Élodie van Dam")
	if !strings.HasPrefix(code, "elodie-van-dam-") {
		t.Fatalf("code = %q, want slugged name prefix", code)
	}
}

func TestNewReferralCodeEmptyName(t *testing.T) {
	t.Parallel()

	code := NewReferralCode("  ")
	if !strings.HasPrefix(code, "member-") {
		t.Fatalf("code = %q, want fallback prefix", code)
	}
}

func TestNewReferralCodeUniqueness(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code := NewReferralCode("Jane Doe")
		if seen[code] {
			t.Fatalf("duplicate code %q", code)
		}
		seen[code] = true
	}
}

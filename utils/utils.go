package utils

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Slugify turns a product or category name into a URL slug:
// "Amla Ginger Shot" -> "amla-ginger-shot".
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteRune('-')
			lastDash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// NewOrderNumber builds a human-readable order reference like NJ-20260829-4F2A91.
// The random suffix keeps same-day orders distinguishable on delivery slips.
func NewOrderNumber(now time.Time) string {
	suffix := make([]byte, 3)
	if _, err := rand.Read(suffix); err != nil {
		// Fall back to the clock; uniqueness is still enforced by the DB index.
		return fmt.Sprintf("NJ-%s-%06d", now.Format("20060102"), now.Nanosecond()%1000000)
	}
	return fmt.Sprintf("NJ-%s-%X", now.Format("20060102"), suffix)
}

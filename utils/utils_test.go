package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Amla Ginger Shot", "amla-ginger-shot"},
		{"  Green Detox  ", "green-detox"},
		{"ABC Juice 500ml", "abc-juice-500ml"},
		{"Beet & Carrot", "beet-carrot"},
		{"a--b", "a-b"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), "input %q", tt.in)
	}
}

func TestNewOrderNumber(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)

	n := NewOrderNumber(now)
	assert.Regexp(t, `^NJ-20260829-[0-9A-F]{6}$`, n)

	// Same-second orders should still differ.
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		seen[NewOrderNumber(now)] = true
	}
	assert.Greater(t, len(seen), 1)
}

package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"pending", "confirmed", "out_for_delivery", "delivered", "cancelled"} {
		status, err := ParseStatus(valid)
		assert.NoError(t, err)
		assert.Equal(t, Status(valid), status)
	}

	_, err := ParseStatus("shipped")
	assert.Error(t, err)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		ok   bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusOutForDelivery, false},
		{StatusPending, StatusDelivered, false},

		{StatusConfirmed, StatusOutForDelivery, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusConfirmed, StatusDelivered, false},

		{StatusOutForDelivery, StatusDelivered, true},
		{StatusOutForDelivery, StatusCancelled, false},
		{StatusOutForDelivery, StatusConfirmed, false},

		// Terminal states.
		{StatusDelivered, StatusPending, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

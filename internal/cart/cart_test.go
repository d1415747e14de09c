package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubtotal(t *testing.T) {
	c := &Cart{}
	assert.Equal(t, 0, c.Subtotal())

	c.Items = []*Item{
		{UnitPriceCents: 24900, Quantity: 2},
		{UnitPriceCents: 9900, Quantity: 1},
	}
	assert.Equal(t, 24900*2+9900, c.Subtotal())
}

func TestLineTotalCents(t *testing.T) {
	item := &Item{UnitPriceCents: 14900, Quantity: 3}
	assert.Equal(t, 44700, item.LineTotalCents())
}

package cart

import (
	"time"

	"github.com/google/uuid"
)

type Item struct {
	ID             uuid.UUID `json:"id" db:"id"`
	CartID         uuid.UUID `json:"cart_id" db:"cart_id"`
	ProductID      uuid.UUID `json:"product_id" db:"product_id"`
	ProductName    string    `json:"product_name" db:"product_name"`
	ImageURL       string    `json:"image_url" db:"image_url"`
	UnitPriceCents int       `json:"unit_price_cents" db:"unit_price_cents"`
	Quantity       int       `json:"quantity" db:"quantity"`
	AddedAt        time.Time `json:"added_at" db:"added_at"`
}

func (i *Item) LineTotalCents() int {
	return i.UnitPriceCents * i.Quantity
}

type Cart struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	Items         []*Item   `json:"items"`
	SubtotalCents int       `json:"subtotal_cents"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Subtotal recomputes the cart subtotal from its items. Prices are snapshots
// taken when the item was added.
func (c *Cart) Subtotal() int {
	total := 0
	for _, item := range c.Items {
		total += item.LineTotalCents()
	}
	return total
}

type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity"`
}

type UpdateItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity"`
}

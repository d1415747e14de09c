package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// CanTransition encodes the delivery pipeline. Orders move forward only, and
// cancellation is allowed until the rider leaves.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusOutForDelivery || to == StatusCancelled
	case StatusOutForDelivery:
		return to == StatusDelivered
	}
	return false
}

// PaymentCOD is the only supported payment method. Collection happens at the
// door; no charge is made at checkout.
const PaymentCOD = "cash_on_delivery"

var (
	ErrNotFound          = errors.New("order not found")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

type Item struct {
	ID             uuid.UUID `json:"id" db:"id"`
	OrderID        uuid.UUID `json:"order_id" db:"order_id"`
	ProductID      uuid.UUID `json:"product_id" db:"product_id"`
	ProductName    string    `json:"product_name" db:"product_name"`
	UnitPriceCents int       `json:"unit_price_cents" db:"unit_price_cents"`
	Quantity       int       `json:"quantity" db:"quantity"`
}

type Address struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Label     string    `json:"label" db:"label"`
	Recipient string    `json:"recipient" db:"recipient"`
	Phone     string    `json:"phone" db:"phone"`
	Line1     string    `json:"line1" db:"line1"`
	Line2     *string   `json:"line2" db:"line2"`
	City      string    `json:"city" db:"city"`
	Pincode   string    `json:"pincode" db:"pincode"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Order struct {
	ID                uuid.UUID `json:"id" db:"id"`
	UserID            uuid.UUID `json:"user_id" db:"user_id"`
	OrderNumber       string    `json:"order_number" db:"order_number"`
	Status            Status    `json:"status" db:"status"`
	PaymentMethod     string    `json:"payment_method" db:"payment_method"`
	Recipient         string    `json:"recipient" db:"recipient"`
	Phone             string    `json:"phone" db:"phone"`
	AddressLine       string    `json:"address_line" db:"address_line"`
	City              string    `json:"city" db:"city"`
	Pincode           string    `json:"pincode" db:"pincode"`
	SubtotalCents     int       `json:"subtotal_cents" db:"subtotal_cents"`
	DeliveryFeeCents  int       `json:"delivery_fee_cents" db:"delivery_fee_cents"`
	TotalCents        int       `json:"total_cents" db:"total_cents"`
	Items             []*Item   `json:"items"`
	PlacedAt          time.Time `json:"placed_at" db:"placed_at"`
	StatusUpdatedAt   time.Time `json:"status_updated_at" db:"status_updated_at"`
}

type CheckoutRequest struct {
	AddressID string `json:"address_id,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Line1     string `json:"line1,omitempty"`
	Line2     string `json:"line2,omitempty"`
	City      string `json:"city,omitempty"`
	Pincode   string `json:"pincode,omitempty"`
}

type AddAddressRequest struct {
	Label     string `json:"label"`
	Recipient string `json:"recipient" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
	Line1     string `json:"line1" validate:"required"`
	Line2     string `json:"line2"`
	City      string `json:"city" validate:"required"`
	Pincode   string `json:"pincode" validate:"required"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

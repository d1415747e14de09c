package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"navyaJuicesAPI/internal/notification"
	"navyaJuicesAPI/internal/order"
	"navyaJuicesAPI/utils"
)

var ErrAddressNotFound = errors.New("address not found")

const defaultDeliveryFeeCents = 4000 // ₹40

type OrderService struct {
	db            *pgxpool.Pool
	notifications *NotificationService
}

func NewOrderService(db *pgxpool.Pool, notifications *NotificationService) *OrderService {
	return &OrderService{db: db, notifications: notifications}
}

func deliveryFeeCents() int {
	if v := os.Getenv("DELIVERY_FEE_CENTS"); v != "" {
		if fee, err := strconv.Atoi(v); err == nil && fee >= 0 {
			return fee
		}
	}
	return defaultDeliveryFeeCents
}

// Checkout converts the user's cart into a cash-on-delivery order. The whole
// read-snapshot-insert-clear sequence runs in one transaction so a failure
// leaves both the cart and the orders table untouched.
func (s *OrderService) Checkout(ctx context.Context, userID uuid.UUID, req *order.CheckoutRequest) (*order.Order, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	recipient, phone, addressLine, city, pincode, err := s.resolveAddress(ctx, tx, userID, req)
	if err != nil {
		return nil, err
	}

	// Lock the cart rows so a concurrent checkout of the same cart serializes.
	rows, err := tx.Query(ctx, `
		SELECT ci.product_id, p.name, ci.unit_price_cents, ci.quantity, p.in_stock, p.is_active
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = (SELECT id FROM carts WHERE user_id = $1)
		FOR UPDATE OF ci
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}

	var items []*order.Item
	subtotal := 0
	for rows.Next() {
		var item order.Item
		var inStock, isActive bool
		err := rows.Scan(&item.ProductID, &item.ProductName, &item.UnitPriceCents, &item.Quantity, &inStock, &isActive)
		if err != nil {
			rows.Close()
			return nil, err
		}
		if !inStock || !isActive {
			rows.Close()
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, item.ProductName)
		}
		subtotal += item.UnitPriceCents * item.Quantity
		items = append(items, &item)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, order.ErrEmptyCart
	}

	now := time.Now()
	o := &order.Order{
		ID:               uuid.New(),
		UserID:           userID,
		OrderNumber:      utils.NewOrderNumber(now),
		Status:           order.StatusPending,
		PaymentMethod:    order.PaymentCOD,
		Recipient:        recipient,
		Phone:            phone,
		AddressLine:      addressLine,
		City:             city,
		Pincode:          pincode,
		SubtotalCents:    subtotal,
		DeliveryFeeCents: deliveryFeeCents(),
		Items:            items,
		PlacedAt:         now,
		StatusUpdatedAt:  now,
	}
	o.TotalCents = o.SubtotalCents + o.DeliveryFeeCents

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, order_number, status, payment_method,
			recipient, phone, address_line, city, pincode,
			subtotal_cents, delivery_fee_cents, total_cents, placed_at, status_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, o.ID, o.UserID, o.OrderNumber, string(o.Status), o.PaymentMethod,
		o.Recipient, o.Phone, o.AddressLine, o.City, o.Pincode,
		o.SubtotalCents, o.DeliveryFeeCents, o.TotalCents, o.PlacedAt, o.StatusUpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range items {
		item.ID = uuid.New()
		item.OrderID = o.ID
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, product_name, unit_price_cents, quantity)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, item.ID, item.OrderID, item.ProductID, item.ProductName, item.UnitPriceCents, item.Quantity)
		if err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM cart_items WHERE cart_id = (SELECT id FROM carts WHERE user_id = $1)`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return o, nil
}

func (s *OrderService) resolveAddress(ctx context.Context, tx pgx.Tx, userID uuid.UUID, req *order.CheckoutRequest) (recipient, phone, addressLine, city, pincode string, err error) {
	if req.AddressID != "" {
		addrID, perr := uuid.Parse(req.AddressID)
		if perr != nil {
			return "", "", "", "", "", fmt.Errorf("invalid address ID: %w", perr)
		}
		var line2 *string
		err = tx.QueryRow(ctx, `
			SELECT recipient, phone, line1, line2, city, pincode
			FROM addresses WHERE id = $1 AND user_id = $2
		`, addrID, userID).Scan(&recipient, &phone, &addressLine, &line2, &city, &pincode)
		if err != nil {
			if err == pgx.ErrNoRows {
				return "", "", "", "", "", ErrAddressNotFound
			}
			return "", "", "", "", "", fmt.Errorf("failed to load address: %w", err)
		}
		if line2 != nil && *line2 != "" {
			addressLine += ", " + *line2
		}
		return recipient, phone, addressLine, city, pincode, nil
	}

	if req.Recipient == "" || req.Phone == "" || req.Line1 == "" || req.City == "" || req.Pincode == "" {
		return "", "", "", "", "", fmt.Errorf("delivery address is incomplete")
	}
	addressLine = req.Line1
	if req.Line2 != "" {
		addressLine += ", " + req.Line2
	}
	return req.Recipient, req.Phone, addressLine, req.City, req.Pincode, nil
}

const orderColumns = `
	id, user_id, order_number, status, payment_method,
	recipient, phone, address_line, city, pincode,
	subtotal_cents, delivery_fee_cents, total_cents, placed_at, status_updated_at`

func scanOrder(row pgx.Row) (*order.Order, error) {
	var o order.Order
	var status string
	err := row.Scan(
		&o.ID, &o.UserID, &o.OrderNumber, &status, &o.PaymentMethod,
		&o.Recipient, &o.Phone, &o.AddressLine, &o.City, &o.Pincode,
		&o.SubtotalCents, &o.DeliveryFeeCents, &o.TotalCents, &o.PlacedAt, &o.StatusUpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status, err = order.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOrders returns the user's order history, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID) ([]*order.Order, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY placed_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*order.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	for _, o := range orders {
		if err := s.loadItems(ctx, o); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// GetOrder loads one order. userID == uuid.Nil skips the ownership check and
// is reserved for admin callers.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*order.Order, error) {
	o, err := scanOrder(s.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if userID != uuid.Nil && o.UserID != userID {
		return nil, order.ErrNotFound
	}
	if err := s.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *OrderService) loadItems(ctx context.Context, o *order.Order) error {
	rows, err := s.db.Query(ctx, `
		SELECT id, order_id, product_id, product_name, unit_price_cents, quantity
		FROM order_items WHERE order_id = $1
	`, o.ID)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	o.Items = []*order.Item{}
	for rows.Next() {
		var item order.Item
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.UnitPriceCents, &item.Quantity)
		if err != nil {
			return err
		}
		o.Items = append(o.Items, &item)
	}
	return rows.Err()
}

// CancelOrder lets the owner back out while the order is still pending or
// confirmed.
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (*order.Order, error) {
	o, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanTransition(o.Status, order.StatusCancelled) {
		return nil, order.ErrInvalidTransition
	}
	return s.applyStatus(ctx, o, order.StatusCancelled)
}

// ListAllOrders is the admin back-office listing, optionally filtered by status.
func (s *OrderService) ListAllOrders(ctx context.Context, status string, limit, offset int) ([]*order.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := `SELECT ` + orderColumns + ` FROM orders`
	args := []any{}
	if status != "" {
		if _, err := order.ParseStatus(status); err != nil {
			return nil, err
		}
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY placed_at DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*order.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateOrderStatus advances an order through the delivery pipeline and tells
// the customer about it.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, to order.Status) (*order.Order, error) {
	o, err := s.GetOrder(ctx, uuid.Nil, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanTransition(o.Status, to) {
		return nil, order.ErrInvalidTransition
	}
	return s.applyStatus(ctx, o, to)
}

func (s *OrderService) applyStatus(ctx context.Context, o *order.Order, to order.Status) (*order.Order, error) {
	// The WHERE clause re-checks the previous status so two admins racing on
	// the same order cannot double-apply a transition.
	ct, err := s.db.Exec(ctx, `
		UPDATE orders SET status = $3, status_updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, o.ID, string(o.Status), string(to))
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, order.ErrInvalidTransition
	}

	from := o.Status
	o.Status = to
	o.StatusUpdatedAt = time.Now()

	if s.notifications != nil && to != order.StatusCancelled {
		err := s.notifications.CreateNotification(ctx, &notification.CreateNotificationRequest{
			UserID:  o.UserID,
			Type:    notification.TypeOrderStatus,
			Title:   fmt.Sprintf("Order %s %s", o.OrderNumber, statusLabel(to)),
			Message: statusMessage(o, to),
			Data:    map[string]any{"order_id": o.ID.String(), "status": string(to)},
		})
		if err != nil {
			log.Printf("order: failed to notify user %s about %s -> %s: %v", o.UserID, from, to, err)
		}
	}

	return o, nil
}

// Address book.

func (s *OrderService) ListAddresses(ctx context.Context, userID uuid.UUID) ([]*order.Address, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, label, recipient, phone, line1, line2, city, pincode, created_at
		FROM addresses WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	defer rows.Close()

	addresses := []*order.Address{}
	for rows.Next() {
		var a order.Address
		err := rows.Scan(&a.ID, &a.UserID, &a.Label, &a.Recipient, &a.Phone,
			&a.Line1, &a.Line2, &a.City, &a.Pincode, &a.CreatedAt)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, &a)
	}
	return addresses, rows.Err()
}

func (s *OrderService) AddAddress(ctx context.Context, userID uuid.UUID, req *order.AddAddressRequest) (*order.Address, error) {
	a := &order.Address{
		ID:        uuid.New(),
		UserID:    userID,
		Label:     req.Label,
		Recipient: req.Recipient,
		Phone:     req.Phone,
		Line1:     req.Line1,
		City:      req.City,
		Pincode:   req.Pincode,
		CreatedAt: time.Now(),
	}
	if a.Label == "" {
		a.Label = "Home"
	}
	if req.Line2 != "" {
		a.Line2 = &req.Line2
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO addresses (id, user_id, label, recipient, phone, line1, line2, city, pincode, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, a.ID, a.UserID, a.Label, a.Recipient, a.Phone, a.Line1, a.Line2, a.City, a.Pincode, a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add address: %w", err)
	}
	return a, nil
}

func (s *OrderService) DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	ct, err := s.db.Exec(ctx,
		`DELETE FROM addresses WHERE id = $1 AND user_id = $2`, addressID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrAddressNotFound
	}
	return nil
}

func statusLabel(s order.Status) string {
	switch s {
	case order.StatusConfirmed:
		return "confirmed"
	case order.StatusOutForDelivery:
		return "is out for delivery"
	case order.StatusDelivered:
		return "delivered"
	}
	return string(s)
}

func statusMessage(o *order.Order, s order.Status) string {
	switch s {
	case order.StatusConfirmed:
		return "We're preparing your juices. Keep the cash ready for delivery!"
	case order.StatusOutForDelivery:
		return fmt.Sprintf("Your order is on its way to %s.", o.City)
	case order.StatusDelivered:
		return "Enjoy your juices! See you again soon."
	}
	return fmt.Sprintf("Your order is now %s.", s)
}

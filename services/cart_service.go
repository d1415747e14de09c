package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"navyaJuicesAPI/internal/cart"
)

var ErrProductUnavailable = errors.New("product is not available")

type CartService struct {
	db *pgxpool.Pool
}

func NewCartService(db *pgxpool.Pool) *CartService {
	return &CartService{db: db}
}

// GetCart returns the user's cart, creating an empty one on first touch.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	c, err := s.findOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.loadItems(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CartService) findOrCreateCart(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	var c cart.Cart
	query := `
		INSERT INTO carts (id, user_id, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET updated_at = carts.updated_at
		RETURNING id, user_id, updated_at
	`
	err := s.db.QueryRow(ctx, query, uuid.New(), userID).Scan(&c.ID, &c.UserID, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return &c, nil
}

func (s *CartService) loadItems(ctx context.Context, c *cart.Cart) error {
	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, p.name, p.image_url, ci.unit_price_cents, ci.quantity, ci.added_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.added_at
	`
	rows, err := s.db.Query(ctx, query, c.ID)
	if err != nil {
		return fmt.Errorf("failed to load cart items: %w", err)
	}
	defer rows.Close()

	c.Items = []*cart.Item{}
	for rows.Next() {
		var item cart.Item
		err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.ProductName,
			&item.ImageURL, &item.UnitPriceCents, &item.Quantity, &item.AddedAt)
		if err != nil {
			return err
		}
		c.Items = append(c.Items, &item)
	}
	if err = rows.Err(); err != nil {
		return err
	}
	c.SubtotalCents = c.Subtotal()
	return nil
}

// AddItem puts a product in the cart, snapshotting its current price. Adding a
// product already in the cart increments the quantity instead.
func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, productID uuid.UUID, quantity int) (*cart.Cart, error) {
	if quantity <= 0 {
		quantity = 1
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var priceCents int
	var inStock, isActive bool
	err = tx.QueryRow(ctx,
		`SELECT price_cents, in_stock, is_active FROM products WHERE id = $1`, productID).
		Scan(&priceCents, &inStock, &isActive)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to look up product: %w", err)
	}
	if !isActive || !inStock {
		return nil, ErrProductUnavailable
	}

	var cartID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO carts (id, user_id, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		RETURNING id
	`, uuid.New(), userID).Scan(&cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, unit_price_cents, quantity, added_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + $5
	`, uuid.New(), cartID, productID, priceCents, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.GetCart(ctx, userID)
}

// UpdateItemQuantity sets an exact quantity; zero removes the line.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID uuid.UUID, productID uuid.UUID, quantity int) (*cart.Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	ct, err := s.db.Exec(ctx, `
		UPDATE cart_items SET quantity = $3
		WHERE product_id = $2
		  AND cart_id = (SELECT id FROM carts WHERE user_id = $1)
	`, userID, productID, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrProductNotFound
	}
	return s.GetCart(ctx, userID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID uuid.UUID, productID uuid.UUID) (*cart.Cart, error) {
	_, err := s.db.Exec(ctx, `
		DELETE FROM cart_items
		WHERE product_id = $2
		  AND cart_id = (SELECT id FROM carts WHERE user_id = $1)
	`, userID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to remove cart item: %w", err)
	}
	return s.GetCart(ctx, userID)
}

func (s *CartService) ClearCart(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM cart_items WHERE cart_id = (SELECT id FROM carts WHERE user_id = $1)`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

package helpers

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SetupTestDB connects to the test database, or skips the test when no
// database is configured so the suite stays runnable on a bare checkout.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	return pool
}

// CleanupTestDB removes rows created by the helpers below and closes the pool.
// Child rows (carts, orders, enrollments, notifications) go with the user via
// ON DELETE CASCADE.
func CleanupTestDB(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()
	_, err := pool.Exec(ctx, "DELETE FROM users WHERE email LIKE 'test%@example.com'")
	if err != nil {
		t.Logf("Warning: failed to cleanup test users: %v", err)
	}
	_, err = pool.Exec(ctx, "DELETE FROM challenge_definitions WHERE title LIKE 'Test %'")
	if err != nil {
		t.Logf("Warning: failed to cleanup test challenges: %v", err)
	}
	_, err = pool.Exec(ctx, "DELETE FROM products WHERE slug LIKE 'test-%'")
	if err != nil {
		t.Logf("Warning: failed to cleanup test products: %v", err)
	}
	_, err = pool.Exec(ctx, "DELETE FROM categories WHERE slug LIKE 'test-%'")
	if err != nil {
		t.Logf("Warning: failed to cleanup test categories: %v", err)
	}
	pool.Close()
}

// CreateTestUser inserts a user row directly and returns its id.
func CreateTestUser(t *testing.T, pool *pgxpool.Pool, clerkID string) uuid.UUID {
	id := uuid.New()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO users (id, clerk_id, email, first_name, last_name, created_at, updated_at)
		VALUES ($1, $2, $3, 'Test', 'User', NOW(), NOW())
	`, id, clerkID, fmt.Sprintf("test+%s@example.com", clerkID))
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return id
}

// SeedChallenge inserts a challenge definition with optional tips and
// milestones keyed by day.
func SeedChallenge(t *testing.T, pool *pgxpool.Pool, title string, durationDays int, tips map[int]string, milestones map[int]string) uuid.UUID {
	ctx := context.Background()
	id := uuid.New()
	_, err := pool.Exec(ctx, `
		INSERT INTO challenge_definitions (id, title, description, duration_days, is_active, created_at)
		VALUES ($1, $2, '', $3, true, NOW())
	`, id, title, durationDays)
	if err != nil {
		t.Fatalf("Failed to seed challenge: %v", err)
	}
	for day, tip := range tips {
		_, err = pool.Exec(ctx,
			`INSERT INTO challenge_tips (challenge_id, day, tip) VALUES ($1, $2, $3)`, id, day, tip)
		if err != nil {
			t.Fatalf("Failed to seed tip for day %d: %v", day, err)
		}
	}
	for day, desc := range milestones {
		_, err = pool.Exec(ctx,
			`INSERT INTO challenge_milestones (challenge_id, day, description) VALUES ($1, $2, $3)`, id, day, desc)
		if err != nil {
			t.Fatalf("Failed to seed milestone for day %d: %v", day, err)
		}
	}
	return id
}

// SeedProduct inserts a category and a product under it, returning the
// product id. The slug is prefixed with "test-" so cleanup can find it.
func SeedProduct(t *testing.T, pool *pgxpool.Pool, name string, priceCents int) uuid.UUID {
	ctx := context.Background()
	categoryID := uuid.New()
	_, err := pool.Exec(ctx, `
		INSERT INTO categories (id, name, slug, is_active, created_at)
		VALUES ($1, 'Test Juices', $2, true, NOW())
	`, categoryID, fmt.Sprintf("test-juices-%s", categoryID.String()[:8]))
	if err != nil {
		t.Fatalf("Failed to seed category: %v", err)
	}

	productID := uuid.New()
	_, err = pool.Exec(ctx, `
		INSERT INTO products (id, category_id, name, slug, price_cents, in_stock, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, true, true, NOW(), NOW())
	`, productID, categoryID, name, fmt.Sprintf("test-%s", productID.String()[:8]), priceCents)
	if err != nil {
		t.Fatalf("Failed to seed product: %v", err)
	}
	return productID
}

// GenerateMockClerkJWT signs a token with test claims. It is not verifiable
// against Clerk; use it only for handlers exercised below the auth middleware.
func GenerateMockClerkJWT(clerkID string) (string, error) {
	secretKey := []byte("test-secret-key-for-testing-only")

	claims := jwt.MapClaims{
		"sub": clerkID,
		"iss": "https://clerk.test",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour * 24).Unix(),
		"azp": "test-app-id",
		"sid": "sess_test123",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// MockClerkWebhookPayload builds the webhook body Clerk posts for user events.
func MockClerkWebhookPayload(eventType string, clerkID string) []byte {
	payload := ""

	switch eventType {
	case "user.created":
		payload = fmt.Sprintf(`{
			"data": {
				"id": "%s",
				"first_name": "Test",
				"last_name": "User",
				"image_url": "https://example.com/image.jpg",
				"email_addresses": [{
					"id": "email_123",
					"email_address": "test.%s@example.com",
					"verification": {"status": "verified"}
				}]
			},
			"object": "event",
			"type": "%s"
		}`, clerkID, clerkID, eventType)

	case "user.updated":
		payload = fmt.Sprintf(`{
			"data": {
				"id": "%s",
				"first_name": "Updated",
				"last_name": "User",
				"image_url": "https://example.com/new-image.jpg",
				"email_addresses": [{
					"id": "email_123",
					"email_address": "test.%s@example.com",
					"verification": {"status": "verified"}
				}]
			},
			"object": "event",
			"type": "%s"
		}`, clerkID, clerkID, eventType)

	case "user.deleted":
		payload = fmt.Sprintf(`{
			"data": {
				"id": "%s",
				"deleted": true
			},
			"object": "event",
			"type": "%s"
		}`, clerkID, eventType)
	}

	return []byte(payload)
}

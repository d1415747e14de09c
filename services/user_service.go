package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"navyaJuicesAPI/internal/user"
)

var ErrUserNotFound = errors.New("user not found")

type UserService struct {
	db *pgxpool.Pool
}

func NewUserService(db *pgxpool.Pool) *UserService {
	return &UserService{db: db}
}

func (s *UserService) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	u := &user.User{
		ClerkID:   req.ClerkID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		ImageURL:  req.ImageURL,
	}

	query := `
		INSERT INTO users (id, clerk_id, email, first_name, last_name, image_url, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, NOW(), NOW())
		ON CONFLICT (clerk_id)
		DO UPDATE SET email = $3, first_name = $4, last_name = $5, image_url = $6, updated_at = NOW()
		RETURNING id, is_admin, created_at, updated_at
	`
	var id uuid.UUID
	err := s.db.QueryRow(ctx, query,
		uuid.New(), req.ClerkID, req.Email, req.FirstName, req.LastName, req.ImageURL,
	).Scan(&id, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	u.ID = id.String()
	return u, nil
}

func (s *UserService) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	var u user.User
	var id uuid.UUID
	query := `
		SELECT id, clerk_id, email, first_name, last_name, image_url, is_admin, created_at, updated_at
		FROM users
		WHERE clerk_id = $1
	`
	err := s.db.QueryRow(ctx, query, clerkID).Scan(
		&id, &u.ClerkID, &u.Email, &u.FirstName, &u.LastName, &u.ImageURL, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.ID = id.String()
	return &u, nil
}

// GetUserID resolves a Clerk ID to the internal user id.
func (s *UserService) GetUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return uuid.Nil, ErrUserNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return id, nil
}

// IsAdmin gates the back-office routes.
func (s *UserService) IsAdmin(ctx context.Context, clerkID string) (bool, error) {
	var isAdmin bool
	err := s.db.QueryRow(ctx, `SELECT is_admin FROM users WHERE clerk_id = $1`, clerkID).Scan(&isAdmin)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, ErrUserNotFound
		}
		return false, fmt.Errorf("failed to check admin flag: %w", err)
	}
	return isAdmin, nil
}

func (s *UserService) UpdateProfileByClerkID(ctx context.Context, clerkID string, req *user.UpdateProfileRequest) (*user.User, error) {
	query := `
		UPDATE users
		SET first_name = COALESCE(NULLIF($2, ''), first_name),
		    last_name  = COALESCE(NULLIF($3, ''), last_name),
		    image_url  = COALESCE(NULLIF($4, ''), image_url),
		    updated_at = NOW()
		WHERE clerk_id = $1
	`
	ct, err := s.db.Exec(ctx, query, clerkID, req.FirstName, req.LastName, req.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrUserNotFound
	}
	return s.GetUserByClerkID(ctx, clerkID)
}

func (s *UserService) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM users WHERE clerk_id = $1`, clerkID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Touch records the last seen time, used by the admin dashboard's active-user
// count. Failure is not worth surfacing to the request.
func (s *UserService) Touch(ctx context.Context, clerkID string, at time.Time) {
	_, _ = s.db.Exec(ctx, `UPDATE users SET last_seen_at = $2 WHERE clerk_id = $1`, clerkID, at)
}

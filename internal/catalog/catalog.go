package catalog

import (
	"time"

	"github.com/google/uuid"
)

type Category struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Slug         string    `json:"slug" db:"slug"`
	Description  *string   `json:"description" db:"description"`
	DisplayOrder int       `json:"display_order" db:"display_order"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type Product struct {
	ID          uuid.UUID `json:"id" db:"id"`
	CategoryID  uuid.UUID `json:"category_id" db:"category_id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description string    `json:"description" db:"description"`
	Benefits    []string  `json:"benefits" db:"benefits"`
	ImageURL    string    `json:"image_url" db:"image_url"`
	PriceCents  int       `json:"price_cents" db:"price_cents"`
	IsFeatured  bool      `json:"is_featured" db:"is_featured"`
	InStock     bool      `json:"in_stock" db:"in_stock"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type CreateProductRequest struct {
	CategoryID  string   `json:"category_id" validate:"required"`
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	Benefits    []string `json:"benefits"`
	ImageURL    string   `json:"image_url"`
	PriceCents  int      `json:"price_cents" validate:"required"`
	IsFeatured  bool     `json:"is_featured"`
	InStock     bool     `json:"in_stock"`
}

type UpdateProductRequest struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Benefits    []string `json:"benefits,omitempty"`
	ImageURL    *string  `json:"image_url,omitempty"`
	PriceCents  *int     `json:"price_cents,omitempty"`
	IsFeatured  *bool    `json:"is_featured,omitempty"`
	InStock     *bool    `json:"in_stock,omitempty"`
	IsActive    *bool    `json:"is_active,omitempty"`
}

type StorefrontResponse struct {
	Categories []*Category `json:"categories"`
	Featured   []*Product  `json:"featured"`
	Products   []*Product  `json:"products"`
}

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"navyaJuicesAPI/internal/catalog"
	"navyaJuicesAPI/utils"
)

var ErrProductNotFound = errors.New("product not found")

type CatalogService struct {
	db *pgxpool.Pool
}

func NewCatalogService(db *pgxpool.Pool) *CatalogService {
	return &CatalogService{db: db}
}

const productColumns = `
	id, category_id, name, slug, description, benefits, image_url,
	price_cents, is_featured, in_stock, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (*catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(
		&p.ID, &p.CategoryID, &p.Name, &p.Slug, &p.Description, &p.Benefits, &p.ImageURL,
		&p.PriceCents, &p.IsFeatured, &p.InStock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.Benefits == nil {
		p.Benefits = []string{}
	}
	return &p, nil
}

// GetStorefront returns everything the landing page needs in one response:
// active categories, featured products and the full active product list.
func (s *CatalogService) GetStorefront(ctx context.Context) (*catalog.StorefrontResponse, error) {
	categories, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.ListProducts(ctx, "")
	if err != nil {
		return nil, err
	}

	resp := &catalog.StorefrontResponse{
		Categories: categories,
		Products:   products,
		Featured:   []*catalog.Product{},
	}
	for _, p := range products {
		if p.IsFeatured {
			resp.Featured = append(resp.Featured, p)
		}
	}
	return resp, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]*catalog.Category, error) {
	query := `
		SELECT id, name, slug, description, display_order, is_active, created_at
		FROM categories
		WHERE is_active = true
		ORDER BY display_order, name
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*catalog.Category{}
	for rows.Next() {
		var c catalog.Category
		err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.DisplayOrder, &c.IsActive, &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}

// ListProducts returns active products, optionally filtered by category slug.
func (s *CatalogService) ListProducts(ctx context.Context, categorySlug string) ([]*catalog.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE is_active = true`
	args := []any{}
	if categorySlug != "" {
		query += ` AND category_id = (SELECT id FROM categories WHERE slug = $1)`
		args = append(args, categorySlug)
	}
	query += ` ORDER BY name`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*catalog.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *CatalogService) GetProductBySlug(ctx context.Context, slug string) (*catalog.Product, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE slug = $1 AND is_active = true`, slug)
	p, err := scanProduct(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	row := s.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// CreateProduct is the admin back-office insert. The slug is derived from the
// name; a duplicate slug fails the unique index and surfaces as an error.
func (s *CatalogService) CreateProduct(ctx context.Context, req *catalog.CreateProductRequest) (*catalog.Product, error) {
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("invalid category ID: %w", err)
	}

	benefits := req.Benefits
	if benefits == nil {
		benefits = []string{}
	}

	id := uuid.New()
	query := `
		INSERT INTO products (id, category_id, name, slug, description, benefits, image_url,
			price_cents, is_featured, in_stock, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, true, NOW(), NOW())
	`
	_, err = s.db.Exec(ctx, query,
		id, categoryID, req.Name, utils.Slugify(req.Name), req.Description, benefits,
		req.ImageURL, req.PriceCents, req.IsFeatured, req.InStock,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return s.GetProduct(ctx, id)
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, req *catalog.UpdateProductRequest) (*catalog.Product, error) {
	query := `
		UPDATE products SET
			name        = COALESCE($2, name),
			description = COALESCE($3, description),
			benefits    = COALESCE($4, benefits),
			image_url   = COALESCE($5, image_url),
			price_cents = COALESCE($6, price_cents),
			is_featured = COALESCE($7, is_featured),
			in_stock    = COALESCE($8, in_stock),
			is_active   = COALESCE($9, is_active),
			updated_at  = NOW()
		WHERE id = $1
	`
	ct, err := s.db.Exec(ctx, query,
		id, req.Name, req.Description, req.Benefits, req.ImageURL,
		req.PriceCents, req.IsFeatured, req.InStock, req.IsActive,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrProductNotFound
	}
	return s.GetProduct(ctx, id)
}

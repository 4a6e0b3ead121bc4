package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/jewelrycommerce/pkg/database"
	apperrors "github.com/utafrali/jewelrycommerce/pkg/errors"
	"github.com/utafrali/jewelrycommerce/services/catalog/internal/domain"
	"github.com/utafrali/jewelrycommerce/services/catalog/internal/repository"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the catalog schema migrations for database.RunMigrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

const productColumns = `id, handle, name, description, price, category, image_url, images, material, is_pre_order, in_stock, sizes, created_at`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db     database.DB
	tracer database.QueryTracer
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DB, tracer database.QueryTracer) *ProductRepository {
	return &ProductRepository{db: db, tracer: tracer}
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	ctx, done := r.tracer.Trace(ctx, "products.create", query)
	defer func() { done(err) }()

	_, err = r.db.Exec(ctx, query,
		p.ID,
		p.Handle,
		p.Name,
		p.Description,
		p.Price,
		p.Category,
		p.ImageURL,
		nonNil(p.Images),
		p.Material,
		p.IsPreOrder,
		p.InStock,
		nonNil(p.Sizes),
		p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "handle", p.Handle)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return r.getOne(ctx, "products.get_by_id", query, id)
}

// GetByHandle retrieves a product by its handle.
func (r *ProductRepository) GetByHandle(ctx context.Context, handle string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE handle = $1`
	return r.getOne(ctx, "products.get_by_handle", query, handle)
}

func (r *ProductRepository) getOne(ctx context.Context, op, query, key string) (p *domain.Product, err error) {
	ctx, done := r.tracer.Trace(ctx, op, query)
	defer func() { done(err) }()

	p = &domain.Product{}
	err = r.db.QueryRow(ctx, query, key).Scan(productDest(p)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", key)
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return p, nil
}

// List returns products matching the filter with the total count.
func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter) (products []domain.Product, total int, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, filter.Category)
		argIndex++
	}
	if filter.InStock != nil {
		conditions = append(conditions, fmt.Sprintf("in_stock = $%d", argIndex))
		args = append(args, *filter.InStock)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY created_at ASC, id ASC
		LIMIT $%d OFFSET $%d`,
		productColumns, whereClause, argIndex, argIndex+1,
	)
	args = append(args, limit, max(filter.Offset, 0))

	ctx, done := r.tracer.Trace(ctx, "products.list", query)
	defer func() { done(err) }()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(append(productDest(&p), &total)...); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, total, nil
}

func productDest(p *domain.Product) []any {
	return []any{
		&p.ID,
		&p.Handle,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Category,
		&p.ImageURL,
		&p.Images,
		&p.Material,
		&p.IsPreOrder,
		&p.InStock,
		&p.Sizes,
		&p.CreatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}

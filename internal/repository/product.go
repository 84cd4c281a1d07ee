package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/webstore/store-api/internal/domain/product"
)

const (
	productColumns = `id, name, brand, category, price, description, image_filename, created_at`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id`

	createProductSQL = `INSERT INTO products (name, brand, category, price, description, image_filename)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`

	updateProductSQL = `UPDATE products
		SET name = $2, brand = $3, category = $4, price = $5, description = $6, image_filename = $7
		WHERE id = $1`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`
)

// sortColumns whitelists the ORDER BY column per sort key.
var sortColumns = map[product.SortKey]string{
	product.SortByID:       "id",
	product.SortByName:     "name",
	product.SortByBrand:    "brand",
	product.SortByCategory: "category",
	product.SortByPrice:    "price",
	product.SortByDate:     "created_at",
}

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Count returns the number of products matching f.
func (r *ProductRepository) Count(ctx context.Context, f product.Filter) (int, error) {
	where, args := buildFilter(f)
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting products: %w", err)
	}
	return n, nil
}

// Search returns one window of products matching f in the order s.
func (r *ProductRepository) Search(ctx context.Context, f product.Filter, s product.Sort, offset, limit int) ([]product.Product, error) {
	query, args := buildSearch(f, s, offset, limit)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns the products among ids that exist, ordered by id.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Create inserts p and sets its ID and CreatedAt.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	err := r.pool.QueryRow(ctx, createProductSQL,
		p.Name, p.Brand, p.Category, p.Price, p.Description, p.ImageFilename,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating product: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of p.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	tag, err := r.pool.Exec(ctx, updateProductSQL,
		p.ID, p.Name, p.Brand, p.Category, p.Price, p.Description, p.ImageFilename,
	)
	if err != nil {
		return fmt.Errorf("updating product %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Delete removes product id. Order lines keep their snapshot.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// buildFilter renders f as a WHERE clause with positional arguments.
// Search uses strpos so matching is a case-sensitive substring test.
func buildFilter(f product.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.Search != nil {
		n := arg(*f.Search)
		conds = append(conds, "(strpos(name, "+n+") > 0 OR strpos(description, "+n+") > 0)")
	}
	if f.Category != nil {
		conds = append(conds, "category = "+arg(*f.Category))
	}
	if f.MinPrice != nil {
		conds = append(conds, "price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		conds = append(conds, "price <= "+arg(*f.MaxPrice))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// buildSearch renders the windowed, sorted catalog query. Rows with equal
// sort values are ordered by id in the same direction.
func buildSearch(f product.Filter, s product.Sort, offset, limit int) (string, []any) {
	where, args := buildFilter(f)

	col, ok := sortColumns[s.Key]
	if !ok {
		col = "id"
	}
	dir := "DESC"
	if s.Dir == product.Asc {
		dir = "ASC"
	}
	order := " ORDER BY " + col + " " + dir
	if col != "id" {
		order += ", id " + dir
	}

	args = append(args, limit, offset)
	paging := fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	return `SELECT ` + productColumns + ` FROM products` + where + order + paging, args
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Brand, &p.Category, &p.Price,
		&p.Description, &p.ImageFilename, &p.CreatedAt,
	)
	return p, err
}

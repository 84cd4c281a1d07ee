package product

import (
	"context"
	"io"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// DefaultCategories is the closed category set used when none is configured.
var DefaultCategories = []string{"Phones", "Computers", "Accessories", "Printers", "Cameras", "Other"}

// Product represents a catalog item available for purchase.
type Product struct {
	ID            int64
	Name          string
	Brand         string
	Category      string
	Price         decimal.Decimal
	Description   string
	ImageFilename string
	CreatedAt     time.Time
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	Count(ctx context.Context, f Filter) (int, error)
	Search(ctx context.Context, f Filter, s Sort, offset, limit int) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error
}

// ImageStore keeps product image files. Save returns the stored file name.
type ImageStore interface {
	Save(ctx context.Context, originalName string, r io.Reader) (string, error)
	Delete(ctx context.Context, name string) error
}

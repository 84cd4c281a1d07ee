package product

import (
	"context"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/webstore/store-api/internal/domain/validation"
	"github.com/webstore/store-api/pkg/pagination"
)

// DefaultPageSize is the catalog page size.
const DefaultPageSize = 5

// Page is one window of catalog results.
type Page struct {
	Products []Product
	Window   pagination.Window
}

// Input carries the editable product fields from an admin request.
type Input struct {
	Name        string
	Brand       string
	Category    string
	Price       decimal.Decimal
	Description string
}

// Upload is an image file sent with an admin request.
type Upload struct {
	Filename string
	Body     io.Reader
}

// Service implements catalog browsing and administration.
type Service struct {
	products   Repository
	images     ImageStore
	categories []string
	pageSize   int
	now        func() time.Time
}

// NewService creates a catalog Service. Empty categories fall back to
// DefaultCategories and a non-positive pageSize to DefaultPageSize.
func NewService(products Repository, images ImageStore, categories []string, pageSize int) *Service {
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Service{
		products:   products,
		images:     images,
		categories: slices.Clone(categories),
		pageSize:   pageSize,
		now:        time.Now,
	}
}

// Categories returns the closed category set.
func (s *Service) Categories() []string {
	return slices.Clone(s.categories)
}

// List filters, sorts and pages the catalog. The page count is derived from
// the filtered count, before windowing.
func (s *Service) List(ctx context.Context, q Query) (*Page, error) {
	count, err := s.products.Count(ctx, q.Filter)
	if err != nil {
		return nil, errors.Wrap(err, "count products")
	}
	w := pagination.New(count, s.pageSize, q.Page)

	out := &Page{Window: w, Products: []Product{}}
	if w.Empty() {
		return out, nil
	}
	products, err := s.products.Search(ctx, q.Filter, q.Sort, w.Offset, w.PageSize)
	if err != nil {
		return nil, errors.Wrap(err, "search products")
	}
	out.Products = products
	return out, nil
}

// Get returns a single product or ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	return s.products.GetByID(ctx, id)
}

// Create validates in, stores the image and inserts the product.
func (s *Service) Create(ctx context.Context, in Input, image *Upload) (*Product, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	if image == nil {
		return nil, validation.New("ImageFile", "the image file is required")
	}

	name, err := s.images.Save(ctx, image.Filename, image.Body)
	if err != nil {
		return nil, errors.Wrap(err, "save image")
	}

	p := &Product{
		Name:          in.Name,
		Brand:         in.Brand,
		Category:      in.Category,
		Price:         in.Price,
		Description:   in.Description,
		ImageFilename: name,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.products.Create(ctx, p); err != nil {
		_ = s.images.Delete(ctx, name)
		return nil, errors.Wrap(err, "create product")
	}
	return p, nil
}

// Update replaces the editable fields of product id. A new image replaces
// and removes the previous one.
func (s *Service) Update(ctx context.Context, id int64, in Input, image *Upload) (*Product, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldImage := p.ImageFilename
	if image != nil {
		name, err := s.images.Save(ctx, image.Filename, image.Body)
		if err != nil {
			return nil, errors.Wrap(err, "save image")
		}
		p.ImageFilename = name
	}

	p.Name = in.Name
	p.Brand = in.Brand
	p.Category = in.Category
	p.Price = in.Price
	p.Description = in.Description

	if err := s.products.Update(ctx, p); err != nil {
		if image != nil {
			_ = s.images.Delete(ctx, p.ImageFilename)
		}
		return nil, errors.Wrap(err, "update product")
	}
	if image != nil && oldImage != "" {
		// The row already points at the new file; a leftover old file is harmless.
		_ = s.images.Delete(ctx, oldImage)
	}
	return p, nil
}

// Delete removes product id and its image. Orders that captured the product
// keep their line items.
func (s *Service) Delete(ctx context.Context, id int64) error {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "delete product")
	}
	if p.ImageFilename != "" {
		_ = s.images.Delete(ctx, p.ImageFilename)
	}
	return nil
}

func (s *Service) validate(in Input) error {
	if strings.TrimSpace(in.Name) == "" {
		return validation.New("Name", "the name is required")
	}
	if strings.TrimSpace(in.Brand) == "" {
		return validation.New("Brand", "the brand is required")
	}
	if !slices.Contains(s.categories, in.Category) {
		return validation.New("Category", "please select a valid category")
	}
	if in.Price.IsNegative() {
		return validation.New("Price", "the price must not be negative")
	}
	return nil
}

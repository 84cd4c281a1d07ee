// Package cart prices a compact cart encoding against live catalog prices.
//
// A cart is never stored. It is rebuilt from the encoding on every call, so
// it always reflects the current catalog.
package cart

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/webstore/store-api/internal/domain/product"
)

// Separator splits product identifiers in a cart encoding.
const Separator = "-"

// Quantities maps product id to the number of times it occurs.
type Quantities map[int64]int

// ParseIdentifiers turns an encoding such as "9-9-7" into {9:2, 7:1}.
// Tokens that are not integers are skipped.
func ParseIdentifiers(encoding string) Quantities {
	q := Quantities{}
	if encoding == "" {
		return q
	}
	for _, tok := range strings.Split(encoding, Separator) {
		id, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			continue
		}
		q[id]++
	}
	return q
}

// IDs returns the distinct ids in ascending order.
func (q Quantities) IDs() []int64 {
	ids := make([]int64, 0, len(q))
	for id := range q {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Item is a priced cart line.
type Item struct {
	Product  product.Product
	Quantity int
}

// LineTotal is unit price times quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the priced result of an encoding.
type Cart struct {
	Items       []Item
	SubTotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Total       decimal.Decimal
}

// ProductLookup batch-loads products. Missing ids are simply absent from the result.
type ProductLookup interface {
	GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error)
}

// Engine prices carts.
type Engine struct {
	products    ProductLookup
	shippingFee decimal.Decimal
}

// NewEngine creates an Engine charging shippingFee on every cart.
func NewEngine(products ProductLookup, shippingFee decimal.Decimal) *Engine {
	return &Engine{products: products, shippingFee: shippingFee}
}

// ShippingFee returns the flat fee added to every cart.
func (e *Engine) ShippingFee() decimal.Decimal {
	return e.shippingFee
}

// Resolve parses encoding and returns one line per identifier that maps to
// an existing product, in ascending id order. Unknown ids are dropped.
func (e *Engine) Resolve(ctx context.Context, encoding string) ([]Item, error) {
	q := ParseIdentifiers(encoding)
	if len(q) == 0 {
		return []Item{}, nil
	}
	ids := q.IDs()

	found, err := e.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[int64]product.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			continue
		}
		items = append(items, Item{Product: p, Quantity: q[id]})
	}
	return items, nil
}

// Price resolves encoding and computes subtotal and total.
func (e *Engine) Price(ctx context.Context, encoding string) (*Cart, error) {
	items, err := e.Resolve(ctx, encoding)
	if err != nil {
		return nil, err
	}
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	return &Cart{
		Items:       items,
		SubTotal:    subtotal,
		ShippingFee: e.shippingFee,
		Total:       subtotal.Add(e.shippingFee),
	}, nil
}

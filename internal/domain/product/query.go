package product

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SortKey selects the catalog ordering column.
type SortKey string

const (
	SortByID       SortKey = "id"
	SortByName     SortKey = "name"
	SortByBrand    SortKey = "brand"
	SortByCategory SortKey = "category"
	SortByPrice    SortKey = "price"
	SortByDate     SortKey = "date"
)

// ParseSortKey maps a user supplied key to a SortKey. Unknown and empty
// keys sort by id.
func ParseSortKey(s string) SortKey {
	switch k := SortKey(strings.ToLower(s)); k {
	case SortByName, SortByBrand, SortByCategory, SortByPrice, SortByDate:
		return k
	default:
		return SortByID
	}
}

// Direction is the sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection returns Asc only for the exact value "asc"; anything else,
// including an empty value, is Desc.
func ParseDirection(s string) Direction {
	if s == string(Asc) {
		return Asc
	}
	return Desc
}

// Filter restricts the catalog. Nil fields do not filter.
type Filter struct {
	// Search matches a case-sensitive substring of name or description.
	Search   *string
	Category *string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// Sort orders the catalog.
type Sort struct {
	Key SortKey
	Dir Direction
}

// Query is a full catalog listing request.
type Query struct {
	Filter Filter
	Sort   Sort
	Page   int
}

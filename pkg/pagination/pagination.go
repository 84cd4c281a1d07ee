// Package pagination computes fixed-size page windows over counted result
// sets. Catalog, order and user listings all page through it.
package pagination

// Window describes one page of a counted result set.
type Window struct {
	Page       int
	PageSize   int
	Offset     int
	TotalPages int
	TotalCount int
}

// New returns the window for requestedPage. Pages below 1 are clamped to 1;
// pages past the end are kept and simply select nothing.
func New(totalCount, pageSize, requestedPage int) Window {
	if pageSize < 1 {
		pageSize = 1
	}
	offset, totalPages := Paginate(totalCount, pageSize, requestedPage)
	return Window{
		Page:       ClampPage(requestedPage),
		PageSize:   pageSize,
		Offset:     offset,
		TotalPages: totalPages,
		TotalCount: totalCount,
	}
}

// Paginate returns the row offset of requestedPage and the number of pages
// needed for totalCount rows.
func Paginate(totalCount, pageSize, requestedPage int) (offset, totalPages int) {
	if pageSize < 1 {
		pageSize = 1
	}
	if totalCount > 0 {
		totalPages = (totalCount + pageSize - 1) / pageSize
	}
	offset = (ClampPage(requestedPage) - 1) * pageSize
	return offset, totalPages
}

// ClampPage coerces page numbers below 1 to 1.
func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// Empty reports whether the window selects no rows.
func (w Window) Empty() bool {
	return w.Offset >= w.TotalCount
}

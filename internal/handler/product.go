package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/webstore/store-api/internal/domain/product"
	"github.com/webstore/store-api/internal/domain/validation"
)

// ListProducts serves GET /products with optional search, searchCategory,
// searchMinPrice, searchMaxPrice, sort, order and page parameters.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q, err := parseProductQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.products.List(r.Context(), q)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list products"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("products", func(e *jx.Encoder) {
				e.ArrStart()
				for i := range page.Products {
					h.encodeProduct(e, &page.Products[i])
				}
				e.ArrEnd()
			})
			encodeWindow(e, page.Window)
		})
	})
}

// ListCategories serves GET /products/categories.
func (h *Handler) ListCategories(w http.ResponseWriter, _ *http.Request) {
	categories := h.products.Categories()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, c := range categories {
			e.Str(c)
		}
		e.ArrEnd()
	})
}

// GetProduct serves GET /products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.products.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeProduct(e, p) })
}

// CreateProduct serves POST /products from a multipart form.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	in, upload, err := h.parseProductForm(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer closeUpload(upload)
	p, err := h.products.Create(r.Context(), in, upload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeProduct(e, p) })
}

// UpdateProduct serves PUT /products/{id}. The image file is optional.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	in, upload, err := h.parseProductForm(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer closeUpload(upload)
	p, err := h.products.Update(r.Context(), id, in, upload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeProduct(e, p) })
}

// DeleteProduct serves DELETE /products/{id}.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.products.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func parseProductQuery(r *http.Request) (product.Query, error) {
	v := r.URL.Query()
	q := product.Query{
		Sort: product.Sort{
			Key: product.ParseSortKey(v.Get("sort")),
			Dir: product.ParseDirection(v.Get("order")),
		},
	}
	// Empty values mean "no filter", like the price bounds below.
	if s := v.Get("search"); s != "" {
		q.Filter.Search = &s
	}
	if c := v.Get("searchCategory"); c != "" {
		q.Filter.Category = &c
	}
	for _, bound := range []struct {
		key string
		dst **decimal.Decimal
	}{
		{"searchMinPrice", &q.Filter.MinPrice},
		{"searchMaxPrice", &q.Filter.MaxPrice},
	} {
		raw := v.Get(bound.key)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return q, validation.New(bound.key, "the value must be a number")
		}
		*bound.dst = &d
	}
	page, err := queryPage(r)
	if err != nil {
		return q, err
	}
	q.Page = page
	return q, nil
}

func (h *Handler) parseProductForm(w http.ResponseWriter, r *http.Request) (product.Input, *product.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return product.Input{}, nil, validation.New("form", "a multipart form is required")
	}

	in := product.Input{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Brand:       strings.TrimSpace(r.FormValue("brand")),
		Category:    strings.TrimSpace(r.FormValue("category")),
		Description: r.FormValue("description"),
	}
	price, err := decimal.NewFromString(strings.TrimSpace(r.FormValue("price")))
	if err != nil {
		return in, nil, validation.New("Price", "the price must be a number")
	}
	in.Price = price

	file, header, err := r.FormFile("imageFile")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return in, nil, nil
	case err != nil:
		return in, nil, validation.New("ImageFile", "the image file could not be read")
	}
	return in, &product.Upload{Filename: header.Filename, Body: file}, nil
}

func closeUpload(u *product.Upload) {
	if u == nil {
		return
	}
	if c, ok := u.Body.(io.Closer); ok {
		_ = c.Close()
	}
}

// pathID parses the {id} path value, answering 404 for non-integers.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusNotFound, "not found", "")
		return 0, false
	}
	return id, true
}

// queryPage reads the optional page parameter. Absent means page 1.
func queryPage(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, validation.New("page", "the page must be an integer")
	}
	return page, nil
}

// Package handler exposes the store over HTTP.
package handler

import (
	"net/http"
	"strings"

	"github.com/webstore/store-api/internal/domain/auth"
	"github.com/webstore/store-api/internal/domain/cart"
	"github.com/webstore/store-api/internal/domain/order"
	"github.com/webstore/store-api/internal/domain/product"
	"github.com/webstore/store-api/internal/domain/user"
)

// TokenVerifier turns a bearer token into the caller identity.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to image file names to form imageUrl in
	// product responses. When empty, imageUrl is omitted.
	ImageBaseURL string
	// MaxUploadBytes caps multipart product requests. Zero means 10 MiB.
	MaxUploadBytes int64
}

// Handler serves the store API, delegating business logic to the domain
// services.
type Handler struct {
	products     *product.Service
	carts        *cart.Engine
	orders       *order.Service
	users        *user.Service
	tokens       TokenVerifier
	imageBaseURL string
	maxUpload    int64
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	products *product.Service,
	carts *cart.Engine,
	orders *order.Service,
	users *user.Service,
	tokens TokenVerifier,
) *Handler {
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	base := cfg.ImageBaseURL
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &Handler{
		products:     products,
		carts:        carts,
		orders:       orders,
		users:        users,
		tokens:       tokens,
		imageBaseURL: base,
		maxUpload:    maxUpload,
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /products", h.ListProducts)
	mux.HandleFunc("GET /products/categories", h.ListCategories)
	mux.HandleFunc("GET /products/{id}", h.GetProduct)
	mux.HandleFunc("POST /products", h.requireAdmin(h.CreateProduct))
	mux.HandleFunc("PUT /products/{id}", h.requireAdmin(h.UpdateProduct))
	mux.HandleFunc("DELETE /products/{id}", h.requireAdmin(h.DeleteProduct))

	mux.HandleFunc("GET /cart", h.GetCart)
	mux.HandleFunc("GET /cart/payment-methods", h.ListPaymentMethods)

	mux.HandleFunc("GET /orders", h.requireUser(h.ListOrders))
	mux.HandleFunc("GET /orders/{id}", h.requireUser(h.GetOrder))
	mux.HandleFunc("POST /orders", h.requireUser(h.CreateOrder))
	mux.HandleFunc("PUT /orders/{id}", h.requireAdmin(h.UpdateOrder))
	mux.HandleFunc("DELETE /orders/{id}", h.requireAdmin(h.DeleteOrder))

	mux.HandleFunc("GET /users", h.requireAdmin(h.ListUsers))
	mux.HandleFunc("GET /users/{id}", h.requireAdmin(h.GetUser))
}

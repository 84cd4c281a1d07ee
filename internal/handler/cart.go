package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// GetCart serves GET /cart?productIdentifiers=9-9-7, pricing the encoded
// cart against current catalog prices.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Price(r.Context(), r.URL.Query().Get("productIdentifiers"))
	if err != nil {
		writeError(w, r, errors.Wrap(err, "price cart"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeCart(e, c) })
}

// ListPaymentMethods serves GET /cart/payment-methods as a code to label
// object in configuration order.
func (h *Handler) ListPaymentMethods(w http.ResponseWriter, _ *http.Request) {
	methods := h.orders.PaymentMethods()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			for _, m := range methods {
				e.Field(m.Code, func(e *jx.Encoder) { e.Str(m.Label) })
			}
		})
	})
}

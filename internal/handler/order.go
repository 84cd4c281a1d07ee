package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/webstore/store-api/internal/domain/order"
	"github.com/webstore/store-api/internal/domain/validation"
)

// ListOrders serves GET /orders?page=. Clients see their own orders,
// admins see all.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.orders.List(r.Context(), caller(r), page)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list orders"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("orders", func(e *jx.Encoder) {
				e.ArrStart()
				for i := range res.Orders {
					h.encodeOrder(e, &res.Orders[i])
				}
				e.ArrEnd()
			})
			encodeWindow(e, res.Window)
		})
	})
}

// GetOrder serves GET /orders/{id}. Orders of other users are reported as
// missing.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	o, err := h.orders.Get(r.Context(), caller(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeOrder(e, o) })
}

// CreateOrder serves POST /orders with a JSON body of productIdentifiers,
// deliveryAddress and paymentMethod.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCreateOrder(jx.Decode(http.MaxBytesReader(w, r.Body, 64<<10), 4096))
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.orders.Create(r.Context(), caller(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeOrder(e, o) })
}

// UpdateOrder serves PUT /orders/{id}?paymentStatus=&orderStatus=. Empty
// values count as absent.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var u order.StatusUpdate
	if v := r.URL.Query().Get("paymentStatus"); v != "" {
		u.PaymentStatus = &v
	}
	if v := r.URL.Query().Get("orderStatus"); v != "" {
		u.OrderStatus = &v
	}
	o, err := h.orders.Update(r.Context(), id, u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeOrder(e, o) })
}

// DeleteOrder serves DELETE /orders/{id}.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.orders.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func decodeCreateOrder(d *jx.Decoder) (order.CreateRequest, error) {
	var req order.CreateRequest
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var dst *string
		switch key {
		case "productIdentifiers":
			dst = &req.ProductIdentifiers
		case "deliveryAddress":
			dst = &req.DeliveryAddress
		case "paymentMethod":
			dst = &req.PaymentMethod
		default:
			return d.Skip()
		}
		if d.Next() == jx.Null {
			return d.Null()
		}
		v, err := d.Str()
		if err != nil {
			return err
		}
		*dst = v
		return nil
	})
	if err != nil {
		return req, validation.New("body", "the request body must be a JSON object")
	}
	return req, nil
}

package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/webstore/store-api/internal/domain/cart"
	"github.com/webstore/store-api/internal/domain/order"
	"github.com/webstore/store-api/internal/domain/product"
	"github.com/webstore/store-api/internal/domain/user"
	"github.com/webstore/store-api/internal/domain/validation"
	"github.com/webstore/store-api/pkg/pagination"
)

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(e.Bytes())))
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeProblem(w http.ResponseWriter, status int, message, field string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
			if field != "" {
				e.Field("field", func(e *jx.Encoder) { e.Str(field) })
			}
		})
	})
}

// writeError maps domain errors to responses. Unexpected errors are logged
// and reported as 500 without details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if vErr, ok := validation.As(err); ok {
		writeProblem(w, http.StatusBadRequest, vErr.Message, vErr.Field)
		return
	}
	switch {
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, user.ErrNotFound):
		writeProblem(w, http.StatusNotFound, err.Error(), "")
		return
	}

	zctx.From(r.Context()).Error("Request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeProblem(w, http.StatusInternalServerError, "internal server error", "")
}

func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Raw([]byte(d.StringFixed(2)))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func encodeWindow(e *jx.Encoder, w pagination.Window) {
	e.Field("totalCount", func(e *jx.Encoder) { e.Int(w.TotalCount) })
	e.Field("totalPages", func(e *jx.Encoder) { e.Int(w.TotalPages) })
	e.Field("pageSize", func(e *jx.Encoder) { e.Int(w.PageSize) })
	e.Field("page", func(e *jx.Encoder) { e.Int(w.Page) })
}

func (h *Handler) encodeProduct(e *jx.Encoder, p *product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("brand", func(e *jx.Encoder) { e.Str(p.Brand) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		e.Field("price", func(e *jx.Encoder) { encodeMoney(e, p.Price) })
		e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
		e.Field("imageFileName", func(e *jx.Encoder) { e.Str(p.ImageFilename) })
		if h.imageBaseURL != "" && p.ImageFilename != "" {
			e.Field("imageUrl", func(e *jx.Encoder) { e.Str(h.imageBaseURL + p.ImageFilename) })
		}
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, p.CreatedAt) })
	})
}

func (h *Handler) encodeCart(e *jx.Encoder, c *cart.Cart) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("cartItems", func(e *jx.Encoder) {
			e.ArrStart()
			for i := range c.Items {
				it := &c.Items[i]
				e.Obj(func(e *jx.Encoder) {
					e.Field("product", func(e *jx.Encoder) { h.encodeProduct(e, &it.Product) })
					e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
				})
			}
			e.ArrEnd()
		})
		e.Field("subTotal", func(e *jx.Encoder) { encodeMoney(e, c.SubTotal) })
		e.Field("shippingFee", func(e *jx.Encoder) { encodeMoney(e, c.ShippingFee) })
		e.Field("totalPrice", func(e *jx.Encoder) { encodeMoney(e, c.Total) })
	})
}

// encodeUser never writes the password.
func encodeUser(e *jx.Encoder, u *user.User) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(u.ID) })
		e.Field("firstName", func(e *jx.Encoder) { e.Str(u.FirstName) })
		e.Field("lastName", func(e *jx.Encoder) { e.Str(u.LastName) })
		e.Field("email", func(e *jx.Encoder) { e.Str(u.Email) })
		e.Field("phone", func(e *jx.Encoder) { e.Str(u.Phone) })
		e.Field("address", func(e *jx.Encoder) { e.Str(u.Address) })
		e.Field("role", func(e *jx.Encoder) { e.Str(string(u.Role)) })
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, u.CreatedAt) })
	})
}

// encodeOrder writes the order as a tree: order, then items, then each
// item's product. Items carry no reference back to the order object.
func (h *Handler) encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(o.ID) })
		e.Field("userId", func(e *jx.Encoder) { e.Int64(o.UserID) })
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, o.CreatedAt) })
		e.Field("shippingFee", func(e *jx.Encoder) { encodeMoney(e, o.ShippingFee) })
		e.Field("deliveryAddress", func(e *jx.Encoder) { e.Str(o.DeliveryAddress) })
		e.Field("paymentMethod", func(e *jx.Encoder) { e.Str(o.PaymentMethod) })
		e.Field("paymentStatus", func(e *jx.Encoder) { e.Str(o.PaymentStatus) })
		e.Field("orderStatus", func(e *jx.Encoder) { e.Str(o.OrderStatus) })
		e.Field("subTotal", func(e *jx.Encoder) { encodeMoney(e, o.SubTotal()) })
		e.Field("totalPrice", func(e *jx.Encoder) { encodeMoney(e, o.Total()) })
		if o.User != nil {
			e.Field("user", func(e *jx.Encoder) { encodeUser(e, o.User) })
		}
		e.Field("orderItems", func(e *jx.Encoder) {
			e.ArrStart()
			for i := range o.Items {
				it := &o.Items[i]
				e.Obj(func(e *jx.Encoder) {
					e.Field("id", func(e *jx.Encoder) { e.Int64(it.ID) })
					e.Field("productId", func(e *jx.Encoder) { e.Int64(it.ProductID) })
					e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
					e.Field("unitPrice", func(e *jx.Encoder) { encodeMoney(e, it.UnitPrice) })
					e.Field("product", func(e *jx.Encoder) {
						if it.Product == nil {
							e.Null()
							return
						}
						h.encodeProduct(e, it.Product)
					})
				})
			}
			e.ArrEnd()
		})
	})
}

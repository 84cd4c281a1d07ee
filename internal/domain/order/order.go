// Package order implements checkout and the order lifecycle: creating orders
// from a priced cart, role-scoped reads, and admin status changes.
package order

import (
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/webstore/store-api/internal/domain/auth"
	"github.com/webstore/store-api/internal/domain/product"
	"github.com/webstore/store-api/internal/domain/user"
)

// ErrNotFound is returned when an order does not exist or is not visible
// to the caller.
var ErrNotFound = errors.New("order not found")

// Order is a checkout captured at a point in time. Items and their unit
// prices never change after creation; only the two status fields do.
type Order struct {
	ID              int64
	UserID          int64
	CreatedAt       time.Time
	ShippingFee     decimal.Decimal
	DeliveryAddress string
	PaymentMethod   string
	PaymentStatus   string
	OrderStatus     string
	Items           []Item

	// User is the owning account, loaded on reads.
	User *user.User
}

// Item is an order line. UnitPrice is the product price at checkout.
type Item struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal

	// Product is loaded on reads and is nil once the product was deleted.
	Product *product.Product
}

// SubTotal sums unit price times quantity over all lines.
func (o *Order) SubTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

// Total is SubTotal plus the shipping fee captured at checkout.
func (o *Order) Total() decimal.Decimal {
	return o.SubTotal().Add(o.ShippingFee)
}

// Redact returns a deep copy of o that is safe to hand to callers: the
// owner's password is blanked. The stored value is left untouched.
func Redact(o *Order) *Order {
	out := *o
	if o.User != nil {
		u := o.User.Redacted()
		out.User = &u
	}
	out.Items = make([]Item, len(o.Items))
	for i, it := range o.Items {
		if it.Product != nil {
			p := *it.Product
			it.Product = &p
		}
		out.Items[i] = it
	}
	return &out
}

// Scope restricts which orders a read may see.
type Scope struct {
	// UserID limits reads to one owner unless All is set.
	UserID int64
	All    bool
}

// ScopeFor returns the read scope of caller: admins see every order,
// everyone else only their own.
func ScopeFor(caller auth.Identity) Scope {
	if caller.IsAdmin() {
		return Scope{All: true}
	}
	return Scope{UserID: caller.UserID}
}

// StatusUpdate carries the status fields to change. Nil fields are kept.
type StatusUpdate struct {
	PaymentStatus *string
	OrderStatus   *string
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create stores o and its items in one transaction, assigning ids.
	Create(ctx context.Context, o *Order) error
	Count(ctx context.Context, s Scope) (int, error)
	// List returns orders newest first, with items, products and owner loaded.
	List(ctx context.Context, s Scope, offset, limit int) ([]Order, error)
	Get(ctx context.Context, s Scope, id int64) (*Order, error)
	UpdateStatus(ctx context.Context, id int64, u StatusUpdate) error
	// Delete removes the order and its items.
	Delete(ctx context.Context, id int64) error
}

// PaymentMethod is an accepted way to pay.
type PaymentMethod struct {
	Code  string
	Label string
}

// Policy is the order configuration loaded at start. The first entry of
// each status list is the initial state.
type Policy struct {
	ShippingFee     decimal.Decimal
	PaymentMethods  []PaymentMethod
	PaymentStatuses []string
	OrderStatuses   []string
	// StrictOrderStatus makes updates reject order statuses outside OrderStatuses.
	StrictOrderStatus bool
	PageSize          int
}

// DefaultPolicy returns the stock store configuration.
func DefaultPolicy() Policy {
	return Policy{
		ShippingFee: decimal.RequireFromString("5.00"),
		PaymentMethods: []PaymentMethod{
			{Code: "cash", Label: "Cash on Delivery"},
			{Code: "paypal", Label: "Paypal"},
			{Code: "credit_card", Label: "Credit Card"},
		},
		PaymentStatuses: []string{"pending", "accepted", "canceled"},
		OrderStatuses:   []string{"created", "accepted", "canceled", "shipped", "delivered", "returned"},
		PageSize:        5,
	}
}

// Validate checks that the policy can drive order creation.
func (p Policy) Validate() error {
	switch {
	case len(p.PaymentMethods) == 0:
		return errors.New("at least one payment method is required")
	case len(p.PaymentStatuses) == 0:
		return errors.New("at least one payment status is required")
	case len(p.OrderStatuses) == 0:
		return errors.New("at least one order status is required")
	case p.ShippingFee.IsNegative():
		return errors.New("shipping fee must not be negative")
	case p.PageSize <= 0:
		return errors.New("page size must be positive")
	}
	return nil
}

func (p Policy) clone() Policy {
	p.PaymentMethods = slices.Clone(p.PaymentMethods)
	p.PaymentStatuses = slices.Clone(p.PaymentStatuses)
	p.OrderStatuses = slices.Clone(p.OrderStatuses)
	return p
}

// IsPaymentMethod reports whether code is an accepted payment method.
func (p Policy) IsPaymentMethod(code string) bool {
	return slices.ContainsFunc(p.PaymentMethods, func(m PaymentMethod) bool { return m.Code == code })
}

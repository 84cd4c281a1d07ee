package order

import (
	"context"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/go-faster/errors"

	"github.com/webstore/store-api/internal/domain/auth"
	"github.com/webstore/store-api/internal/domain/cart"
	"github.com/webstore/store-api/internal/domain/user"
	"github.com/webstore/store-api/internal/domain/validation"
	"github.com/webstore/store-api/pkg/pagination"
)

// Delivery address length bounds, in characters.
const (
	MinAddressLength = 30
	MaxAddressLength = 150
)

const msgUnableToCreate = "unable to create the order"

// CreateRequest holds the checkout input.
type CreateRequest struct {
	ProductIdentifiers string
	DeliveryAddress    string
	PaymentMethod      string
}

// Page is one window of an order listing.
type Page struct {
	Orders []Order
	Window pagination.Window
}

// UserLookup resolves the owning account.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

// CartResolver turns a cart encoding into priced lines.
type CartResolver interface {
	Resolve(ctx context.Context, encoding string) ([]cart.Item, error)
}

// Service manages the order lifecycle.
type Service struct {
	users  UserLookup
	carts  CartResolver
	orders Repository
	policy Policy
	now    func() time.Time
}

// NewService creates an order Service. The policy is copied.
func NewService(users UserLookup, carts CartResolver, orders Repository, policy Policy) *Service {
	return &Service{
		users:  users,
		carts:  carts,
		orders: orders,
		policy: policy.clone(),
		now:    time.Now,
	}
}

// PaymentMethods returns the accepted payment methods.
func (s *Service) PaymentMethods() []PaymentMethod {
	return slices.Clone(s.policy.PaymentMethods)
}

// Create checks out the caller's cart. Every precondition is checked before
// anything is written; the order and its items are then stored atomically
// with unit prices taken from the current catalog.
func (s *Service) Create(ctx context.Context, caller auth.Identity, req CreateRequest) (*Order, error) {
	if n := utf8.RuneCountInString(req.DeliveryAddress); n < MinAddressLength || n > MaxAddressLength {
		return nil, validation.New("DeliveryAddress", "the delivery address must be between 30 and 150 characters")
	}
	if !s.policy.IsPaymentMethod(req.PaymentMethod) {
		return nil, validation.New("PaymentMethod", "please select a valid payment method")
	}

	owner, err := s.users.GetByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, validation.New("Order", msgUnableToCreate)
		}
		return nil, errors.Wrap(err, "get user")
	}

	lines, err := s.carts.Resolve(ctx, req.ProductIdentifiers)
	if err != nil {
		return nil, errors.Wrap(err, "resolve cart")
	}
	if len(lines) == 0 {
		return nil, validation.New("Order", msgUnableToCreate)
	}

	o := &Order{
		UserID:          owner.ID,
		CreatedAt:       s.now().UTC(),
		ShippingFee:     s.policy.ShippingFee,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   s.policy.PaymentStatuses[0],
		OrderStatus:     s.policy.OrderStatuses[0],
		Items:           make([]Item, len(lines)),
		User:            owner,
	}
	for i, line := range lines {
		p := line.Product
		o.Items[i] = Item{
			ProductID: p.ID,
			Quantity:  line.Quantity,
			UnitPrice: p.Price,
			Product:   &p,
		}
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return Redact(o), nil
}

// List returns the caller's visible orders, newest first.
func (s *Service) List(ctx context.Context, caller auth.Identity, page int) (*Page, error) {
	scope := ScopeFor(caller)

	count, err := s.orders.Count(ctx, scope)
	if err != nil {
		return nil, errors.Wrap(err, "count orders")
	}
	w := pagination.New(count, s.policy.PageSize, page)

	out := &Page{Window: w, Orders: []Order{}}
	if w.Empty() {
		return out, nil
	}
	orders, err := s.orders.List(ctx, scope, w.Offset, w.PageSize)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	for i := range orders {
		out.Orders = append(out.Orders, *Redact(&orders[i]))
	}
	return out, nil
}

// Get returns order id if the caller may see it, else ErrNotFound.
func (s *Service) Get(ctx context.Context, caller auth.Identity, id int64) (*Order, error) {
	o, err := s.orders.Get(ctx, ScopeFor(caller), id)
	if err != nil {
		return nil, err
	}
	return Redact(o), nil
}

// Update changes the payment and/or order status of order id. Payment
// statuses must come from the configured list; order statuses are free-form
// unless the policy is strict.
func (s *Service) Update(ctx context.Context, id int64, u StatusUpdate) (*Order, error) {
	if u.PaymentStatus == nil && u.OrderStatus == nil {
		return nil, validation.New("UpdateOrder", "there is nothing to update")
	}
	if u.PaymentStatus != nil && !slices.Contains(s.policy.PaymentStatuses, *u.PaymentStatus) {
		return nil, validation.New("PaymentStatus", "the payment status is not valid")
	}
	if s.policy.StrictOrderStatus && u.OrderStatus != nil && !slices.Contains(s.policy.OrderStatuses, *u.OrderStatus) {
		return nil, validation.New("OrderStatus", "the order status is not valid")
	}

	if err := s.orders.UpdateStatus(ctx, id, u); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "update order")
	}

	o, err := s.orders.Get(ctx, Scope{All: true}, id)
	if err != nil {
		return nil, err
	}
	return Redact(o), nil
}

// Delete removes order id and its items.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.orders.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return errors.Wrap(err, "delete order")
	}
	return nil
}

package order

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webstore/store-api/internal/domain/auth"
	"github.com/webstore/store-api/internal/domain/cart"
	"github.com/webstore/store-api/internal/domain/product"
	"github.com/webstore/store-api/internal/domain/user"
	"github.com/webstore/store-api/internal/domain/validation"
)

// --- Mock implementations ---

type mockCatalog struct {
	byID map[int64]product.Product
}

func (m *mockCatalog) GetByIDs(_ context.Context, ids []int64) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockCatalog) setPrice(id int64, price string) {
	p := m.byID[id]
	p.Price = decimal.RequireFromString(price)
	m.byID[id] = p
}

type mockUsers struct {
	byID map[int64]user.User
	err  error
}

func (m *mockUsers) GetByID(_ context.Context, id int64) (*user.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

// memOrders stores orders in memory. Reads join the live catalog, as the
// database does, while unit prices come from the stored lines.
type memOrders struct {
	catalog   *mockCatalog
	users     *mockUsers
	orders    []Order
	nextID    int64
	createErr error
}

func (m *memOrders) Create(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	o.ID = m.nextID
	stored := *o
	stored.User = nil
	stored.Items = nil
	for i := range o.Items {
		o.Items[i].ID = m.nextID*100 + int64(i)
		o.Items[i].OrderID = o.ID
		it := o.Items[i]
		it.Product = nil
		stored.Items = append(stored.Items, it)
	}
	m.orders = append(m.orders, stored)
	return nil
}

func (m *memOrders) visible(s Scope) []Order {
	var out []Order
	for i := len(m.orders) - 1; i >= 0; i-- {
		if s.All || m.orders[i].UserID == s.UserID {
			out = append(out, m.load(m.orders[i]))
		}
	}
	return out
}

func (m *memOrders) load(o Order) Order {
	if u, ok := m.users.byID[o.UserID]; ok {
		o.User = &u
	}
	items := make([]Item, len(o.Items))
	for i, it := range o.Items {
		if p, ok := m.catalog.byID[it.ProductID]; ok {
			it.Product = &p
		}
		items[i] = it
	}
	o.Items = items
	return o
}

func (m *memOrders) Count(_ context.Context, s Scope) (int, error) {
	return len(m.visible(s)), nil
}

func (m *memOrders) List(_ context.Context, s Scope, offset, limit int) ([]Order, error) {
	all := m.visible(s)
	if offset >= len(all) {
		return nil, nil
	}
	return all[offset:min(offset+limit, len(all))], nil
}

func (m *memOrders) Get(_ context.Context, s Scope, id int64) (*Order, error) {
	for _, o := range m.visible(s) {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memOrders) UpdateStatus(_ context.Context, id int64, u StatusUpdate) error {
	for i := range m.orders {
		if m.orders[i].ID == id {
			if u.PaymentStatus != nil {
				m.orders[i].PaymentStatus = *u.PaymentStatus
			}
			if u.OrderStatus != nil {
				m.orders[i].OrderStatus = *u.OrderStatus
			}
			return nil
		}
	}
	return ErrNotFound
}

func (m *memOrders) Delete(_ context.Context, id int64) error {
	for i := range m.orders {
		if m.orders[i].ID == id {
			m.orders = slices.Delete(m.orders, i, i+1)
			return nil
		}
	}
	return ErrNotFound
}

// --- Helpers ---

var (
	client = auth.Identity{UserID: 1, Role: auth.RoleClient}
	other  = auth.Identity{UserID: 2, Role: auth.RoleClient}
	admin  = auth.Identity{UserID: 3, Role: auth.RoleAdmin}
)

const address = "221B Baker Street, London NW1 6XE"

type fixture struct {
	catalog *mockCatalog
	users   *mockUsers
	orders  *memOrders
	svc     *Service
}

func newFixture(t *testing.T, policy Policy) *fixture {
	t.Helper()
	require.NoError(t, policy.Validate())

	catalog := &mockCatalog{byID: map[int64]product.Product{
		9: {ID: 9, Name: "Camera", Price: decimal.RequireFromString("10.00")},
		7: {ID: 7, Name: "Cable", Price: decimal.RequireFromString("5.00")},
	}}
	users := &mockUsers{byID: map[int64]user.User{
		1: {ID: 1, Email: "client@example.com", Password: "hash-1", Role: auth.RoleClient},
		2: {ID: 2, Email: "other@example.com", Password: "hash-2", Role: auth.RoleClient},
		3: {ID: 3, Email: "admin@example.com", Password: "hash-3", Role: auth.RoleAdmin},
	}}
	orders := &memOrders{catalog: catalog, users: users}
	engine := cart.NewEngine(catalog, policy.ShippingFee)

	return &fixture{
		catalog: catalog,
		users:   users,
		orders:  orders,
		svc:     NewService(users, engine, orders, policy),
	}
}

func (f *fixture) create(t *testing.T, caller auth.Identity, encoding string) *Order {
	t.Helper()
	o, err := f.svc.Create(context.Background(), caller, CreateRequest{
		ProductIdentifiers: encoding,
		DeliveryAddress:    address,
		PaymentMethod:      "cash",
	})
	require.NoError(t, err)
	return o
}

func ptr(s string) *string { return &s }

func requireValidation(t *testing.T, err error, field string) {
	t.Helper()
	vErr, ok := validation.As(err)
	require.True(t, ok, "expected validation error, got %v", err)
	assert.Equal(t, field, vErr.Field)
}

// --- Tests ---

func TestCreate(t *testing.T) {
	f := newFixture(t, DefaultPolicy())

	o := f.create(t, client, "9-9-7")

	assert.NotZero(t, o.ID)
	assert.Equal(t, int64(1), o.UserID)
	assert.Equal(t, "pending", o.PaymentStatus)
	assert.Equal(t, "created", o.OrderStatus)
	assert.Equal(t, "cash", o.PaymentMethod)
	assert.True(t, decimal.RequireFromString("5.00").Equal(o.ShippingFee))
	assert.False(t, o.CreatedAt.IsZero())

	require.Len(t, o.Items, 2)
	assert.Equal(t, int64(7), o.Items[0].ProductID)
	assert.Equal(t, 1, o.Items[0].Quantity)
	assert.Equal(t, int64(9), o.Items[1].ProductID)
	assert.Equal(t, 2, o.Items[1].Quantity)
	assert.True(t, decimal.RequireFromString("10.00").Equal(o.Items[1].UnitPrice))
	assert.True(t, decimal.RequireFromString("30.00").Equal(o.Total()), "total %s", o.Total())

	require.NotNil(t, o.User)
	assert.Empty(t, o.User.Password)
}

func TestCreate_InitialStatusesFromPolicy(t *testing.T) {
	policy := DefaultPolicy()
	policy.PaymentStatuses = []string{"awaiting", "paid"}
	policy.OrderStatuses = []string{"new", "done"}
	f := newFixture(t, policy)

	o := f.create(t, client, "9")
	assert.Equal(t, "awaiting", o.PaymentStatus)
	assert.Equal(t, "new", o.OrderStatus)
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name      string
		caller    auth.Identity
		req       CreateRequest
		wantField string
	}{
		{
			name:      "unknown payment method",
			caller:    client,
			req:       CreateRequest{ProductIdentifiers: "9", DeliveryAddress: address, PaymentMethod: "bitcoin"},
			wantField: "PaymentMethod",
		},
		{
			name:      "short address",
			caller:    client,
			req:       CreateRequest{ProductIdentifiers: "9", DeliveryAddress: "nowhere", PaymentMethod: "cash"},
			wantField: "DeliveryAddress",
		},
		{
			name:      "long address",
			caller:    client,
			req:       CreateRequest{ProductIdentifiers: "9", DeliveryAddress: strings.Repeat("a", 151), PaymentMethod: "cash"},
			wantField: "DeliveryAddress",
		},
		{
			name:      "unknown user",
			caller:    auth.Identity{UserID: 404, Role: auth.RoleClient},
			req:       CreateRequest{ProductIdentifiers: "9", DeliveryAddress: address, PaymentMethod: "cash"},
			wantField: "Order",
		},
		{
			name:      "every product unknown",
			caller:    client,
			req:       CreateRequest{ProductIdentifiers: "404-405", DeliveryAddress: address, PaymentMethod: "cash"},
			wantField: "Order",
		},
		{
			name:      "only malformed tokens",
			caller:    client,
			req:       CreateRequest{ProductIdentifiers: "x-y", DeliveryAddress: address, PaymentMethod: "cash"},
			wantField: "Order",
		},
		{
			name:      "empty cart",
			caller:    client,
			req:       CreateRequest{ProductIdentifiers: "", DeliveryAddress: address, PaymentMethod: "cash"},
			wantField: "Order",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, DefaultPolicy())

			_, err := f.svc.Create(context.Background(), tt.caller, tt.req)
			requireValidation(t, err, tt.wantField)
			assert.Empty(t, f.orders.orders, "nothing may be persisted")
		})
	}
}

func TestCreate_DropsUnknownProducts(t *testing.T) {
	f := newFixture(t, DefaultPolicy())

	o := f.create(t, client, "9-404-x")
	require.Len(t, o.Items, 1)
	assert.Equal(t, int64(9), o.Items[0].ProductID)
}

func TestCreate_StoreFailurePersistsNothing(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	f.orders.createErr = errors.New("tx aborted")

	_, err := f.svc.Create(context.Background(), client, CreateRequest{
		ProductIdentifiers: "9-7",
		DeliveryAddress:    address,
		PaymentMethod:      "cash",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
	assert.Empty(t, f.orders.orders)
}

func TestCreate_UserLookupError(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	f.users.err = errors.New("db down")

	_, err := f.svc.Create(context.Background(), client, CreateRequest{
		ProductIdentifiers: "9",
		DeliveryAddress:    address,
		PaymentMethod:      "cash",
	})
	require.Error(t, err)
	_, isValidation := validation.As(err)
	assert.False(t, isValidation)
}

func TestUnitPriceSnapshot(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	created := f.create(t, client, "9")

	f.catalog.setPrice(9, "99.99")

	got, err := f.svc.Get(context.Background(), client, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.True(t, decimal.RequireFromString("10.00").Equal(got.Items[0].UnitPrice))
	require.NotNil(t, got.Items[0].Product)
	assert.True(t, decimal.RequireFromString("99.99").Equal(got.Items[0].Product.Price))
}

func TestList_RoleScoped(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	f.create(t, client, "9")
	f.create(t, other, "7")
	f.create(t, client, "9-7")

	mine, err := f.svc.List(context.Background(), client, 1)
	require.NoError(t, err)
	require.Len(t, mine.Orders, 2)
	for _, o := range mine.Orders {
		assert.Equal(t, client.UserID, o.UserID)
	}
	assert.Greater(t, mine.Orders[0].ID, mine.Orders[1].ID, "newest first")

	all, err := f.svc.List(context.Background(), admin, 1)
	require.NoError(t, err)
	assert.Len(t, all.Orders, 3)
	assert.Equal(t, 3, all.Window.TotalCount)
	for _, o := range all.Orders {
		require.NotNil(t, o.User)
		assert.Empty(t, o.User.Password)
	}
}

func TestList_Pages(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	for range 7 {
		f.create(t, client, "9")
	}

	second, err := f.svc.List(context.Background(), client, 2)
	require.NoError(t, err)
	assert.Len(t, second.Orders, 2)
	assert.Equal(t, 2, second.Window.TotalPages)

	beyond, err := f.svc.List(context.Background(), client, 5)
	require.NoError(t, err)
	assert.Empty(t, beyond.Orders)
	assert.Equal(t, 2, beyond.Window.TotalPages)

	empty, err := f.svc.List(context.Background(), other, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Window.TotalPages)
	assert.Equal(t, 1, empty.Window.Page)
}

func TestGet_Scoped(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	o := f.create(t, client, "9")

	_, err := f.svc.Get(context.Background(), other, o.ID)
	require.ErrorIs(t, err, ErrNotFound)

	got, err := f.svc.Get(context.Background(), admin, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = f.svc.Get(context.Background(), admin, 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGet_DoesNotLeakPasswordOrMutateStore(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	o := f.create(t, client, "9")

	got, err := f.svc.Get(context.Background(), client, o.ID)
	require.NoError(t, err)
	require.NotNil(t, got.User)
	assert.Empty(t, got.User.Password)
	assert.Equal(t, "hash-1", f.users.byID[1].Password)
}

func TestUpdate(t *testing.T) {
	tests := []struct {
		name        string
		strict      bool
		update      StatusUpdate
		wantField   string
		wantPayment string
		wantStatus  string
	}{
		{name: "nothing to update", update: StatusUpdate{}, wantField: "UpdateOrder"},
		{name: "invalid payment status", update: StatusUpdate{PaymentStatus: ptr("refunded")}, wantField: "PaymentStatus"},
		{name: "payment status", update: StatusUpdate{PaymentStatus: ptr("accepted")}, wantPayment: "accepted", wantStatus: "created"},
		{name: "free-form order status", update: StatusUpdate{OrderStatus: ptr("lost in transit")}, wantPayment: "pending", wantStatus: "lost in transit"},
		{name: "both", update: StatusUpdate{PaymentStatus: ptr("canceled"), OrderStatus: ptr("canceled")}, wantPayment: "canceled", wantStatus: "canceled"},
		{name: "strict rejects unknown order status", strict: true, update: StatusUpdate{OrderStatus: ptr("lost in transit")}, wantField: "OrderStatus"},
		{name: "strict accepts configured order status", strict: true, update: StatusUpdate{OrderStatus: ptr("shipped")}, wantPayment: "pending", wantStatus: "shipped"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := DefaultPolicy()
			policy.StrictOrderStatus = tt.strict
			f := newFixture(t, policy)
			o := f.create(t, client, "9")

			got, err := f.svc.Update(context.Background(), o.ID, tt.update)
			if tt.wantField != "" {
				requireValidation(t, err, tt.wantField)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPayment, got.PaymentStatus)
			assert.Equal(t, tt.wantStatus, got.OrderStatus)
			require.Len(t, got.Items, 1)
		})
	}
}

func TestUpdate_NotFound(t *testing.T) {
	f := newFixture(t, DefaultPolicy())

	_, err := f.svc.Update(context.Background(), 77, StatusUpdate{OrderStatus: ptr("shipped")})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	o := f.create(t, client, "9-7")

	require.NoError(t, f.svc.Delete(context.Background(), o.ID))
	_, err := f.svc.Get(context.Background(), admin, o.ID)
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, f.svc.Delete(context.Background(), o.ID), ErrNotFound)
}

func TestPolicyValidate(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())

	p := DefaultPolicy()
	p.PaymentStatuses = nil
	require.Error(t, p.Validate())

	p = DefaultPolicy()
	p.ShippingFee = decimal.NewFromInt(-1)
	require.Error(t, p.Validate())

	p = DefaultPolicy()
	p.PageSize = 0
	require.Error(t, p.Validate())
}

func TestPaymentMethodsCopied(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	methods := f.svc.PaymentMethods()
	methods[0].Code = "mutated"
	assert.Equal(t, "cash", f.svc.PaymentMethods()[0].Code)
}

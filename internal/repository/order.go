package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/webstore/store-api/internal/domain/auth"
	"github.com/webstore/store-api/internal/domain/order"
	"github.com/webstore/store-api/internal/domain/product"
	"github.com/webstore/store-api/internal/domain/user"
	"github.com/webstore/store-api/internal/events"
)

const (
	createOrderSQL = `INSERT INTO orders
		(user_id, created_at, shipping_fee, delivery_address, payment_method, payment_status, order_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`

	createOrderItemSQL = `INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4) RETURNING id`

	// scopeCond matches every row when $1 is NULL.
	scopeCond = `($1::bigint IS NULL OR o.user_id = $1)`

	orderSelect = `SELECT o.id, o.user_id, o.created_at, o.shipping_fee, o.delivery_address,
		o.payment_method, o.payment_status, o.order_status,
		u.id, u.first_name, u.last_name, u.email, u.phone, u.address, u.role, u.created_at
		FROM orders o JOIN users u ON u.id = o.user_id`

	countOrdersSQL = `SELECT count(*) FROM orders o WHERE ` + scopeCond

	listOrdersSQL = orderSelect + ` WHERE ` + scopeCond + ` ORDER BY o.id DESC LIMIT $2 OFFSET $3`

	getOrderSQL = orderSelect + ` WHERE ` + scopeCond + ` AND o.id = $2`

	listOrderItemsSQL = `SELECT i.id, i.order_id, i.product_id, i.quantity, i.unit_price,
		p.id, p.name, p.brand, p.category, p.price, p.description, p.image_filename, p.created_at
		FROM order_items i LEFT JOIN products p ON p.id = i.product_id
		WHERE i.order_id = ANY($1) ORDER BY i.order_id, i.id`

	updateOrderStatusSQL = `UPDATE orders
		SET payment_status = COALESCE($2, payment_status), order_status = COALESCE($3, order_status)
		WHERE id = $1
		RETURNING id, user_id, payment_status, order_status`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1
		RETURNING id, user_id, payment_status, order_status`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Every
// write also records an order event in the outbox within the same transaction.
type OrderRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool, now: time.Now}
}

// Create persists o with its items and an order.created event. Either all
// rows are written or none are.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, createOrderSQL,
			o.UserID, o.CreatedAt, o.ShippingFee, o.DeliveryAddress,
			o.PaymentMethod, o.PaymentStatus, o.OrderStatus,
		).Scan(&o.ID)
		if err != nil {
			return fmt.Errorf("inserting order: %w", err)
		}

		for i := range o.Items {
			it := &o.Items[i]
			it.OrderID = o.ID
			if err := tx.QueryRow(ctx, createOrderItemSQL,
				o.ID, it.ProductID, it.Quantity, it.UnitPrice,
			).Scan(&it.ID); err != nil {
				return fmt.Errorf("inserting item for product %d: %w", it.ProductID, err)
			}
		}

		return insertEvent(ctx, tx, events.ForOrder(events.OrderCreated, o, o.CreatedAt))
	})
	if err != nil {
		o.ID = 0
		for i := range o.Items {
			o.Items[i].ID, o.Items[i].OrderID = 0, 0
		}
		return fmt.Errorf("creating order: %w", err)
	}
	return nil
}

// Count returns the number of orders visible in s.
func (r *OrderRepository) Count(ctx context.Context, s order.Scope) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countOrdersSQL, scopeArg(s)).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting orders: %w", err)
	}
	return n, nil
}

// List returns one window of orders visible in s, newest first, with the
// owner, items and item products loaded.
func (r *OrderRepository) List(ctx context.Context, s order.Scope, offset, limit int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, scopeArg(s), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Get returns order id if it is visible in s.
func (r *OrderRepository) Get(ctx context.Context, s order.Scope, id int64) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, scopeArg(s), id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	orders := []order.Order{o}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// UpdateStatus sets the non-nil status fields of u and records an
// order.updated event.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, u order.StatusUpdate) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, updateOrderStatusSQL, id, u.PaymentStatus, u.OrderStatus)
		if err != nil {
			return fmt.Errorf("updating order %d: %w", id, err)
		}
		o, err := pgx.CollectExactlyOneRow(rows, scanOrderState)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return order.ErrNotFound
			}
			return fmt.Errorf("updating order %d: %w", id, err)
		}
		return insertEvent(ctx, tx, events.ForOrder(events.OrderUpdated, &o, r.now()))
	})
}

// Delete removes order id, its items by cascade, and records an
// order.deleted event.
func (r *OrderRepository) Delete(ctx context.Context, id int64) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, deleteOrderSQL, id)
		if err != nil {
			return fmt.Errorf("deleting order %d: %w", id, err)
		}
		o, err := pgx.CollectExactlyOneRow(rows, scanOrderState)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return order.ErrNotFound
			}
			return fmt.Errorf("deleting order %d: %w", id, err)
		}
		return insertEvent(ctx, tx, events.ForOrder(events.OrderDeleted, &o, r.now()))
	})
}

func (r *OrderRepository) loadItems(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	byID := make(map[int64]*order.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		byID[orders[i].ID] = &orders[i]
	}

	rows, err := r.pool.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("loading order items: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return fmt.Errorf("loading order items: %w", err)
	}
	for _, it := range items {
		if o, ok := byID[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return nil
}

func scopeArg(s order.Scope) *int64 {
	if s.All {
		return nil
	}
	return &s.UserID
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o    order.Order
		u    user.User
		role string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.CreatedAt, &o.ShippingFee, &o.DeliveryAddress,
		&o.PaymentMethod, &o.PaymentStatus, &o.OrderStatus,
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Phone, &u.Address, &role, &u.CreatedAt,
	)
	u.Role = auth.Role(role)
	o.User = &u
	return o, err
}

func scanOrderState(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(&o.ID, &o.UserID, &o.PaymentStatus, &o.OrderStatus)
	return o, err
}

// scanOrderItem reads an item row whose product columns are NULL once the
// product has been deleted.
func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var (
		it          order.Item
		pID         *int64
		name        *string
		brand       *string
		category    *string
		price       decimal.NullDecimal
		description *string
		image       *string
		createdAt   *time.Time
	)
	err := row.Scan(
		&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice,
		&pID, &name, &brand, &category, &price, &description, &image, &createdAt,
	)
	if err != nil || pID == nil {
		return it, err
	}
	it.Product = &product.Product{
		ID:            *pID,
		Name:          deref(name),
		Brand:         deref(brand),
		Category:      deref(category),
		Price:         price.Decimal,
		Description:   deref(description),
		ImageFilename: deref(image),
	}
	if createdAt != nil {
		it.Product.CreatedAt = *createdAt
	}
	return it, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

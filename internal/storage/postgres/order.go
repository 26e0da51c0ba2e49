package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/feastly/cloudkitchen/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders
		(id, customer_name, phone, address, area_id, subtotal, delivery_fee,
		 discount_type, discount_amount, coupon_id, coupon_code, total, status, rider_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	insertOrderItemSQL = `INSERT INTO order_items
		(order_id, menu_item_id, name, quantity, base_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

	insertOrderItemOptionSQL = `INSERT INTO order_item_options
		(order_item_id, option_id, name, price_delta)
		VALUES ($1, $2, $3, $4)`

	getOrderSQL = `SELECT id, customer_name, phone, address, area_id, subtotal, delivery_fee,
		discount_type, discount_amount, coupon_id, coupon_code, total, status, rider_name, created_at
		FROM orders WHERE id = $1`

	listOrdersSQL = `SELECT id, customer_name, phone, address, area_id, subtotal, delivery_fee,
		discount_type, discount_amount, coupon_id, coupon_code, total, status, rider_name, created_at
		FROM orders WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC LIMIT $2`

	getOrderItemsSQL = `SELECT id, menu_item_id, name, quantity, base_price, line_total
		FROM order_items WHERE order_id = $1 ORDER BY id`

	getItemOptionsSQL = `SELECT order_item_id, option_id, name, price_delta
		FROM order_item_options
		WHERE order_item_id = ANY($1) ORDER BY id`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, rider_name = $3 WHERE id = $1`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order header, its items, their option snapshots, and
// the coupon usage increment in a single transaction. Any failure rolls the
// whole write back; no partial order is ever visible.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.CustomerName, o.Phone, o.Address, o.AreaID,
		o.Subtotal, o.DeliveryFee, o.DiscountType, o.DiscountAmount,
		o.CouponID, o.CouponCode, o.Total, string(o.Status), o.RiderName, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting order %q: %w", o.ID, err)
	}

	for i := range o.Items {
		item := &o.Items[i]
		err = tx.QueryRow(ctx, insertOrderItemSQL,
			o.ID, item.MenuItemID, item.Name, item.Quantity, item.BasePrice, item.LineTotal,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("inserting order item %q: %w", item.MenuItemID, err)
		}

		for _, opt := range item.Options {
			_, err = tx.Exec(ctx, insertOrderItemOptionSQL,
				item.ID, opt.OptionID, opt.Name, opt.PriceDelta,
			)
			if err != nil {
				return fmt.Errorf("inserting option %q for item %q: %w", opt.OptionID, item.MenuItemID, err)
			}
		}
	}

	if o.CouponID != nil {
		if err := consumeCoupon(ctx, tx, *o.CouponID); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns an order with its items and option snapshots.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	if err := r.loadItems(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// List returns order headers, newest first, optionally filtered by status.
// Items are not loaded; use GetByID for the full order.
func (r *OrderRepository) List(ctx context.Context, f order.ListFilter) ([]order.Order, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, listOrdersSQL, string(f.Status), limit)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus sets an order's status and rider name.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status, riderName string) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(status), riderName)
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// Delete removes an order; items and option snapshots cascade.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return fmt.Errorf("deleting order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) loadItems(ctx context.Context, o *order.Order) error {
	rows, err := r.pool.Query(ctx, getOrderItemsSQL, o.ID)
	if err != nil {
		return fmt.Errorf("loading items of order %q: %w", o.ID, err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Item, error) {
		var item order.Item
		err := row.Scan(&item.ID, &item.MenuItemID, &item.Name, &item.Quantity, &item.BasePrice, &item.LineTotal)
		return item, err
	})
	if err != nil {
		return fmt.Errorf("loading items of order %q: %w", o.ID, err)
	}
	if len(items) == 0 {
		o.Items = items
		return nil
	}

	itemIDs := make([]int64, len(items))
	index := make(map[int64]int, len(items))
	for i, item := range items {
		itemIDs[i] = item.ID
		index[item.ID] = i
	}

	optRows, err := r.pool.Query(ctx, getItemOptionsSQL, itemIDs)
	if err != nil {
		return fmt.Errorf("loading options of order %q: %w", o.ID, err)
	}

	type itemOption struct {
		itemID int64
		opt    order.ItemOption
	}
	opts, err := pgx.CollectRows(optRows, func(row pgx.CollectableRow) (itemOption, error) {
		var io itemOption
		err := row.Scan(&io.itemID, &io.opt.OptionID, &io.opt.Name, &io.opt.PriceDelta)
		return io, err
	})
	if err != nil {
		return fmt.Errorf("loading options of order %q: %w", o.ID, err)
	}

	for _, io := range opts {
		i := index[io.itemID]
		items[i].Options = append(items[i].Options, io.opt)
	}
	o.Items = items
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.CustomerName, &o.Phone, &o.Address, &o.AreaID,
		&o.Subtotal, &o.DeliveryFee, &o.DiscountType, &o.DiscountAmount,
		&o.CouponID, &o.CouponCode, &o.Total, &status, &o.RiderName, &o.CreatedAt,
	)
	o.Status = order.Status(status)
	return o, err
}

package postgres

import (
	"context"
	"time"

	domain "github.com/kuromall/api/internal/domain"
)

// OrderRepository persists order headers in the orders table.
type OrderRepository struct {
	store *Store
}

// NewOrderRepository constructs a Postgres-backed order repository.
func NewOrderRepository(store *Store) *OrderRepository {
	return &OrderRepository{store: store}
}

const orderColumns = `id, order_no, user_id, shop_id,
	total_amount::text, pay_amount::text, status,
	receiver_name, receiver_phone, receiver_address,
	created_at, updated_at, pay_time, ship_time, complete_time, cancel_time`

// Insert stores a freshly created order header.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	const query = `
		INSERT INTO orders (
			id, order_no, user_id, shop_id,
			total_amount, pay_amount, status,
			receiver_name, receiver_phone, receiver_address,
			created_at, updated_at, pay_time, ship_time, complete_time, cancel_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.store.db(ctx).Exec(ctx, query,
		order.ID, order.OrderNo, order.UserID, order.ShopID,
		order.TotalAmount.String(), order.PayAmount.String(), string(order.Status),
		order.Receiver.Name, order.Receiver.Phone, order.Receiver.Address,
		order.CreatedAt, order.UpdatedAt,
		order.PayTime, order.ShipTime, order.CompleteTime, order.CancelTime,
	)
	return wrapError("orders.insert", err)
}

// Update rewrites the mutable header fields of an existing order.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	const query = `
		UPDATE orders SET
			status = $2, updated_at = $3,
			pay_time = $4, ship_time = $5, complete_time = $6, cancel_time = $7
		WHERE id = $1`

	tag, err := r.store.db(ctx).Exec(ctx, query,
		order.ID, string(order.Status), order.UpdatedAt,
		order.PayTime, order.ShipTime, order.CompleteTime, order.CancelTime,
	)
	if err != nil {
		return wrapError("orders.update", err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundError("orders.update", "order "+order.ID+" not found")
	}
	return nil
}

// FindByID loads one order header by its identifier.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	return r.findOne(ctx, "orders.findByID", `WHERE id = $1`, orderID)
}

// FindByOrderNo loads one order header by its human-facing number.
func (r *OrderRepository) FindByOrderNo(ctx context.Context, orderNo string) (domain.Order, error) {
	return r.findOne(ctx, "orders.findByOrderNo", `WHERE order_no = $1`, orderNo)
}

func (r *OrderRepository) findOne(ctx context.Context, op string, where string, arg any) (domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ` + where

	var (
		order                  domain.Order
		totalAmount, payAmount string
		status                 string
	)
	err := r.store.db(ctx).QueryRow(ctx, query, arg).Scan(
		&order.ID, &order.OrderNo, &order.UserID, &order.ShopID,
		&totalAmount, &payAmount, &status,
		&order.Receiver.Name, &order.Receiver.Phone, &order.Receiver.Address,
		&order.CreatedAt, &order.UpdatedAt,
		&order.PayTime, &order.ShipTime, &order.CompleteTime, &order.CancelTime,
	)
	if err != nil {
		return domain.Order{}, wrapError(op, err)
	}

	if order.TotalAmount, err = domain.ParseMoney(totalAmount); err != nil {
		return domain.Order{}, wrapError(op, err)
	}
	if order.PayAmount, err = domain.ParseMoney(payAmount); err != nil {
		return domain.Order{}, wrapError(op, err)
	}
	order.Status = domain.OrderStatus(status)
	normalizeOrderTimes(&order)
	return order, nil
}

func normalizeOrderTimes(order *domain.Order) {
	order.CreatedAt = order.CreatedAt.UTC()
	order.UpdatedAt = order.UpdatedAt.UTC()
	for _, ts := range []**time.Time{&order.PayTime, &order.ShipTime, &order.CompleteTime, &order.CancelTime} {
		if *ts != nil {
			utc := (**ts).UTC()
			*ts = &utc
		}
	}
}

package postgres

import (
	"context"

	domain "github.com/kuromall/api/internal/domain"
)

// OrderItemRepository persists immutable order lines.
type OrderItemRepository struct {
	store *Store
}

// NewOrderItemRepository constructs a Postgres-backed order item repository.
func NewOrderItemRepository(store *Store) *OrderItemRepository {
	return &OrderItemRepository{store: store}
}

// InsertAll stores every line of a new order.
func (r *OrderItemRepository) InsertAll(ctx context.Context, items []domain.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	const query = `
		INSERT INTO order_items (
			id, order_id, product_id, sku_id, sku_name, sku_specs,
			price, quantity, line_total, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	db := r.store.db(ctx)
	for _, item := range items {
		_, err := db.Exec(ctx, query,
			item.ID, item.OrderID, item.ProductID, item.SkuID, item.SkuName, item.SkuSpecs,
			item.Price.String(), item.Quantity.Int(), item.LineTotal.String(), item.CreatedAt,
		)
		if err != nil {
			return wrapError("orderItems.insertAll", err)
		}
	}
	return nil
}

// ListByOrder returns the lines of one order in creation order.
func (r *OrderItemRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	const query = `
		SELECT id, order_id, product_id, sku_id, sku_name, sku_specs,
			price::text, quantity, line_total::text, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at, id`

	rows, err := r.store.db(ctx).Query(ctx, query, orderID)
	if err != nil {
		return nil, wrapError("orderItems.listByOrder", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var (
			item             domain.OrderItem
			price, lineTotal string
			quantity         int
		)
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.SkuID, &item.SkuName, &item.SkuSpecs,
			&price, &quantity, &lineTotal, &item.CreatedAt,
		); err != nil {
			return nil, wrapError("orderItems.listByOrder", err)
		}
		if item.Price, err = domain.ParseMoney(price); err != nil {
			return nil, wrapError("orderItems.listByOrder", err)
		}
		if item.LineTotal, err = domain.ParseMoney(lineTotal); err != nil {
			return nil, wrapError("orderItems.listByOrder", err)
		}
		if item.Quantity, err = domain.NewQuantity(quantity); err != nil {
			return nil, wrapError("orderItems.listByOrder", err)
		}
		item.CreatedAt = item.CreatedAt.UTC()
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("orderItems.listByOrder", err)
	}
	return items, nil
}

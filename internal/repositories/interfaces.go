package repositories

import (
	"context"

	domain "github.com/kuromall/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork groups repository operations into a single all-or-nothing
// transaction. Every write issued through the context passed to fn joins
// the same transaction; any error aborts all of them.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderRepository persists order headers.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindByOrderNo(ctx context.Context, orderNo string) (domain.Order, error)
}

// OrderItemRepository persists immutable order lines.
type OrderItemRepository interface {
	InsertAll(ctx context.Context, items []domain.OrderItem) error
	ListByOrder(ctx context.Context, orderID string) ([]domain.OrderItem, error)
}

// OrderStatusLogRepository appends immutable transition audit records.
type OrderStatusLogRepository interface {
	Append(ctx context.Context, log domain.OrderStatusLog) error
	ListByOrder(ctx context.Context, orderID string) ([]domain.OrderStatusLog, error)
}

// SkuRepository reads SKU snapshots and owns the stock counter mutations.
type SkuRepository interface {
	FindByID(ctx context.Context, skuID string) (domain.ProductSku, error)

	// DecreaseStock performs a single compare-and-swap decrement: the
	// update applies only when the row's stock still equals expectedStock
	// and covers quantity. It returns the number of rows affected (0 or
	// 1); zero means a lost race or insufficient stock, indistinguishably.
	DecreaseStock(ctx context.Context, skuID string, quantity int, expectedStock int) (int64, error)

	// IncreaseStock unconditionally adds quantity back to the counter.
	// Restoration cannot oversell, so no version token is required.
	IncreaseStock(ctx context.Context, skuID string, quantity int) error
}

// ProductRepository exposes read-only purchasability state.
type ProductRepository interface {
	FindByID(ctx context.Context, productID string) (domain.Product, error)
}

// PaymentRepository persists payment records keyed by id, number, and order.
type PaymentRepository interface {
	Insert(ctx context.Context, payment domain.Payment) error
	Update(ctx context.Context, payment domain.Payment) error
	FindByPaymentNo(ctx context.Context, paymentNo string) (domain.Payment, error)
	FindByOrderID(ctx context.Context, orderID string) (domain.Payment, error)
}

// CartItemRepository removes originating cart lines after checkout.
type CartItemRepository interface {
	DeleteByIDs(ctx context.Context, userID string, itemIDs []string) error
}

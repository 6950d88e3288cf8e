package services

import (
	"context"
	"time"

	domain "github.com/kuromall/api/internal/domain"
)

// OrderLine is one requested purchase line in a create-order command.
type OrderLine struct {
	SkuID    string
	Quantity int
}

// CreateOrderCommand carries everything needed to place a new order.
// CartItemIDs names the cart lines to clean up after the order commits;
// it may be empty for direct purchases.
type CreateOrderCommand struct {
	UserID      string
	ShopID      string
	Receiver    domain.Receiver
	Lines       []OrderLine
	CartItemIDs []string
}

// GetOrderQuery identifies an order scoped to its owner.
type GetOrderQuery struct {
	UserID  string
	OrderID string
}

// PayOrderCommand marks an order as paid after settlement.
type PayOrderCommand struct {
	OrderID  string
	Operator string
	Remark   string
}

// CancelOrderCommand cancels a pending order on behalf of its owner.
type CancelOrderCommand struct {
	UserID  string
	OrderID string
	Reason  string
}

// ShipOrderCommand records shipment of a paid order. Shipping is a staff
// operation, so no owner scoping applies.
type ShipOrderCommand struct {
	OrderID  string
	Operator string
}

// CompleteOrderCommand confirms receipt of a shipped order.
type CompleteOrderCommand struct {
	UserID  string
	OrderID string
}

// OrderService orchestrates the fulfillment lifecycle of orders.
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error)
	GetOrder(ctx context.Context, query GetOrderQuery) (domain.Order, error)
	PayOrder(ctx context.Context, cmd PayOrderCommand) (domain.Order, error)
	CancelOrder(ctx context.Context, cmd CancelOrderCommand) (domain.Order, error)
	ShipOrder(ctx context.Context, cmd ShipOrderCommand) (domain.Order, error)
	CompleteOrder(ctx context.Context, cmd CompleteOrderCommand) (domain.Order, error)
}

// InventoryService owns the stock counters backing order fulfillment.
type InventoryService interface {
	// DecreaseStock attempts a single compare-and-swap decrement and
	// fails closed: a lost race and genuinely short stock both surface
	// as ErrInsufficientStock.
	DecreaseStock(ctx context.Context, skuID string, quantity int) error

	// IncreaseStock restores quantity to the counter, typically after a
	// cancellation.
	IncreaseStock(ctx context.Context, skuID string, quantity int) error
}

// CreatePaymentCommand opens a settlement attempt for an order.
type CreatePaymentCommand struct {
	UserID  string
	OrderID string
	Method  domain.PaymentMethod
}

// SettlePaymentCommand carries a gateway notification for one payment.
type SettlePaymentCommand struct {
	PaymentNo     string
	TransactionID string
}

// RefundCommand requests a refund for a settled order.
type RefundCommand struct {
	UserID  string
	OrderID string
	Reason  string
}

// PaymentService coordinates payment settlement and the refund flow,
// keeping the owning order's status in step with each outcome.
type PaymentService interface {
	CreatePayment(ctx context.Context, cmd CreatePaymentCommand) (domain.Payment, error)
	HandlePaymentSuccess(ctx context.Context, cmd SettlePaymentCommand) (domain.Payment, error)
	HandlePaymentFailed(ctx context.Context, cmd SettlePaymentCommand) (domain.Payment, error)
	ApplyRefund(ctx context.Context, cmd RefundCommand) (domain.Payment, error)
	HandleRefundSuccess(ctx context.Context, cmd SettlePaymentCommand) (domain.Payment, error)
	HandleRefundFailed(ctx context.Context, cmd SettlePaymentCommand) (domain.Payment, error)
}

// OrderEventMessage is published after an order transition commits.
type OrderEventMessage struct {
	Type       string
	OrderID    string
	OrderNo    string
	UserID     string
	Status     string
	OccurredAt time.Time
}

// PaymentEventMessage is published after a payment transition commits.
type PaymentEventMessage struct {
	Type       string
	PaymentNo  string
	OrderID    string
	OrderNo    string
	Amount     string
	Status     string
	OccurredAt time.Time
}

// StockEventMessage is published after a stock counter changes.
type StockEventMessage struct {
	Type       string
	SkuID      string
	Quantity   int
	OccurredAt time.Time
}

// OrderEventPublisher delivers order lifecycle events to interested consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEventMessage) error
}

// PaymentEventPublisher delivers payment lifecycle events.
type PaymentEventPublisher interface {
	PublishPaymentEvent(ctx context.Context, event PaymentEventMessage) error
}

// StockEventPublisher delivers stock movement events.
type StockEventPublisher interface {
	PublishStockEvent(ctx context.Context, event StockEventMessage) error
}

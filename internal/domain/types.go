package domain

import (
	"time"
)

// Receiver is the delivery snapshot frozen onto an order at creation time.
type Receiver struct {
	Name    string
	Phone   string
	Address string
}

// Order is the aggregate root for a purchase. Its status changes only via
// Apply; totals are fixed at creation time and never recomputed.
type Order struct {
	ID           string
	OrderNo      string
	UserID       string
	ShopID       string
	TotalAmount  Money
	PayAmount    Money
	Status       OrderStatus
	Receiver     Receiver
	Items        []OrderItem
	CreatedAt    time.Time
	UpdatedAt    time.Time
	PayTime      *time.Time
	ShipTime     *time.Time
	CompleteTime *time.Time
	CancelTime   *time.Time
}

// Apply advances the order through the transition table and stamps the
// timestamp matching the event. It is the only mutation path for Status.
func (o *Order) Apply(event OrderEvent, now time.Time) error {
	next, err := o.Status.Next(event)
	if err != nil {
		return err
	}
	o.Status = next
	o.UpdatedAt = now

	switch event {
	case OrderEventPay:
		o.PayTime = &now
	case OrderEventShip:
		o.ShipTime = &now
	case OrderEventConfirm:
		o.CompleteTime = &now
	case OrderEventCancel:
		o.CancelTime = &now
	}
	return nil
}

// OrderItem is an immutable order line created once at order creation.
// LineTotal is always recomputed from Price x Quantity before persistence.
type OrderItem struct {
	ID        string
	OrderID   string
	ProductID string
	SkuID     string
	SkuName   string
	SkuSpecs  string
	Price     Money
	Quantity  Quantity
	LineTotal Money
	CreatedAt time.Time
}

// RecomputeLineTotal refreshes LineTotal from the price and quantity snapshot.
func (i *OrderItem) RecomputeLineTotal() {
	i.LineTotal = i.Price.MulQuantity(i.Quantity)
}

// OrderStatusLog is an append-only audit record of a single order
// transition. Never mutated or deleted.
type OrderStatusLog struct {
	ID        string
	OrderID   string
	OldStatus OrderStatus
	NewStatus OrderStatus
	Remark    string
	Operator  string
	CreatedAt time.Time
}

// ProductStatus enumerates purchasability states for catalog products.
type ProductStatus string

const (
	// ProductStatusOnSale indicates the product can be ordered.
	ProductStatusOnSale ProductStatus = "on_sale"
	// ProductStatusOffShelf indicates the product is withdrawn from sale.
	ProductStatusOffShelf ProductStatus = "off_shelf"
)

// Product carries the read-only purchasability state the fulfillment flow checks.
type Product struct {
	ID     string
	ShopID string
	Name   string
	Status ProductStatus
}

// Purchasable reports whether orders may reference the product.
func (p Product) Purchasable() bool {
	return p.Status == ProductStatusOnSale
}

// ProductSku is a purchasable variant carrying its own price and stock.
// Stock is never negative and is decremented only through the
// compare-and-swap repository operation.
type ProductSku struct {
	ID        string
	ProductID string
	Name      string
	Specs     string
	Price     Money
	Stock     Quantity
	UpdatedAt time.Time
}

// PaymentMethod enumerates supported settlement channels.
type PaymentMethod string

const (
	// PaymentMethodAlipay settles through the Alipay gateway.
	PaymentMethodAlipay PaymentMethod = "alipay"
	// PaymentMethodWechat settles through the WeChat Pay gateway.
	PaymentMethodWechat PaymentMethod = "wechat"
	// PaymentMethodBalance settles against the user's stored balance.
	PaymentMethodBalance PaymentMethod = "balance"
)

// Payment records a settlement attempt for an order. At most one payment
// exists per order; its status changes only via Apply.
type Payment struct {
	ID            string
	PaymentNo     string
	OrderID       string
	OrderNo       string
	Method        PaymentMethod
	Amount        Money
	Status        PaymentStatus
	TransactionID *string
	PayTime       *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Apply advances the payment through the transition table and stamps the
// settlement time on success. It is the only mutation path for Status.
func (p *Payment) Apply(event PaymentEvent, now time.Time) error {
	next, err := p.Status.Next(event)
	if err != nil {
		return err
	}
	p.Status = next
	p.UpdatedAt = now

	if event == PaymentEventPaySuccess {
		p.PayTime = &now
	}
	return nil
}

// CartItem is a cart line referenced during checkout; fulfillment deletes
// the originating lines after an order is placed.
type CartItem struct {
	ID        string
	UserID    string
	ProductID string
	SkuID     string
	Quantity  Quantity
	AddedAt   time.Time
}

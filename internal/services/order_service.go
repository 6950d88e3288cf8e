package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/kuromall/api/internal/domain"
	"github.com/kuromall/api/internal/repositories"
)

const (
	eventOrderCreated   = "order.created"
	eventOrderPaid      = "order.paid"
	eventOrderCancelled = "order.cancelled"
	eventOrderShipped   = "order.shipped"
	eventOrderCompleted = "order.completed"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid arguments.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrUnauthorized indicates the caller does not own the order.
	ErrUnauthorized = errors.New("order: unauthorized")
	// ErrProductUnavailable indicates a referenced product is off shelf or missing.
	ErrProductUnavailable = errors.New("order: product unavailable")
)

// OrderServiceDeps bundles the collaborators required to construct an order service.
type OrderServiceDeps struct {
	UnitOfWork repositories.UnitOfWork
	Orders     repositories.OrderRepository
	OrderItems repositories.OrderItemRepository
	StatusLogs repositories.OrderStatusLogRepository
	Skus       repositories.SkuRepository
	Products   repositories.ProductRepository
	CartItems  repositories.CartItemRepository
	Inventory  InventoryService
	Events     OrderEventPublisher

	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	uow        repositories.UnitOfWork
	orders     repositories.OrderRepository
	orderItems repositories.OrderItemRepository
	statusLogs repositories.OrderStatusLogRepository
	skus       repositories.SkuRepository
	products   repositories.ProductRepository
	cartItems  repositories.CartItemRepository
	inventory  InventoryService
	events     OrderEventPublisher

	clock  func() time.Time
	newID  func() string
	logger func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	switch {
	case deps.Orders == nil:
		return nil, errors.New("order service: order repository is required")
	case deps.OrderItems == nil:
		return nil, errors.New("order service: order item repository is required")
	case deps.StatusLogs == nil:
		return nil, errors.New("order service: status log repository is required")
	case deps.Skus == nil:
		return nil, errors.New("order service: sku repository is required")
	case deps.Products == nil:
		return nil, errors.New("order service: product repository is required")
	case deps.Inventory == nil:
		return nil, errors.New("order service: inventory service is required")
	}

	uow := deps.UnitOfWork
	if uow == nil {
		uow = noopUnitOfWork{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		uow:        uow,
		orders:     deps.Orders,
		orderItems: deps.OrderItems,
		statusLogs: deps.StatusLogs,
		skus:       deps.Skus,
		products:   deps.Products,
		cartItems:  deps.CartItems,
		inventory:  deps.Inventory,
		events:     deps.Events,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *orderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error) {
	if err := validateCreateOrder(cmd); err != nil {
		return domain.Order{}, err
	}

	now := s.clock()
	seed := s.newID()
	order := domain.Order{
		ID:        "ord_" + seed,
		OrderNo:   "SO-" + seed,
		UserID:    strings.TrimSpace(cmd.UserID),
		ShopID:    strings.TrimSpace(cmd.ShopID),
		Status:    domain.OrderStatusPending,
		Receiver:  cmd.Receiver,
		CreatedAt: now,
		UpdatedAt: now,
	}

	items, total, err := s.buildOrderLines(ctx, order.ID, cmd.Lines, now)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items
	order.TotalAmount = total
	order.PayAmount = total

	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		// Decrement every line first so a short SKU aborts before any
		// order row exists.
		for _, item := range items {
			if err := s.inventory.DecreaseStock(ctx, item.SkuID, item.Quantity.Int()); err != nil {
				return err
			}
		}
		if err := s.orders.Insert(ctx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		if err := s.orderItems.InsertAll(ctx, items); err != nil {
			return s.mapRepositoryError(err)
		}
		return s.appendStatusLog(ctx, order.ID, "", order.Status, "order created", order.UserID, now)
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.cleanupCartLines(ctx, order.UserID, cmd.CartItemIDs)
	s.publish(ctx, eventOrderCreated, order)

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, query GetOrderQuery) (domain.Order, error) {
	userID := strings.TrimSpace(query.UserID)
	orderID := strings.TrimSpace(query.OrderID)
	if userID == "" {
		return domain.Order{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}
	if order.UserID != userID {
		return domain.Order{}, fmt.Errorf("%w: order %s", ErrUnauthorized, orderID)
	}

	items, err := s.orderItems.ListByOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}
	order.Items = items
	return order, nil
}

func (s *orderService) PayOrder(ctx context.Context, cmd PayOrderCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	remark := strings.TrimSpace(cmd.Remark)
	if remark == "" {
		remark = "payment settled"
	}
	order, err := s.applyTransition(ctx, orderID, domain.OrderEventPay, remark, operatorOrSystem(cmd.Operator), nil)
	if err != nil {
		return domain.Order{}, err
	}
	s.publish(ctx, eventOrderPaid, order)
	return order, nil
}

func (s *orderService) CancelOrder(ctx context.Context, cmd CancelOrderCommand) (domain.Order, error) {
	userID := strings.TrimSpace(cmd.UserID)
	orderID := strings.TrimSpace(cmd.OrderID)
	if userID == "" {
		return domain.Order{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	remark := strings.TrimSpace(cmd.Reason)
	if remark == "" {
		remark = "cancelled by user"
	}

	// Stock restoration joins the cancellation transaction: either the
	// order is cancelled and every line is restocked, or neither happens.
	var result domain.Order
	err := s.uow.RunInTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return s.mapRepositoryError(err)
		}
		if order.UserID != userID {
			return fmt.Errorf("%w: order %s", ErrUnauthorized, orderID)
		}

		oldStatus := order.Status
		now := s.clock()
		if err := order.Apply(domain.OrderEventCancel, now); err != nil {
			return err
		}
		if err := s.orders.Update(ctx, order); err != nil {
			return s.mapRepositoryError(err)
		}

		items, err := s.orderItems.ListByOrder(ctx, orderID)
		if err != nil {
			return s.mapRepositoryError(err)
		}
		for _, item := range items {
			if err := s.inventory.IncreaseStock(ctx, item.SkuID, item.Quantity.Int()); err != nil {
				return err
			}
		}

		if err := s.appendStatusLog(ctx, order.ID, oldStatus, order.Status, remark, userID, now); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	s.publish(ctx, eventOrderCancelled, result)
	return result, nil
}

func (s *orderService) ShipOrder(ctx context.Context, cmd ShipOrderCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.applyTransition(ctx, orderID, domain.OrderEventShip, "order shipped", operatorOrSystem(cmd.Operator), nil)
	if err != nil {
		return domain.Order{}, err
	}
	s.publish(ctx, eventOrderShipped, order)
	return order, nil
}

func (s *orderService) CompleteOrder(ctx context.Context, cmd CompleteOrderCommand) (domain.Order, error) {
	userID := strings.TrimSpace(cmd.UserID)
	orderID := strings.TrimSpace(cmd.OrderID)
	if userID == "" {
		return domain.Order{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.applyTransition(ctx, orderID, domain.OrderEventConfirm, "receipt confirmed", userID, func(_ context.Context, order domain.Order) error {
		if order.UserID != userID {
			return fmt.Errorf("%w: order %s", ErrUnauthorized, orderID)
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	s.publish(ctx, eventOrderCompleted, order)
	return order, nil
}

// applyTransition loads the order, runs the optional guard, applies the
// event, and persists the new state plus an audit record inside one
// transaction. The guard sees the order before the transition.
func (s *orderService) applyTransition(ctx context.Context, orderID string, event domain.OrderEvent, remark, operator string, guard func(ctx context.Context, order domain.Order) error) (domain.Order, error) {
	var result domain.Order
	err := s.uow.RunInTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return s.mapRepositoryError(err)
		}
		if guard != nil {
			if err := guard(ctx, order); err != nil {
				return err
			}
		}

		oldStatus := order.Status
		now := s.clock()
		if err := order.Apply(event, now); err != nil {
			return err
		}
		if err := s.orders.Update(ctx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		if err := s.appendStatusLog(ctx, order.ID, oldStatus, order.Status, remark, operator, now); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

func (s *orderService) buildOrderLines(ctx context.Context, orderID string, lines []OrderLine, now time.Time) ([]domain.OrderItem, domain.Money, error) {
	total := domain.ZeroMoney()
	items := make([]domain.OrderItem, 0, len(lines))

	for _, line := range lines {
		sku, err := s.skus.FindByID(ctx, strings.TrimSpace(line.SkuID))
		if err != nil {
			if isNotFound(err) {
				return nil, domain.Money{}, fmt.Errorf("%w: sku %s", ErrProductUnavailable, line.SkuID)
			}
			return nil, domain.Money{}, s.mapRepositoryError(err)
		}
		product, err := s.products.FindByID(ctx, sku.ProductID)
		if err != nil {
			if isNotFound(err) {
				return nil, domain.Money{}, fmt.Errorf("%w: product %s", ErrProductUnavailable, sku.ProductID)
			}
			return nil, domain.Money{}, s.mapRepositoryError(err)
		}
		if !product.Purchasable() {
			return nil, domain.Money{}, fmt.Errorf("%w: product %s is off shelf", ErrProductUnavailable, product.ID)
		}

		quantity, err := domain.NewQuantity(line.Quantity)
		if err != nil || quantity.IsZero() {
			return nil, domain.Money{}, fmt.Errorf("%w: quantity for sku %s must be positive", ErrOrderInvalidInput, sku.ID)
		}

		item := domain.OrderItem{
			ID:        "itm_" + s.newID(),
			OrderID:   orderID,
			ProductID: product.ID,
			SkuID:     sku.ID,
			SkuName:   sku.Name,
			SkuSpecs:  sku.Specs,
			Price:     sku.Price,
			Quantity:  quantity,
			CreatedAt: now,
		}
		item.RecomputeLineTotal()

		total = total.Add(item.LineTotal)
		items = append(items, item)
	}
	return items, total, nil
}

func (s *orderService) appendStatusLog(ctx context.Context, orderID string, oldStatus, newStatus domain.OrderStatus, remark, operator string, now time.Time) error {
	log := domain.OrderStatusLog{
		ID:        "olg_" + s.newID(),
		OrderID:   orderID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Remark:    remark,
		Operator:  operator,
		CreatedAt: now,
	}
	if err := s.statusLogs.Append(ctx, log); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

// cleanupCartLines runs after the order transaction committed. A failure
// leaves stale cart lines behind, which is preferable to losing the order.
func (s *orderService) cleanupCartLines(ctx context.Context, userID string, itemIDs []string) {
	if s.cartItems == nil || len(itemIDs) == 0 {
		return
	}
	if err := s.cartItems.DeleteByIDs(ctx, userID, itemIDs); err != nil {
		s.logger(ctx, "cart_cleanup_failed", map[string]any{
			"userId": userID,
			"error":  err.Error(),
		})
	}
}

func (s *orderService) publish(ctx context.Context, eventType string, order domain.Order) {
	if s.events == nil {
		return
	}
	event := OrderEventMessage{
		Type:       eventType,
		OrderID:    order.ID,
		OrderNo:    order.OrderNo,
		UserID:     order.UserID,
		Status:     string(order.Status),
		OccurredAt: s.clock(),
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order_event_publish_failed", map[string]any{
			"orderId": order.ID,
			"type":    eventType,
			"error":   err.Error(),
		})
	}
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
	}
	return err
}

func validateCreateOrder(cmd CreateOrderCommand) error {
	if strings.TrimSpace(cmd.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	if strings.TrimSpace(cmd.ShopID) == "" {
		return fmt.Errorf("%w: shop id is required", ErrOrderInvalidInput)
	}
	if len(cmd.Lines) == 0 {
		return fmt.Errorf("%w: at least one line is required", ErrOrderInvalidInput)
	}
	if strings.TrimSpace(cmd.Receiver.Name) == "" ||
		strings.TrimSpace(cmd.Receiver.Phone) == "" ||
		strings.TrimSpace(cmd.Receiver.Address) == "" {
		return fmt.Errorf("%w: receiver name, phone and address are required", ErrOrderInvalidInput)
	}
	for _, line := range cmd.Lines {
		if strings.TrimSpace(line.SkuID) == "" {
			return fmt.Errorf("%w: line sku id is required", ErrOrderInvalidInput)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: quantity for sku %s must be positive", ErrOrderInvalidInput, line.SkuID)
		}
	}
	return nil
}

func operatorOrSystem(operator string) string {
	operator = strings.TrimSpace(operator)
	if operator == "" {
		return "system"
	}
	return operator
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

type noopUnitOfWork struct{}

func (noopUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	domain "github.com/kuromall/api/internal/domain"
)

type stubInventoryService struct {
	decreaseFn func(ctx context.Context, skuID string, quantity int) error
	increased  []string
	decreased  []string
}

func (s *stubInventoryService) DecreaseStock(ctx context.Context, skuID string, quantity int) error {
	if s.decreaseFn != nil {
		if err := s.decreaseFn(ctx, skuID, quantity); err != nil {
			return err
		}
	}
	s.decreased = append(s.decreased, fmt.Sprintf("%s:%d", skuID, quantity))
	return nil
}

func (s *stubInventoryService) IncreaseStock(ctx context.Context, skuID string, quantity int) error {
	s.increased = append(s.increased, fmt.Sprintf("%s:%d", skuID, quantity))
	return nil
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%04d", prefix, n)
	}
}

func testCatalog() (*stubSkuRepository, *stubProductRepository) {
	skus := map[string]domain.ProductSku{
		"sku-a": {ID: "sku-a", ProductID: "prod-1", Name: "Widget A", Specs: "red", Price: domain.MustMoney("10.00"), Stock: domain.MustQuantity(5)},
		"sku-b": {ID: "sku-b", ProductID: "prod-2", Name: "Widget B", Specs: "blue", Price: domain.MustMoney("5.50"), Stock: domain.MustQuantity(3)},
	}
	products := map[string]domain.Product{
		"prod-1": {ID: "prod-1", ShopID: "shop-1", Name: "Widget A", Status: domain.ProductStatusOnSale},
		"prod-2": {ID: "prod-2", ShopID: "shop-1", Name: "Widget B", Status: domain.ProductStatusOnSale},
	}

	skuRepo := &stubSkuRepository{
		findByIDFn: func(ctx context.Context, skuID string) (domain.ProductSku, error) {
			sku, ok := skus[skuID]
			if !ok {
				return domain.ProductSku{}, &repositoryErrorStub{notFound: true}
			}
			return sku, nil
		},
	}
	productRepo := &stubProductRepository{
		findByIDFn: func(ctx context.Context, productID string) (domain.Product, error) {
			product, ok := products[productID]
			if !ok {
				return domain.Product{}, &repositoryErrorStub{notFound: true}
			}
			return product, nil
		},
	}
	return skuRepo, productRepo
}

func validCreateOrderCommand() CreateOrderCommand {
	return CreateOrderCommand{
		UserID: "user-1",
		ShopID: "shop-1",
		Receiver: domain.Receiver{
			Name:    "Ada",
			Phone:   "13800000000",
			Address: "1 Example Road",
		},
		Lines: []OrderLine{
			{SkuID: "sku-a", Quantity: 2},
			{SkuID: "sku-b", Quantity: 1},
		},
		CartItemIDs: []string{"cart-1", "cart-2"},
	}
}

func TestOrderServiceCreateOrder(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	skuRepo, productRepo := testCatalog()

	var insertedOrder domain.Order
	var insertedItems []domain.OrderItem
	var deletedCartIDs []string

	orders := &stubOrderRepository{
		insertFn: func(ctx context.Context, order domain.Order) error {
			insertedOrder = order
			return nil
		},
	}
	items := &stubOrderItemRepository{
		insertAllFn: func(ctx context.Context, lines []domain.OrderItem) error {
			insertedItems = lines
			return nil
		},
	}
	logs := &stubStatusLogRepository{}
	inventory := &stubInventoryService{}
	cart := &stubCartItemRepository{
		deleteByIDsFn: func(ctx context.Context, userID string, itemIDs []string) error {
			deletedCartIDs = itemIDs
			return nil
		},
	}
	events := &stubOrderEventPublisher{}

	service, err := NewOrderService(OrderServiceDeps{
		UnitOfWork:  &stubUnitOfWork{},
		Orders:      orders,
		OrderItems:  items,
		StatusLogs:  logs,
		Skus:        skuRepo,
		Products:    productRepo,
		CartItems:   cart,
		Inventory:   inventory,
		Events:      events,
		Clock:       func() time.Time { return now },
		IDGenerator: sequentialIDs("SEED"),
	})
	if err != nil {
		t.Fatalf("unexpected error constructing order service: %v", err)
	}

	order, err := service.CreateOrder(context.Background(), validCreateOrderCommand())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order.ID != "ord_SEED0001" {
		t.Fatalf("unexpected order id %q", order.ID)
	}
	if order.OrderNo != "SO-SEED0001" {
		t.Fatalf("unexpected order no %q", order.OrderNo)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("status = %s, want %s", order.Status, domain.OrderStatusPending)
	}
	if got := order.TotalAmount.String(); got != "25.50" {
		t.Fatalf("total = %s, want 25.50", got)
	}
	if !order.PayAmount.Equal(order.TotalAmount) {
		t.Fatalf("pay amount %s != total %s", order.PayAmount, order.TotalAmount)
	}
	if insertedOrder.ID != order.ID {
		t.Fatalf("order was not inserted")
	}

	if len(insertedItems) != 2 {
		t.Fatalf("expected 2 items, got %d", len(insertedItems))
	}
	if got := insertedItems[0].LineTotal.String(); got != "20.00" {
		t.Fatalf("line 0 total = %s, want 20.00", got)
	}
	if got := insertedItems[1].LineTotal.String(); got != "5.50" {
		t.Fatalf("line 1 total = %s, want 5.50", got)
	}
	if insertedItems[0].SkuName != "Widget A" || insertedItems[0].SkuSpecs != "red" {
		t.Fatalf("line 0 snapshot = %q/%q", insertedItems[0].SkuName, insertedItems[0].SkuSpecs)
	}

	wantDecrements := []string{"sku-a:2", "sku-b:1"}
	if len(inventory.decreased) != len(wantDecrements) {
		t.Fatalf("decrements = %v, want %v", inventory.decreased, wantDecrements)
	}
	for i, want := range wantDecrements {
		if inventory.decreased[i] != want {
			t.Fatalf("decrement %d = %s, want %s", i, inventory.decreased[i], want)
		}
	}

	if len(logs.logs) != 1 || logs.logs[0].NewStatus != domain.OrderStatusPending {
		t.Fatalf("expected one creation log, got %+v", logs.logs)
	}
	if len(deletedCartIDs) != 2 {
		t.Fatalf("expected cart cleanup, got %v", deletedCartIDs)
	}
	if len(events.events) != 1 || events.events[0].Type != eventOrderCreated {
		t.Fatalf("expected %s event, got %+v", eventOrderCreated, events.events)
	}
}

func TestOrderServiceCreateOrderInsufficientStockAbortsEverything(t *testing.T) {
	skuRepo, productRepo := testCatalog()

	inserted := false
	orders := &stubOrderRepository{
		insertFn: func(ctx context.Context, order domain.Order) error {
			inserted = true
			return nil
		},
	}
	inventory := &stubInventoryService{
		decreaseFn: func(ctx context.Context, skuID string, quantity int) error {
			if skuID == "sku-b" {
				return fmt.Errorf("%w: sku %s", ErrInsufficientStock, skuID)
			}
			return nil
		},
	}

	service, err := NewOrderService(OrderServiceDeps{
		UnitOfWork: &stubUnitOfWork{},
		Orders:     orders,
		OrderItems: &stubOrderItemRepository{},
		StatusLogs: &stubStatusLogRepository{},
		Skus:       skuRepo,
		Products:   productRepo,
		Inventory:  inventory,
	})
	if err != nil {
		t.Fatalf("unexpected error constructing order service: %v", err)
	}

	_, err = service.CreateOrder(context.Background(), validCreateOrderCommand())
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if inserted {
		t.Fatalf("order must not be inserted when a decrement fails")
	}
}

func TestOrderServiceCreateOrderOffShelfProduct(t *testing.T) {
	skuRepo, _ := testCatalog()
	products := &stubProductRepository{
		findByIDFn: func(ctx context.Context, productID string) (domain.Product, error) {
			return domain.Product{ID: productID, Status: domain.ProductStatusOffShelf}, nil
		},
	}

	service, err := NewOrderService(OrderServiceDeps{
		Orders:     &stubOrderRepository{},
		OrderItems: &stubOrderItemRepository{},
		StatusLogs: &stubStatusLogRepository{},
		Skus:       skuRepo,
		Products:   products,
		Inventory:  &stubInventoryService{},
	})
	if err != nil {
		t.Fatalf("unexpected error constructing order service: %v", err)
	}

	_, err = service.CreateOrder(context.Background(), validCreateOrderCommand())
	if !errors.Is(err, ErrProductUnavailable) {
		t.Fatalf("expected ErrProductUnavailable, got %v", err)
	}
}

func TestOrderServiceCreateOrderValidation(t *testing.T) {
	service, err := NewOrderService(OrderServiceDeps{
		Orders:     &stubOrderRepository{},
		OrderItems: &stubOrderItemRepository{},
		StatusLogs: &stubStatusLogRepository{},
		Skus:       &stubSkuRepository{},
		Products:   &stubProductRepository{},
		Inventory:  &stubInventoryService{},
	})
	if err != nil {
		t.Fatalf("unexpected error constructing order service: %v", err)
	}
	ctx := context.Background()

	cases := map[string]func(cmd *CreateOrderCommand){
		"missing user":     func(cmd *CreateOrderCommand) { cmd.UserID = " " },
		"missing shop":     func(cmd *CreateOrderCommand) { cmd.ShopID = "" },
		"no lines":         func(cmd *CreateOrderCommand) { cmd.Lines = nil },
		"blank receiver":   func(cmd *CreateOrderCommand) { cmd.Receiver.Address = "" },
		"zero quantity":    func(cmd *CreateOrderCommand) { cmd.Lines[0].Quantity = 0 },
		"negative qty":     func(cmd *CreateOrderCommand) { cmd.Lines[1].Quantity = -1 },
		"blank line sku":   func(cmd *CreateOrderCommand) { cmd.Lines[0].SkuID = "" },
	}
	for name, mutate := range cases {
		cmd := validCreateOrderCommand()
		mutate(&cmd)
		if _, err := service.CreateOrder(ctx, cmd); !errors.Is(err, ErrOrderInvalidInput) {
			t.Fatalf("%s: expected ErrOrderInvalidInput, got %v", name, err)
		}
	}
}

func TestOrderServiceGetOrderScopedToOwner(t *testing.T) {
	orders := &stubOrderRepository{
		findByIDFn: func(ctx context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, UserID: "user-1", Status: domain.OrderStatusPending}, nil
		},
	}
	items := &stubOrderItemRepository{
		listByOrderFn: func(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
			return []domain.OrderItem{{ID: "itm-1", OrderID: orderID}}, nil
		},
	}

	service, err := NewOrderService(OrderServiceDeps{
		Orders:     orders,
		OrderItems: items,
		StatusLogs: &stubStatusLogRepository{},
		Skus:       &stubSkuRepository{},
		Products:   &stubProductRepository{},
		Inventory:  &stubInventoryService{},
	})
	if err != nil {
		t.Fatalf("unexpected error constructing order service: %v", err)
	}
	ctx := context.Background()

	order, err := service.GetOrder(ctx, GetOrderQuery{UserID: "user-1", OrderID: "ord-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order.Items) != 1 {
		t.Fatalf("expected items attached, got %+v", order.Items)
	}

	if _, err := service.GetOrder(ctx, GetOrderQuery{UserID: "user-2", OrderID: "ord-1"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestOrderServiceCancelOrderRestoresStock(t *testing.T) {
	now := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)

	var updated domain.Order
	orders := &stubOrderRepository{
		findByIDFn: func(ctx context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, UserID: "user-1", Status: domain.OrderStatusPending}, nil
		},
		updateFn: func(ctx context.Context, order domain.Order) error {
			updated = order
			return nil
		},
	}
	items := &stubOrderItemRepository{
		listByOrderFn: func(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
			return []domain.OrderItem{
				{SkuID: "sku-a", Quantity: domain.MustQuantity(2)},
				{SkuID: "sku-b", Quantity: domain.MustQuantity(1)},
			}, nil
		},
	}
	logs := &stubStatusLogRepository{}
	inventory := &stubInventoryService{}

	service, err := NewOrderService(OrderServiceDeps{
		Orders:     orders,
		OrderItems: items,
		StatusLogs: logs,
		Skus:       &stubSkuRepository{},
		Products:   &stubProductRepository{},
		Inventory:  inventory,
		Clock:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("unexpected error constructing order service: %v", err)
	}

	order, err := service.CancelOrder(context.Background(), CancelOrderCommand{UserID: "user-1", OrderID: "ord-1", Reason: "changed my mind"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order.Status != domain.OrderStatusCancelled {
		t.Fatalf("status = %s, want %s", order.Status, domain.OrderStatusCancelled)
	}
	if order.CancelTime == nil || !order.CancelTime.Equal(now) {
		t.Fatalf("cancel time = %v, want %v", order.CancelTime, now)
	}
	if updated.Status != domain.OrderStatusCancelled {
		t.Fatalf("persisted status = %s, want cancelled", updated.Status)
	}
	if len(inventory.increased) != 2 || inventory.increased[0] != "sku-a:2" || inventory.increased[1] != "sku-b:1" {
		t.Fatalf("restocks = %v", inventory.increased)
	}
	if len(logs.logs) != 1 || logs.logs[0].Remark != "changed my mind" {
		t.Fatalf("expected cancellation log, got %+v", logs.logs)
	}
}

func TestOrderServiceCancelPaidOrderFails(t *testing.T) {
	orders := &stubOrderRepository{
		findByIDFn: func(ctx context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, UserID: "user-1", Status: domain.OrderStatusPaid}, nil
		},
	}
	inventory := &stubInventoryService{}

	service, err := NewOrderService(OrderServiceDeps{
		Orders:     orders,
		OrderItems: &stubOrderItemRepository{},
		StatusLogs: &stubStatusLogRepository{},
		Skus:       &stubSkuRepository{},
		Products:   &stubProductRepository{},
		Inventory:  inventory,
	})
	if err != nil {
		t.Fatalf("unexpected error constructing order service: %v", err)
	}

	_, err = service.CancelOrder(context.Background(), CancelOrderCommand{UserID: "user-1", OrderID: "ord-1"})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if len(inventory.increased) != 0 {
		t.Fatalf("stock must not be restored on a rejected cancel, got %v", inventory.increased)
	}
}

func TestOrderServicePayOrder(t *testing.T) {
	now := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	status := domain.OrderStatusPending

	orders := &stubOrderRepository{
		findByIDFn: func(ctx context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, UserID: "user-1", Status: status}, nil
		},
		updateFn: func(ctx context.Context, order domain.Order) error {
			status = order.Status
			return nil
		},
	}
	events := &stubOrderEventPublisher{}

	service, err := NewOrderService(OrderServiceDeps{
		Orders:     orders,
		OrderItems: &stubOrderItemRepository{},
		StatusLogs: &stubStatusLogRepository{},
		Skus:       &stubSkuRepository{},
		Products:   &stubProductRepository{},
		Inventory:  &stubInventoryService{},
		Events:     events,
		Clock:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("unexpected error constructing order service: %v", err)
	}
	ctx := context.Background()

	order, err := service.PayOrder(ctx, PayOrderCommand{OrderID: "ord-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != domain.OrderStatusPaid {
		t.Fatalf("status = %s, want paid", order.Status)
	}
	if order.PayTime == nil || !order.PayTime.Equal(now) {
		t.Fatalf("pay time = %v, want %v", order.PayTime, now)
	}
	if len(events.events) != 1 || events.events[0].Type != eventOrderPaid {
		t.Fatalf("expected %s event, got %+v", eventOrderPaid, events.events)
	}

	// A second attempt finds the order already paid.
	if _, err := service.PayOrder(ctx, PayOrderCommand{OrderID: "ord-1"}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on double pay, got %v", err)
	}
}

func TestOrderServiceShipThenComplete(t *testing.T) {
	status := domain.OrderStatusPaid
	orders := &stubOrderRepository{
		findByIDFn: func(ctx context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, UserID: "user-1", Status: status}, nil
		},
		updateFn: func(ctx context.Context, order domain.Order) error {
			status = order.Status
			return nil
		},
	}
	logs := &stubStatusLogRepository{}

	service, err := NewOrderService(OrderServiceDeps{
		Orders:     orders,
		OrderItems: &stubOrderItemRepository{},
		StatusLogs: logs,
		Skus:       &stubSkuRepository{},
		Products:   &stubProductRepository{},
		Inventory:  &stubInventoryService{},
	})
	if err != nil {
		t.Fatalf("unexpected error constructing order service: %v", err)
	}
	ctx := context.Background()

	order, err := service.ShipOrder(ctx, ShipOrderCommand{OrderID: "ord-1", Operator: "staff-7"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != domain.OrderStatusShipped {
		t.Fatalf("status = %s, want shipped", order.Status)
	}

	// Confirmation is owner-scoped.
	if _, err := service.CompleteOrder(ctx, CompleteOrderCommand{UserID: "user-2", OrderID: "ord-1"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	order, err = service.CompleteOrder(ctx, CompleteOrderCommand{UserID: "user-1", OrderID: "ord-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != domain.OrderStatusCompleted {
		t.Fatalf("status = %s, want completed", order.Status)
	}
	if order.CompleteTime == nil {
		t.Fatalf("complete time must be stamped")
	}
	if len(logs.logs) != 2 {
		t.Fatalf("expected 2 transition logs, got %d", len(logs.logs))
	}
	if logs.logs[0].Operator != "staff-7" {
		t.Fatalf("ship log operator = %q, want staff-7", logs.logs[0].Operator)
	}
}

func TestOrderServiceCartCleanupFailureIsLogged(t *testing.T) {
	skuRepo, productRepo := testCatalog()
	logger := &recordingLogger{}

	service, err := NewOrderService(OrderServiceDeps{
		Orders: &stubOrderRepository{
			insertFn: func(ctx context.Context, order domain.Order) error { return nil },
		},
		OrderItems: &stubOrderItemRepository{
			insertAllFn: func(ctx context.Context, items []domain.OrderItem) error { return nil },
		},
		StatusLogs: &stubStatusLogRepository{},
		Skus:       skuRepo,
		Products:   productRepo,
		CartItems: &stubCartItemRepository{
			deleteByIDsFn: func(ctx context.Context, userID string, itemIDs []string) error {
				return errors.New("cart store down")
			},
		},
		Inventory: &stubInventoryService{},
		Logger:    logger.log,
	})
	if err != nil {
		t.Fatalf("unexpected error constructing order service: %v", err)
	}

	if _, err := service.CreateOrder(context.Background(), validCreateOrderCommand()); err != nil {
		t.Fatalf("cart cleanup failure must not fail the order: %v", err)
	}
	if !logger.has("cart_cleanup_failed") {
		t.Fatalf("expected cart_cleanup_failed log, got %v", logger.events)
	}
}

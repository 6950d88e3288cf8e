package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kuromall/api/internal/repositories"
)

const (
	eventStockDecreased = "stock.decreased"
	eventStockIncreased = "stock.increased"
)

var (
	// ErrInventoryInvalidInput signals the caller provided invalid arguments.
	ErrInventoryInvalidInput = errors.New("inventory: invalid input")
	// ErrInsufficientStock indicates the compare-and-swap decrement did not
	// apply: the stock changed underneath the caller or cannot cover the
	// requested quantity. The two causes are deliberately not distinguished.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrSkuNotFound indicates the SKU has no stock record.
	ErrSkuNotFound = errors.New("inventory: sku not found")
)

// InventoryServiceDeps bundles the collaborators required to construct an
// inventory service.
type InventoryServiceDeps struct {
	Skus   repositories.SkuRepository
	Events StockEventPublisher
	Clock  func() time.Time
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type inventoryService struct {
	skus   repositories.SkuRepository
	events StockEventPublisher
	clock  func() time.Time
	logger func(context.Context, string, map[string]any)
}

// NewInventoryService wires dependencies into a concrete InventoryService
// implementation.
func NewInventoryService(deps InventoryServiceDeps) (InventoryService, error) {
	if deps.Skus == nil {
		return nil, errors.New("inventory service: sku repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &inventoryService{
		skus:   deps.Skus,
		events: deps.Events,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *inventoryService) DecreaseStock(ctx context.Context, skuID string, quantity int) error {
	skuID = strings.TrimSpace(skuID)
	if skuID == "" {
		return fmt.Errorf("%w: sku id is required", ErrInventoryInvalidInput)
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInventoryInvalidInput)
	}

	sku, err := s.skus.FindByID(ctx, skuID)
	if err != nil {
		return s.mapRepositoryError(skuID, err)
	}

	// Single attempt, no retry: a concurrent change between the read and
	// the guarded update fails the order rather than overselling.
	affected, err := s.skus.DecreaseStock(ctx, skuID, quantity, sku.Stock.Int())
	if err != nil {
		return s.mapRepositoryError(skuID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: sku %s", ErrInsufficientStock, skuID)
	}

	s.publish(ctx, StockEventMessage{
		Type:       eventStockDecreased,
		SkuID:      skuID,
		Quantity:   quantity,
		OccurredAt: s.clock(),
	})
	return nil
}

func (s *inventoryService) IncreaseStock(ctx context.Context, skuID string, quantity int) error {
	skuID = strings.TrimSpace(skuID)
	if skuID == "" {
		return fmt.Errorf("%w: sku id is required", ErrInventoryInvalidInput)
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInventoryInvalidInput)
	}

	if err := s.skus.IncreaseStock(ctx, skuID, quantity); err != nil {
		return s.mapRepositoryError(skuID, err)
	}

	s.publish(ctx, StockEventMessage{
		Type:       eventStockIncreased,
		SkuID:      skuID,
		Quantity:   quantity,
		OccurredAt: s.clock(),
	})
	return nil
}

func (s *inventoryService) mapRepositoryError(skuID string, err error) error {
	if err == nil {
		return nil
	}

	var invErr *repositories.InventoryError
	if errors.As(err, &invErr) {
		switch invErr.Code {
		case repositories.InventoryErrorInsufficientStock:
			return fmt.Errorf("%w: %s", ErrInsufficientStock, invErr.Message)
		case repositories.InventoryErrorSkuNotFound:
			return fmt.Errorf("%w: %s", ErrSkuNotFound, invErr.Message)
		}
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %s", ErrSkuNotFound, skuID)
	}
	return err
}

func (s *inventoryService) publish(ctx context.Context, event StockEventMessage) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishStockEvent(ctx, event); err != nil {
		s.logger(ctx, "stock_event_publish_failed", map[string]any{
			"skuId": event.SkuID,
			"type":  event.Type,
			"error": err.Error(),
		})
	}
}

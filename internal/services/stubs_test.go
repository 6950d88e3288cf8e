package services

import (
	"context"
	"errors"

	domain "github.com/kuromall/api/internal/domain"
)

// repositoryErrorStub satisfies repositories.RepositoryError for tests.
type repositoryErrorStub struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *repositoryErrorStub) Error() string       { return "repository error stub" }
func (e *repositoryErrorStub) IsNotFound() bool    { return e.notFound }
func (e *repositoryErrorStub) IsConflict() bool    { return e.conflict }
func (e *repositoryErrorStub) IsUnavailable() bool { return e.unavailable }

var errStubNotImplemented = errors.New("stub: not implemented")

type stubUnitOfWork struct {
	runs int
}

func (u *stubUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	u.runs++
	return fn(ctx)
}

type stubOrderRepository struct {
	insertFn        func(ctx context.Context, order domain.Order) error
	updateFn        func(ctx context.Context, order domain.Order) error
	findByIDFn      func(ctx context.Context, orderID string) (domain.Order, error)
	findByOrderNoFn func(ctx context.Context, orderNo string) (domain.Order, error)
}

func (s *stubOrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if s.insertFn == nil {
		return errStubNotImplemented
	}
	return s.insertFn(ctx, order)
}

func (s *stubOrderRepository) Update(ctx context.Context, order domain.Order) error {
	if s.updateFn == nil {
		return errStubNotImplemented
	}
	return s.updateFn(ctx, order)
}

func (s *stubOrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findByIDFn == nil {
		return domain.Order{}, &repositoryErrorStub{notFound: true}
	}
	return s.findByIDFn(ctx, orderID)
}

func (s *stubOrderRepository) FindByOrderNo(ctx context.Context, orderNo string) (domain.Order, error) {
	if s.findByOrderNoFn == nil {
		return domain.Order{}, &repositoryErrorStub{notFound: true}
	}
	return s.findByOrderNoFn(ctx, orderNo)
}

type stubOrderItemRepository struct {
	insertAllFn   func(ctx context.Context, items []domain.OrderItem) error
	listByOrderFn func(ctx context.Context, orderID string) ([]domain.OrderItem, error)
}

func (s *stubOrderItemRepository) InsertAll(ctx context.Context, items []domain.OrderItem) error {
	if s.insertAllFn == nil {
		return errStubNotImplemented
	}
	return s.insertAllFn(ctx, items)
}

func (s *stubOrderItemRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	if s.listByOrderFn == nil {
		return nil, nil
	}
	return s.listByOrderFn(ctx, orderID)
}

type stubStatusLogRepository struct {
	logs     []domain.OrderStatusLog
	appendFn func(ctx context.Context, log domain.OrderStatusLog) error
}

func (s *stubStatusLogRepository) Append(ctx context.Context, log domain.OrderStatusLog) error {
	if s.appendFn != nil {
		return s.appendFn(ctx, log)
	}
	s.logs = append(s.logs, log)
	return nil
}

func (s *stubStatusLogRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.OrderStatusLog, error) {
	return s.logs, nil
}

type stubSkuRepository struct {
	findByIDFn      func(ctx context.Context, skuID string) (domain.ProductSku, error)
	decreaseStockFn func(ctx context.Context, skuID string, quantity int, expectedStock int) (int64, error)
	increaseStockFn func(ctx context.Context, skuID string, quantity int) error
}

func (s *stubSkuRepository) FindByID(ctx context.Context, skuID string) (domain.ProductSku, error) {
	if s.findByIDFn == nil {
		return domain.ProductSku{}, &repositoryErrorStub{notFound: true}
	}
	return s.findByIDFn(ctx, skuID)
}

func (s *stubSkuRepository) DecreaseStock(ctx context.Context, skuID string, quantity int, expectedStock int) (int64, error) {
	if s.decreaseStockFn == nil {
		return 0, errStubNotImplemented
	}
	return s.decreaseStockFn(ctx, skuID, quantity, expectedStock)
}

func (s *stubSkuRepository) IncreaseStock(ctx context.Context, skuID string, quantity int) error {
	if s.increaseStockFn == nil {
		return errStubNotImplemented
	}
	return s.increaseStockFn(ctx, skuID, quantity)
}

type stubProductRepository struct {
	findByIDFn func(ctx context.Context, productID string) (domain.Product, error)
}

func (s *stubProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if s.findByIDFn == nil {
		return domain.Product{}, &repositoryErrorStub{notFound: true}
	}
	return s.findByIDFn(ctx, productID)
}

type stubPaymentRepository struct {
	insertFn          func(ctx context.Context, payment domain.Payment) error
	updateFn          func(ctx context.Context, payment domain.Payment) error
	findByPaymentNoFn func(ctx context.Context, paymentNo string) (domain.Payment, error)
	findByOrderIDFn   func(ctx context.Context, orderID string) (domain.Payment, error)
}

func (s *stubPaymentRepository) Insert(ctx context.Context, payment domain.Payment) error {
	if s.insertFn == nil {
		return errStubNotImplemented
	}
	return s.insertFn(ctx, payment)
}

func (s *stubPaymentRepository) Update(ctx context.Context, payment domain.Payment) error {
	if s.updateFn == nil {
		return errStubNotImplemented
	}
	return s.updateFn(ctx, payment)
}

func (s *stubPaymentRepository) FindByPaymentNo(ctx context.Context, paymentNo string) (domain.Payment, error) {
	if s.findByPaymentNoFn == nil {
		return domain.Payment{}, &repositoryErrorStub{notFound: true}
	}
	return s.findByPaymentNoFn(ctx, paymentNo)
}

func (s *stubPaymentRepository) FindByOrderID(ctx context.Context, orderID string) (domain.Payment, error) {
	if s.findByOrderIDFn == nil {
		return domain.Payment{}, &repositoryErrorStub{notFound: true}
	}
	return s.findByOrderIDFn(ctx, orderID)
}

type stubCartItemRepository struct {
	deleteByIDsFn func(ctx context.Context, userID string, itemIDs []string) error
}

func (s *stubCartItemRepository) DeleteByIDs(ctx context.Context, userID string, itemIDs []string) error {
	if s.deleteByIDsFn == nil {
		return nil
	}
	return s.deleteByIDsFn(ctx, userID, itemIDs)
}

type stubOrderEventPublisher struct {
	events []OrderEventMessage
	err    error
}

func (s *stubOrderEventPublisher) PublishOrderEvent(ctx context.Context, event OrderEventMessage) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

type stubPaymentEventPublisher struct {
	events []PaymentEventMessage
	err    error
}

func (s *stubPaymentEventPublisher) PublishPaymentEvent(ctx context.Context, event PaymentEventMessage) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

type stubStockEventPublisher struct {
	events []StockEventMessage
	err    error
}

func (s *stubStockEventPublisher) PublishStockEvent(ctx context.Context, event StockEventMessage) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

// recordingLogger captures structured log events emitted by services.
type recordingLogger struct {
	events []string
	fields []map[string]any
}

func (l *recordingLogger) log(_ context.Context, event string, fields map[string]any) {
	l.events = append(l.events, event)
	l.fields = append(l.fields, fields)
}

func (l *recordingLogger) has(event string) bool {
	for _, e := range l.events {
		if e == event {
			return true
		}
	}
	return false
}

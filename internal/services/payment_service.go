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
	eventPaymentCreated      = "payment.created"
	eventPaymentSucceeded    = "payment.succeeded"
	eventPaymentFailed       = "payment.failed"
	eventPaymentRefunding    = "payment.refunding"
	eventPaymentRefunded     = "payment.refunded"
	eventPaymentRefundFailed = "payment.refund_failed"

	eventOrderRefunding = "order.refunding"
	eventOrderRefunded  = "order.refunded"

	operatorGateway = "gateway"
)

var (
	// ErrPaymentInvalidInput signals the caller provided invalid arguments.
	ErrPaymentInvalidInput = errors.New("payment: invalid input")
	// ErrPaymentNotFound indicates the payment could not be located.
	ErrPaymentNotFound = errors.New("payment: not found")
	// ErrDuplicatePayment indicates the order already has a payment.
	ErrDuplicatePayment = errors.New("payment: duplicate payment for order")
)

// PaymentServiceDeps bundles the collaborators required to construct a payment service.
type PaymentServiceDeps struct {
	Payments    repositories.PaymentRepository
	Orders      repositories.OrderRepository
	StatusLogs  repositories.OrderStatusLogRepository
	Events      PaymentEventPublisher
	OrderEvents OrderEventPublisher

	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type paymentService struct {
	payments    repositories.PaymentRepository
	orders      repositories.OrderRepository
	statusLogs  repositories.OrderStatusLogRepository
	events      PaymentEventPublisher
	orderEvents OrderEventPublisher

	clock  func() time.Time
	newID  func() string
	logger func(context.Context, string, map[string]any)
}

// NewPaymentService wires dependencies into a concrete PaymentService implementation.
func NewPaymentService(deps PaymentServiceDeps) (PaymentService, error) {
	switch {
	case deps.Payments == nil:
		return nil, errors.New("payment service: payment repository is required")
	case deps.Orders == nil:
		return nil, errors.New("payment service: order repository is required")
	case deps.StatusLogs == nil:
		return nil, errors.New("payment service: status log repository is required")
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

	return &paymentService{
		payments:    deps.Payments,
		orders:      deps.Orders,
		statusLogs:  deps.StatusLogs,
		events:      deps.Events,
		orderEvents: deps.OrderEvents,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *paymentService) CreatePayment(ctx context.Context, cmd CreatePaymentCommand) (domain.Payment, error) {
	userID := strings.TrimSpace(cmd.UserID)
	orderID := strings.TrimSpace(cmd.OrderID)
	if userID == "" {
		return domain.Payment{}, fmt.Errorf("%w: user id is required", ErrPaymentInvalidInput)
	}
	if orderID == "" {
		return domain.Payment{}, fmt.Errorf("%w: order id is required", ErrPaymentInvalidInput)
	}
	if !validPaymentMethod(cmd.Method) {
		return domain.Payment{}, fmt.Errorf("%w: unsupported method %q", ErrPaymentInvalidInput, cmd.Method)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Payment{}, s.mapOrderError(err)
	}
	if order.UserID != userID {
		return domain.Payment{}, fmt.Errorf("%w: order %s", ErrUnauthorized, orderID)
	}
	if order.Status != domain.OrderStatusPending {
		return domain.Payment{}, fmt.Errorf("%w: order %s is %s, expected %s",
			domain.ErrInvalidTransition, orderID, order.Status, domain.OrderStatusPending)
	}

	// At most one payment per order, whatever state the existing one is in.
	if _, err := s.payments.FindByOrderID(ctx, orderID); err == nil {
		return domain.Payment{}, fmt.Errorf("%w: order %s", ErrDuplicatePayment, orderID)
	} else if !isNotFound(err) {
		return domain.Payment{}, err
	}

	now := s.clock()
	seed := s.newID()
	payment := domain.Payment{
		ID:        "pay_" + seed,
		PaymentNo: "PN-" + seed,
		OrderID:   order.ID,
		OrderNo:   order.OrderNo,
		Method:    cmd.Method,
		Amount:    order.PayAmount,
		Status:    domain.PaymentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.payments.Insert(ctx, payment); err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsConflict() {
			return domain.Payment{}, fmt.Errorf("%w: order %s", ErrDuplicatePayment, orderID)
		}
		return domain.Payment{}, err
	}

	s.publish(ctx, eventPaymentCreated, payment)
	return payment, nil
}

func (s *paymentService) HandlePaymentSuccess(ctx context.Context, cmd SettlePaymentCommand) (domain.Payment, error) {
	payment, err := s.findByPaymentNo(ctx, cmd.PaymentNo)
	if err != nil {
		return domain.Payment{}, err
	}

	// A redelivered notification hits the transition guard: settling an
	// already-settled payment surfaces InvalidTransition.
	now := s.clock()
	if err := payment.Apply(domain.PaymentEventPaySuccess, now); err != nil {
		return domain.Payment{}, err
	}
	if txn := strings.TrimSpace(cmd.TransactionID); txn != "" {
		payment.TransactionID = &txn
	}
	if err := s.payments.Update(ctx, payment); err != nil {
		return domain.Payment{}, s.mapPaymentError(err)
	}

	// The order is brought in step in a second, separate write. A failure
	// here leaves the payment settled and the order untouched; the sync
	// failure is logged for reconciliation rather than unwinding the
	// settlement.
	s.syncOrder(ctx, payment, domain.OrderEventPay, eventOrderPaid, "payment "+payment.PaymentNo+" settled")

	s.publish(ctx, eventPaymentSucceeded, payment)
	return payment, nil
}

func (s *paymentService) HandlePaymentFailed(ctx context.Context, cmd SettlePaymentCommand) (domain.Payment, error) {
	payment, err := s.findByPaymentNo(ctx, cmd.PaymentNo)
	if err != nil {
		return domain.Payment{}, err
	}
	if err := payment.Apply(domain.PaymentEventPayFailed, s.clock()); err != nil {
		return domain.Payment{}, err
	}
	if txn := strings.TrimSpace(cmd.TransactionID); txn != "" {
		payment.TransactionID = &txn
	}
	if err := s.payments.Update(ctx, payment); err != nil {
		return domain.Payment{}, s.mapPaymentError(err)
	}

	// The order stays pending; the user may retry or cancel.
	s.publish(ctx, eventPaymentFailed, payment)
	return payment, nil
}

func (s *paymentService) ApplyRefund(ctx context.Context, cmd RefundCommand) (domain.Payment, error) {
	userID := strings.TrimSpace(cmd.UserID)
	orderID := strings.TrimSpace(cmd.OrderID)
	if userID == "" {
		return domain.Payment{}, fmt.Errorf("%w: user id is required", ErrPaymentInvalidInput)
	}
	if orderID == "" {
		return domain.Payment{}, fmt.Errorf("%w: order id is required", ErrPaymentInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Payment{}, s.mapOrderError(err)
	}
	if order.UserID != userID {
		return domain.Payment{}, fmt.Errorf("%w: order %s", ErrUnauthorized, orderID)
	}

	payment, err := s.payments.FindByOrderID(ctx, orderID)
	if err != nil {
		return domain.Payment{}, s.mapPaymentError(err)
	}

	if err := payment.Apply(domain.PaymentEventApplyRefund, s.clock()); err != nil {
		return domain.Payment{}, err
	}
	if err := s.payments.Update(ctx, payment); err != nil {
		return domain.Payment{}, s.mapPaymentError(err)
	}

	remark := strings.TrimSpace(cmd.Reason)
	if remark == "" {
		remark = "refund requested"
	}
	s.syncOrder(ctx, payment, domain.OrderEventApplyRefund, eventOrderRefunding, remark)

	s.publish(ctx, eventPaymentRefunding, payment)
	return payment, nil
}

func (s *paymentService) HandleRefundSuccess(ctx context.Context, cmd SettlePaymentCommand) (domain.Payment, error) {
	payment, err := s.findByPaymentNo(ctx, cmd.PaymentNo)
	if err != nil {
		return domain.Payment{}, err
	}
	if err := payment.Apply(domain.PaymentEventRefundSuccess, s.clock()); err != nil {
		return domain.Payment{}, err
	}
	if err := s.payments.Update(ctx, payment); err != nil {
		return domain.Payment{}, s.mapPaymentError(err)
	}

	s.syncOrder(ctx, payment, domain.OrderEventRefundSuccess, eventOrderRefunded, "refund "+payment.PaymentNo+" completed")

	s.publish(ctx, eventPaymentRefunded, payment)
	return payment, nil
}

func (s *paymentService) HandleRefundFailed(ctx context.Context, cmd SettlePaymentCommand) (domain.Payment, error) {
	payment, err := s.findByPaymentNo(ctx, cmd.PaymentNo)
	if err != nil {
		return domain.Payment{}, err
	}

	if err := payment.Apply(domain.PaymentEventRefundFailed, s.clock()); err != nil {
		return domain.Payment{}, err
	}
	if err := s.payments.Update(ctx, payment); err != nil {
		return domain.Payment{}, s.mapPaymentError(err)
	}

	s.syncOrder(ctx, payment, domain.OrderEventRefundFailed, eventOrderCompleted, "refund "+payment.PaymentNo+" failed")

	s.publish(ctx, eventPaymentRefundFailed, payment)
	return payment, nil
}

func (s *paymentService) findByPaymentNo(ctx context.Context, paymentNo string) (domain.Payment, error) {
	paymentNo = strings.TrimSpace(paymentNo)
	if paymentNo == "" {
		return domain.Payment{}, fmt.Errorf("%w: payment no is required", ErrPaymentInvalidInput)
	}
	payment, err := s.payments.FindByPaymentNo(ctx, paymentNo)
	if err != nil {
		return domain.Payment{}, s.mapPaymentError(err)
	}
	return payment, nil
}

// syncOrder applies the order-side counterpart of a payment transition.
// The payment write has already committed, so failures here are logged
// for reconciliation instead of propagated.
func (s *paymentService) syncOrder(ctx context.Context, payment domain.Payment, event domain.OrderEvent, eventType, remark string) {
	order, err := s.orders.FindByID(ctx, payment.OrderID)
	if err == nil {
		oldStatus := order.Status
		now := s.clock()
		if err = order.Apply(event, now); err == nil {
			if err = s.orders.Update(ctx, order); err == nil {
				log := domain.OrderStatusLog{
					ID:        "olg_" + s.newID(),
					OrderID:   order.ID,
					OldStatus: oldStatus,
					NewStatus: order.Status,
					Remark:    remark,
					Operator:  operatorGateway,
					CreatedAt: now,
				}
				if logErr := s.statusLogs.Append(ctx, log); logErr != nil {
					s.logger(ctx, "order_status_log_failed", map[string]any{
						"orderId": order.ID,
						"error":   logErr.Error(),
					})
				}
				s.publishOrder(ctx, eventType, order)
				return
			}
		}
	}
	s.logger(ctx, "payment_order_sync_failed", map[string]any{
		"orderId":   payment.OrderID,
		"paymentNo": payment.PaymentNo,
		"event":     string(event),
		"error":     err.Error(),
	})
}

func (s *paymentService) publish(ctx context.Context, eventType string, payment domain.Payment) {
	if s.events == nil {
		return
	}
	event := PaymentEventMessage{
		Type:       eventType,
		PaymentNo:  payment.PaymentNo,
		OrderID:    payment.OrderID,
		OrderNo:    payment.OrderNo,
		Amount:     payment.Amount.String(),
		Status:     string(payment.Status),
		OccurredAt: s.clock(),
	}
	if err := s.events.PublishPaymentEvent(ctx, event); err != nil {
		s.logger(ctx, "payment_event_publish_failed", map[string]any{
			"paymentNo": payment.PaymentNo,
			"type":      eventType,
			"error":     err.Error(),
		})
	}
}

func (s *paymentService) publishOrder(ctx context.Context, eventType string, order domain.Order) {
	if s.orderEvents == nil {
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
	if err := s.orderEvents.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order_event_publish_failed", map[string]any{
			"orderId": order.ID,
			"type":    eventType,
			"error":   err.Error(),
		})
	}
}

func (s *paymentService) mapPaymentError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %v", ErrPaymentNotFound, err)
	}
	return err
}

func (s *paymentService) mapOrderError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
	}
	return err
}

func validPaymentMethod(method domain.PaymentMethod) bool {
	switch method {
	case domain.PaymentMethodAlipay, domain.PaymentMethodWechat, domain.PaymentMethodBalance:
		return true
	}
	return false
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"

	domain "github.com/kuromall/api/internal/domain"
	"github.com/kuromall/api/internal/platform/auth"
	"github.com/kuromall/api/internal/services"
)

const (
	testJWTSecret     = "test-jwt-secret"
	testWebhookSecret = "test-webhook-secret"
)

type stubOrderService struct {
	createFn   func(ctx context.Context, cmd services.CreateOrderCommand) (domain.Order, error)
	getFn      func(ctx context.Context, query services.GetOrderQuery) (domain.Order, error)
	payFn      func(ctx context.Context, cmd services.PayOrderCommand) (domain.Order, error)
	cancelFn   func(ctx context.Context, cmd services.CancelOrderCommand) (domain.Order, error)
	shipFn     func(ctx context.Context, cmd services.ShipOrderCommand) (domain.Order, error)
	completeFn func(ctx context.Context, cmd services.CompleteOrderCommand) (domain.Order, error)
}

var errStubUnexpected = errors.New("stub: unexpected call")

func (s *stubOrderService) CreateOrder(ctx context.Context, cmd services.CreateOrderCommand) (domain.Order, error) {
	if s.createFn == nil {
		return domain.Order{}, errStubUnexpected
	}
	return s.createFn(ctx, cmd)
}

func (s *stubOrderService) GetOrder(ctx context.Context, query services.GetOrderQuery) (domain.Order, error) {
	if s.getFn == nil {
		return domain.Order{}, errStubUnexpected
	}
	return s.getFn(ctx, query)
}

func (s *stubOrderService) PayOrder(ctx context.Context, cmd services.PayOrderCommand) (domain.Order, error) {
	if s.payFn == nil {
		return domain.Order{}, errStubUnexpected
	}
	return s.payFn(ctx, cmd)
}

func (s *stubOrderService) CancelOrder(ctx context.Context, cmd services.CancelOrderCommand) (domain.Order, error) {
	if s.cancelFn == nil {
		return domain.Order{}, errStubUnexpected
	}
	return s.cancelFn(ctx, cmd)
}

func (s *stubOrderService) ShipOrder(ctx context.Context, cmd services.ShipOrderCommand) (domain.Order, error) {
	if s.shipFn == nil {
		return domain.Order{}, errStubUnexpected
	}
	return s.shipFn(ctx, cmd)
}

func (s *stubOrderService) CompleteOrder(ctx context.Context, cmd services.CompleteOrderCommand) (domain.Order, error) {
	if s.completeFn == nil {
		return domain.Order{}, errStubUnexpected
	}
	return s.completeFn(ctx, cmd)
}

type stubPaymentService struct {
	createFn        func(ctx context.Context, cmd services.CreatePaymentCommand) (domain.Payment, error)
	successFn       func(ctx context.Context, cmd services.SettlePaymentCommand) (domain.Payment, error)
	failedFn        func(ctx context.Context, cmd services.SettlePaymentCommand) (domain.Payment, error)
	refundFn        func(ctx context.Context, cmd services.RefundCommand) (domain.Payment, error)
	refundSuccessFn func(ctx context.Context, cmd services.SettlePaymentCommand) (domain.Payment, error)
	refundFailedFn  func(ctx context.Context, cmd services.SettlePaymentCommand) (domain.Payment, error)
}

func (s *stubPaymentService) CreatePayment(ctx context.Context, cmd services.CreatePaymentCommand) (domain.Payment, error) {
	if s.createFn == nil {
		return domain.Payment{}, errStubUnexpected
	}
	return s.createFn(ctx, cmd)
}

func (s *stubPaymentService) HandlePaymentSuccess(ctx context.Context, cmd services.SettlePaymentCommand) (domain.Payment, error) {
	if s.successFn == nil {
		return domain.Payment{}, errStubUnexpected
	}
	return s.successFn(ctx, cmd)
}

func (s *stubPaymentService) HandlePaymentFailed(ctx context.Context, cmd services.SettlePaymentCommand) (domain.Payment, error) {
	if s.failedFn == nil {
		return domain.Payment{}, errStubUnexpected
	}
	return s.failedFn(ctx, cmd)
}

func (s *stubPaymentService) ApplyRefund(ctx context.Context, cmd services.RefundCommand) (domain.Payment, error) {
	if s.refundFn == nil {
		return domain.Payment{}, errStubUnexpected
	}
	return s.refundFn(ctx, cmd)
}

func (s *stubPaymentService) HandleRefundSuccess(ctx context.Context, cmd services.SettlePaymentCommand) (domain.Payment, error) {
	if s.refundSuccessFn == nil {
		return domain.Payment{}, errStubUnexpected
	}
	return s.refundSuccessFn(ctx, cmd)
}

func (s *stubPaymentService) HandleRefundFailed(ctx context.Context, cmd services.SettlePaymentCommand) (domain.Payment, error) {
	if s.refundFailedFn == nil {
		return domain.Payment{}, errStubUnexpected
	}
	return s.refundFailedFn(ctx, cmd)
}

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(context.Context) error { return s.err }

func testRouter(t *testing.T, orders services.OrderService, payments services.PaymentService) http.Handler {
	t.Helper()
	return NewRouter(RouterDeps{
		Logger:        zap.NewNop(),
		Orders:        orders,
		Payments:      payments,
		Health:        &stubPinger{},
		JWTSecret:     testJWTSecret,
		WebhookSecret: testWebhookSecret,
	})
}

func bearerToken(t *testing.T, userID string, role auth.Role) string {
	t.Helper()
	token, err := auth.IssueToken(testJWTSecret, userID, role, time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + token
}

func sampleOrder() domain.Order {
	created := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	return domain.Order{
		ID:          "ord-1",
		OrderNo:     "SO-1",
		UserID:      "user-1",
		ShopID:      "shop-1",
		TotalAmount: domain.MustMoney("25.50"),
		PayAmount:   domain.MustMoney("25.50"),
		Status:      domain.OrderStatusPending,
		Receiver:    domain.Receiver{Name: "Ada", Phone: "13800000000", Address: "1 Example Road"},
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func samplePayment() domain.Payment {
	created := time.Date(2025, 3, 5, 11, 0, 0, 0, time.UTC)
	return domain.Payment{
		ID:        "pay-1",
		PaymentNo: "PN-1",
		OrderID:   "ord-1",
		OrderNo:   "SO-1",
		Method:    domain.PaymentMethodAlipay,
		Amount:    domain.MustMoney("25.50"),
		Status:    domain.PaymentStatusPending,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/kuromall/api/internal/domain"
	"github.com/kuromall/api/internal/platform/auth"
	"github.com/kuromall/api/internal/platform/httpx"
	"github.com/kuromall/api/internal/platform/metrics"
	"github.com/kuromall/api/internal/services"
)

const maxPaymentBodySize = 16 * 1024

type createPaymentRequest struct {
	OrderID string `json:"order_id"`
	Method  string `json:"method"`
}

type refundRequest struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

type webhookRequest struct {
	PaymentNo     string `json:"payment_no"`
	Event         string `json:"event"`
	TransactionID string `json:"transaction_id"`
}

// PaymentHandlers exposes payment creation, refunds and the gateway webhook.
type PaymentHandlers struct {
	payments services.PaymentService
	metrics  *metrics.Metrics
}

// NewPaymentHandlers constructs a new PaymentHandlers instance.
func NewPaymentHandlers(payments services.PaymentService, m *metrics.Metrics) *PaymentHandlers {
	return &PaymentHandlers{payments: payments, metrics: m}
}

// Routes registers the authenticated /payments endpoints.
func (h *PaymentHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createPayment)
	r.Post("/refund", h.applyRefund)
}

func (h *PaymentHandlers) createPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	var req createPaymentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPaymentBodySize)).Decode(&req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	payment, err := h.payments.CreatePayment(ctx, services.CreatePaymentCommand{
		UserID:  identity.UserID,
		OrderID: req.OrderID,
		Method:  domain.PaymentMethod(strings.ToLower(strings.TrimSpace(req.Method))),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toPaymentPayload(payment))
}

func (h *PaymentHandlers) applyRefund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	var req refundRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPaymentBodySize)).Decode(&req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	payment, err := h.payments.ApplyRefund(ctx, services.RefundCommand{
		UserID:  identity.UserID,
		OrderID: req.OrderID,
		Reason:  req.Reason,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPaymentPayload(payment))
}

// Webhook handles asynchronous gateway notifications. It is mounted
// behind the shared-secret middleware, not bearer auth.
func (h *PaymentHandlers) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req webhookRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPaymentBodySize)).Decode(&req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	cmd := services.SettlePaymentCommand{
		PaymentNo:     req.PaymentNo,
		TransactionID: req.TransactionID,
	}

	var (
		payment domain.Payment
		err     error
		outcome string
	)
	switch strings.ToLower(strings.TrimSpace(req.Event)) {
	case "success":
		payment, err = h.payments.HandlePaymentSuccess(ctx, cmd)
		outcome = "success"
	case "failed":
		payment, err = h.payments.HandlePaymentFailed(ctx, cmd)
		outcome = "failed"
	case "refund_success":
		payment, err = h.payments.HandleRefundSuccess(ctx, cmd)
		outcome = "refunded"
	case "refund_failed":
		payment, err = h.payments.HandleRefundFailed(ctx, cmd)
		outcome = "refund_failed"
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "event must be one of success, failed, refund_success, refund_failed", http.StatusBadRequest))
		return
	}
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.PaymentSettled(outcome)
	}
	httpx.WriteJSON(w, http.StatusOK, toPaymentPayload(payment))
}

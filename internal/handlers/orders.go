package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/kuromall/api/internal/domain"
	"github.com/kuromall/api/internal/platform/auth"
	"github.com/kuromall/api/internal/platform/httpx"
	"github.com/kuromall/api/internal/platform/metrics"
	"github.com/kuromall/api/internal/services"
)

const maxOrderBodySize = 64 * 1024

type createOrderLineRequest struct {
	SkuID    string `json:"sku_id"`
	Quantity int    `json:"quantity"`
}

type createOrderRequest struct {
	ShopID      string                   `json:"shop_id"`
	Receiver    receiverPayload          `json:"receiver"`
	Lines       []createOrderLineRequest `json:"lines"`
	CartItemIDs []string                 `json:"cart_item_ids"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

// OrderHandlers exposes the order lifecycle endpoints.
type OrderHandlers struct {
	orders  services.OrderService
	metrics *metrics.Metrics
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(orders services.OrderService, m *metrics.Metrics) *OrderHandlers {
	return &OrderHandlers{orders: orders, metrics: m}
}

// Routes registers the /orders endpoints. The caller is expected to have
// authentication middleware already applied.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createOrder)
	r.Get("/{orderID}", h.getOrder)
	r.Post("/{orderID}/cancel", h.cancelOrder)
	r.Post("/{orderID}/confirm", h.completeOrder)
	r.With(auth.RequireStaff).Post("/{orderID}/ship", h.shipOrder)
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOrderBodySize)).Decode(&req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	cmd := services.CreateOrderCommand{
		UserID: identity.UserID,
		ShopID: req.ShopID,
		Receiver: domain.Receiver{
			Name:    req.Receiver.Name,
			Phone:   req.Receiver.Phone,
			Address: req.Receiver.Address,
		},
		CartItemIDs: req.CartItemIDs,
	}
	for _, line := range req.Lines {
		cmd.Lines = append(cmd.Lines, services.OrderLine{SkuID: line.SkuID, Quantity: line.Quantity})
	}

	order, err := h.orders.CreateOrder(ctx, cmd)
	if err != nil {
		if h.metrics != nil && errors.Is(err, services.ErrInsufficientStock) {
			h.metrics.StockConflict()
		}
		writeServiceError(ctx, w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.OrderCreated()
	}
	httpx.WriteJSON(w, http.StatusCreated, toOrderPayload(order))
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	order, err := h.orders.GetOrder(ctx, services.GetOrderQuery{
		UserID:  identity.UserID,
		OrderID: chi.URLParam(r, "orderID"),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toOrderPayload(order))
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	var req cancelOrderRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOrderBodySize)).Decode(&req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
			return
		}
	}

	order, err := h.orders.CancelOrder(ctx, services.CancelOrderCommand{
		UserID:  identity.UserID,
		OrderID: chi.URLParam(r, "orderID"),
		Reason:  strings.TrimSpace(req.Reason),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toOrderPayload(order))
}

func (h *OrderHandlers) completeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	order, err := h.orders.CompleteOrder(ctx, services.CompleteOrderCommand{
		UserID:  identity.UserID,
		OrderID: chi.URLParam(r, "orderID"),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toOrderPayload(order))
}

func (h *OrderHandlers) shipOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := auth.IdentityFromContext(ctx)

	order, err := h.orders.ShipOrder(ctx, services.ShipOrderCommand{
		OrderID:  chi.URLParam(r, "orderID"),
		Operator: identity.UserID,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toOrderPayload(order))
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	domain "github.com/kuromall/api/internal/domain"
	"github.com/kuromall/api/internal/platform/httpx"
	"github.com/kuromall/api/internal/services"
)

type receiverPayload struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type orderItemPayload struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	SkuID     string `json:"sku_id"`
	SkuName   string `json:"sku_name"`
	SkuSpecs  string `json:"sku_specs,omitempty"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

type orderPayload struct {
	ID           string             `json:"id"`
	OrderNo      string             `json:"order_no"`
	ShopID       string             `json:"shop_id"`
	Status       string             `json:"status"`
	TotalAmount  string             `json:"total_amount"`
	PayAmount    string             `json:"pay_amount"`
	Receiver     receiverPayload    `json:"receiver"`
	Items        []orderItemPayload `json:"items,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	PayTime      *time.Time         `json:"pay_time,omitempty"`
	ShipTime     *time.Time         `json:"ship_time,omitempty"`
	CompleteTime *time.Time         `json:"complete_time,omitempty"`
	CancelTime   *time.Time         `json:"cancel_time,omitempty"`
}

type paymentPayload struct {
	ID            string     `json:"id"`
	PaymentNo     string     `json:"payment_no"`
	OrderID       string     `json:"order_id"`
	OrderNo       string     `json:"order_no"`
	Method        string     `json:"method"`
	Amount        string     `json:"amount"`
	Status        string     `json:"status"`
	TransactionID *string    `json:"transaction_id,omitempty"`
	PayTime       *time.Time `json:"pay_time,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toOrderPayload(order domain.Order) orderPayload {
	payload := orderPayload{
		ID:          order.ID,
		OrderNo:     order.OrderNo,
		ShopID:      order.ShopID,
		Status:      string(order.Status),
		TotalAmount: order.TotalAmount.String(),
		PayAmount:   order.PayAmount.String(),
		Receiver: receiverPayload{
			Name:    order.Receiver.Name,
			Phone:   order.Receiver.Phone,
			Address: order.Receiver.Address,
		},
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
		PayTime:      order.PayTime,
		ShipTime:     order.ShipTime,
		CompleteTime: order.CompleteTime,
		CancelTime:   order.CancelTime,
	}
	for _, item := range order.Items {
		payload.Items = append(payload.Items, orderItemPayload{
			ID:        item.ID,
			ProductID: item.ProductID,
			SkuID:     item.SkuID,
			SkuName:   item.SkuName,
			SkuSpecs:  item.SkuSpecs,
			Price:     item.Price.String(),
			Quantity:  item.Quantity.Int(),
			LineTotal: item.LineTotal.String(),
		})
	}
	return payload
}

func toPaymentPayload(payment domain.Payment) paymentPayload {
	return paymentPayload{
		ID:            payment.ID,
		PaymentNo:     payment.PaymentNo,
		OrderID:       payment.OrderID,
		OrderNo:       payment.OrderNo,
		Method:        string(payment.Method),
		Amount:        payment.Amount.String(),
		Status:        string(payment.Status),
		TransactionID: payment.TransactionID,
		PayTime:       payment.PayTime,
		CreatedAt:     payment.CreatedAt,
	}
}

// writeServiceError translates service-layer failures onto the JSON
// error envelope and an appropriate status code.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput),
		errors.Is(err, services.ErrPaymentInvalidInput),
		errors.Is(err, services.ErrInventoryInvalidInput),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidQuantity):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrUnauthorized):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "you do not own this resource", http.StatusForbidden))
	case errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrPaymentNotFound),
		errors.Is(err, services.ErrSkuNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, domain.ErrInvalidTransition):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_transition", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrDuplicatePayment):
		httpx.WriteError(ctx, w, httpx.NewError("duplicate_payment", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrInsufficientStock):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrProductUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("product_unavailable", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal server error", http.StatusInternalServerError))
	}
}

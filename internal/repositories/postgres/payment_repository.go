package postgres

import (
	"context"

	domain "github.com/kuromall/api/internal/domain"
)

// PaymentRepository persists payment records. The payments table carries
// unique indexes on payment_no and order_id, so the one-payment-per-order
// rule is enforced by the database as well as the service layer.
type PaymentRepository struct {
	store *Store
}

// NewPaymentRepository constructs a Postgres-backed payment repository.
func NewPaymentRepository(store *Store) *PaymentRepository {
	return &PaymentRepository{store: store}
}

// Insert stores a freshly created payment.
func (r *PaymentRepository) Insert(ctx context.Context, payment domain.Payment) error {
	const query = `
		INSERT INTO payments (
			id, payment_no, order_id, order_no, method, amount, status,
			transaction_id, pay_time, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.store.db(ctx).Exec(ctx, query,
		payment.ID, payment.PaymentNo, payment.OrderID, payment.OrderNo,
		string(payment.Method), payment.Amount.String(), string(payment.Status),
		payment.TransactionID, payment.PayTime, payment.CreatedAt, payment.UpdatedAt,
	)
	return wrapError("payments.insert", err)
}

// Update rewrites the mutable fields of an existing payment.
func (r *PaymentRepository) Update(ctx context.Context, payment domain.Payment) error {
	const query = `
		UPDATE payments SET
			status = $2, transaction_id = $3, pay_time = $4, updated_at = $5
		WHERE id = $1`

	tag, err := r.store.db(ctx).Exec(ctx, query,
		payment.ID, string(payment.Status), payment.TransactionID,
		payment.PayTime, payment.UpdatedAt,
	)
	if err != nil {
		return wrapError("payments.update", err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundError("payments.update", "payment "+payment.ID+" not found")
	}
	return nil
}

// FindByPaymentNo loads one payment by its external-facing number.
func (r *PaymentRepository) FindByPaymentNo(ctx context.Context, paymentNo string) (domain.Payment, error) {
	return r.findOne(ctx, "payments.findByPaymentNo", `WHERE payment_no = $1`, paymentNo)
}

// FindByOrderID loads the payment attached to one order.
func (r *PaymentRepository) FindByOrderID(ctx context.Context, orderID string) (domain.Payment, error) {
	return r.findOne(ctx, "payments.findByOrderID", `WHERE order_id = $1`, orderID)
}

func (r *PaymentRepository) findOne(ctx context.Context, op string, where string, arg any) (domain.Payment, error) {
	query := `
		SELECT id, payment_no, order_id, order_no, method, amount::text, status,
			transaction_id, pay_time, created_at, updated_at
		FROM payments ` + where

	var (
		payment        domain.Payment
		method, status string
		amount         string
	)
	err := r.store.db(ctx).QueryRow(ctx, query, arg).Scan(
		&payment.ID, &payment.PaymentNo, &payment.OrderID, &payment.OrderNo,
		&method, &amount, &status,
		&payment.TransactionID, &payment.PayTime, &payment.CreatedAt, &payment.UpdatedAt,
	)
	if err != nil {
		return domain.Payment{}, wrapError(op, err)
	}
	if payment.Amount, err = domain.ParseMoney(amount); err != nil {
		return domain.Payment{}, wrapError(op, err)
	}
	payment.Method = domain.PaymentMethod(method)
	payment.Status = domain.PaymentStatus(status)
	payment.CreatedAt = payment.CreatedAt.UTC()
	payment.UpdatedAt = payment.UpdatedAt.UTC()
	if payment.PayTime != nil {
		utc := payment.PayTime.UTC()
		payment.PayTime = &utc
	}
	return payment, nil
}

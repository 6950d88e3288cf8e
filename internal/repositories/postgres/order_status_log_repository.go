package postgres

import (
	"context"

	domain "github.com/kuromall/api/internal/domain"
)

// OrderStatusLogRepository appends transition audit records. Rows are
// never updated or deleted.
type OrderStatusLogRepository struct {
	store *Store
}

// NewOrderStatusLogRepository constructs a Postgres-backed status log repository.
func NewOrderStatusLogRepository(store *Store) *OrderStatusLogRepository {
	return &OrderStatusLogRepository{store: store}
}

// Append stores one transition record.
func (r *OrderStatusLogRepository) Append(ctx context.Context, log domain.OrderStatusLog) error {
	const query = `
		INSERT INTO order_status_logs (
			id, order_id, old_status, new_status, remark, operator, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.store.db(ctx).Exec(ctx, query,
		log.ID, log.OrderID, string(log.OldStatus), string(log.NewStatus),
		log.Remark, log.Operator, log.CreatedAt,
	)
	return wrapError("orderStatusLogs.append", err)
}

// ListByOrder returns every transition of one order, oldest first.
func (r *OrderStatusLogRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.OrderStatusLog, error) {
	const query = `
		SELECT id, order_id, old_status, new_status, remark, operator, created_at
		FROM order_status_logs
		WHERE order_id = $1
		ORDER BY created_at, id`

	rows, err := r.store.db(ctx).Query(ctx, query, orderID)
	if err != nil {
		return nil, wrapError("orderStatusLogs.listByOrder", err)
	}
	defer rows.Close()

	var logs []domain.OrderStatusLog
	for rows.Next() {
		var (
			log                  domain.OrderStatusLog
			oldStatus, newStatus string
		)
		if err := rows.Scan(
			&log.ID, &log.OrderID, &oldStatus, &newStatus,
			&log.Remark, &log.Operator, &log.CreatedAt,
		); err != nil {
			return nil, wrapError("orderStatusLogs.listByOrder", err)
		}
		log.OldStatus = domain.OrderStatus(oldStatus)
		log.NewStatus = domain.OrderStatus(newStatus)
		log.CreatedAt = log.CreatedAt.UTC()
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("orderStatusLogs.listByOrder", err)
	}
	return logs, nil
}

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	domain "github.com/kuromall/api/internal/domain"
	"github.com/kuromall/api/internal/repositories"
)

// SkuRepository reads SKU snapshots and owns the stock counter mutations.
type SkuRepository struct {
	store *Store
}

// NewSkuRepository constructs a Postgres-backed SKU repository.
func NewSkuRepository(store *Store) *SkuRepository {
	return &SkuRepository{store: store}
}

// FindByID loads one SKU snapshot including its current stock.
func (r *SkuRepository) FindByID(ctx context.Context, skuID string) (domain.ProductSku, error) {
	const query = `
		SELECT id, product_id, name, specs, price::text, stock, updated_at
		FROM product_skus
		WHERE id = $1`

	var (
		sku   domain.ProductSku
		price string
		stock int
	)
	err := r.store.db(ctx).QueryRow(ctx, query, skuID).Scan(
		&sku.ID, &sku.ProductID, &sku.Name, &sku.Specs, &price, &stock, &sku.UpdatedAt,
	)
	if err != nil {
		return domain.ProductSku{}, wrapError("skus.findByID", err)
	}
	if sku.Price, err = domain.ParseMoney(price); err != nil {
		return domain.ProductSku{}, wrapError("skus.findByID", err)
	}
	if sku.Stock, err = domain.NewQuantity(stock); err != nil {
		return domain.ProductSku{}, wrapError("skus.findByID", err)
	}
	sku.UpdatedAt = sku.UpdatedAt.UTC()
	return sku, nil
}

// DecreaseStock performs a compare-and-swap decrement in a single
// statement. The row is touched only when stock still equals
// expectedStock and covers quantity; zero rows affected means either a
// concurrent change or insufficient stock.
func (r *SkuRepository) DecreaseStock(ctx context.Context, skuID string, quantity int, expectedStock int) (int64, error) {
	const query = `
		UPDATE product_skus
		SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock = $3 AND stock >= $2`

	tag, err := r.store.db(ctx).Exec(ctx, query, skuID, quantity, expectedStock)
	if err != nil {
		// The stock >= 0 check constraint firing means the counter cannot
		// cover the decrement.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation {
			return 0, &repositories.InventoryError{
				Op:      "skus.decreaseStock",
				Code:    repositories.InventoryErrorInsufficientStock,
				Message: "stock for sku " + skuID + " cannot cover the requested quantity",
				Err:     err,
			}
		}
		return 0, wrapError("skus.decreaseStock", err)
	}
	return tag.RowsAffected(), nil
}

// IncreaseStock adds quantity back to the counter. Restocking cannot
// oversell, so no version token is required.
func (r *SkuRepository) IncreaseStock(ctx context.Context, skuID string, quantity int) error {
	const query = `
		UPDATE product_skus
		SET stock = stock + $2, updated_at = now()
		WHERE id = $1`

	tag, err := r.store.db(ctx).Exec(ctx, query, skuID, quantity)
	if err != nil {
		return wrapError("skus.increaseStock", err)
	}
	if tag.RowsAffected() == 0 {
		return &repositories.InventoryError{
			Op:      "skus.increaseStock",
			Code:    repositories.InventoryErrorSkuNotFound,
			Message: "sku " + skuID + " not found",
		}
	}
	return nil
}

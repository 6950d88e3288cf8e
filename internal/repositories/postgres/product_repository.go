package postgres

import (
	"context"

	domain "github.com/kuromall/api/internal/domain"
)

// ProductRepository exposes read-only purchasability state.
type ProductRepository struct {
	store *Store
}

// NewProductRepository constructs a Postgres-backed product repository.
func NewProductRepository(store *Store) *ProductRepository {
	return &ProductRepository{store: store}
}

// FindByID loads one product by its identifier.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	const query = `
		SELECT id, shop_id, name, status
		FROM products
		WHERE id = $1`

	var (
		product domain.Product
		status  string
	)
	err := r.store.db(ctx).QueryRow(ctx, query, productID).Scan(
		&product.ID, &product.ShopID, &product.Name, &status,
	)
	if err != nil {
		return domain.Product{}, wrapError("products.findByID", err)
	}
	product.Status = domain.ProductStatus(status)
	return product, nil
}

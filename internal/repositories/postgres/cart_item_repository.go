package postgres

import "context"

// CartItemRepository removes cart lines after they were converted into an
// order. Cart cleanup runs outside the checkout transaction and is best
// effort, so missing rows are not an error.
type CartItemRepository struct {
	store *Store
}

// NewCartItemRepository constructs a Postgres-backed cart item repository.
func NewCartItemRepository(store *Store) *CartItemRepository {
	return &CartItemRepository{store: store}
}

// DeleteByIDs removes the given cart lines owned by userID. Lines already
// gone are skipped silently.
func (r *CartItemRepository) DeleteByIDs(ctx context.Context, userID string, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}

	const query = `DELETE FROM cart_items WHERE user_id = $1 AND id = ANY($2)`

	_, err := r.store.db(ctx).Exec(ctx, query, userID, itemIDs)
	return wrapError("cartItems.deleteByIDs", err)
}

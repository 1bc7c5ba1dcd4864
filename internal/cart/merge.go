package cart

import (
	"context"

	"github.com/dixis/marketplace/internal/models"
)

// MergeItems applies the login-time reconciliation policy: when the server
// cart already has lines it wins outright; otherwise the locally held lines
// are adopted wholesale. No per-line union is attempted.
func MergeItems(server, local []models.CartItem) []models.CartItem {
	if len(server) > 0 {
		return server
	}
	return sanitize(local)
}

// MergeLocal reconciles a client's locally persisted lines into the cart and
// returns the authoritative result, which the client replaces its local copy
// with. Callers treat a failure here as non-blocking: login proceeds, the
// error is only logged.
func (s *Store) MergeLocal(ctx context.Context, cartID string, local []models.CartItem) ([]models.CartItem, error) {
	server, err := s.Items(ctx, cartID)
	if err != nil {
		return nil, err
	}
	merged := MergeItems(server, local)
	if err := s.save(ctx, cartID, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// sanitize drops malformed incoming lines and collapses duplicates, since
// the local copy is client-supplied.
func sanitize(items []models.CartItem) []models.CartItem {
	var out []models.CartItem
	for _, it := range items {
		if it.ProductID == 0 || it.Quantity <= 0 {
			continue
		}
		out = applyAdd(out, it)
	}
	return out
}

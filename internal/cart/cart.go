// Package cart holds session carts in Redis. A cart is owned by exactly one
// browser session; mutations arrive serialized from that session, so writes
// use plain read-modify-write on a single JSON value per cart key.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/dixis/marketplace/internal/models"
)

const keyPrefix = "dixis:cart:"

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore wraps an already-connected Redis client. ttl bounds how long an
// untouched guest cart survives; every mutation refreshes it.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Store{client: client, ttl: ttl}
}

// Create allocates a new empty cart and returns its id.
func (s *Store) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if err := s.save(ctx, id, nil); err != nil {
		return "", err
	}
	return id, nil
}

// Items returns the cart's lines in insertion order. A missing key is an
// empty cart, not an error; expired guest carts come back empty.
func (s *Store) Items(ctx context.Context, cartID string) ([]models.CartItem, error) {
	raw, err := s.client.Get(ctx, keyPrefix+cartID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart %s: %w", cartID, err)
	}

	var items []models.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", cartID, err)
	}
	return items, nil
}

// AddItem inserts a line or increments an existing one. A non-positive
// quantity is clamped to removal.
func (s *Store) AddItem(ctx context.Context, cartID string, item models.CartItem) ([]models.CartItem, error) {
	return s.mutate(ctx, cartID, func(items []models.CartItem) []models.CartItem {
		return applyAdd(items, item)
	})
}

// UpdateQuantity sets a line's quantity. qty <= 0 removes the line; setting
// the same quantity twice is a no-op after the first call.
func (s *Store) UpdateQuantity(ctx context.Context, cartID string, productID int64, qty int) ([]models.CartItem, error) {
	return s.mutate(ctx, cartID, func(items []models.CartItem) []models.CartItem {
		return applyQuantity(items, productID, qty)
	})
}

// RemoveItem deletes a line. Removing an absent product is a no-op.
func (s *Store) RemoveItem(ctx context.Context, cartID string, productID int64) ([]models.CartItem, error) {
	return s.mutate(ctx, cartID, func(items []models.CartItem) []models.CartItem {
		return applyQuantity(items, productID, 0)
	})
}

// Clear empties the cart. Used after a successful checkout.
func (s *Store) Clear(ctx context.Context, cartID string) error {
	return s.save(ctx, cartID, nil)
}

func (s *Store) mutate(ctx context.Context, cartID string, fn func([]models.CartItem) []models.CartItem) ([]models.CartItem, error) {
	items, err := s.Items(ctx, cartID)
	if err != nil {
		return nil, err
	}
	items = fn(items)
	if err := s.save(ctx, cartID, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) save(ctx context.Context, cartID string, items []models.CartItem) error {
	if items == nil {
		items = []models.CartItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", cartID, err)
	}
	if err := s.client.Set(ctx, keyPrefix+cartID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save cart %s: %w", cartID, err)
	}
	return nil
}

// applyAdd is the pure add-or-increment step.
func applyAdd(items []models.CartItem, item models.CartItem) []models.CartItem {
	if item.Quantity <= 0 {
		return applyQuantity(items, item.ProductID, 0)
	}
	for i := range items {
		if items[i].ProductID == item.ProductID {
			items[i].Quantity += item.Quantity
			return items
		}
	}
	return append(items, item)
}

// applyQuantity is the pure set-or-remove step. qty <= 0 deletes the line,
// preserving the order of the rest.
func applyQuantity(items []models.CartItem, productID int64, qty int) []models.CartItem {
	for i := range items {
		if items[i].ProductID != productID {
			continue
		}
		if qty <= 0 {
			return append(items[:i], items[i+1:]...)
		}
		items[i].Quantity = qty
		return items
	}
	return items
}

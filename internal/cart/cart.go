// Package cart holds a buyer's pending selections before an order exists.
// Carts are transient: they live in redis with a TTL and carry no lifecycle
// guarantees beyond "exists until checkout or explicit removal".
package cart

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/chaintrack/chaintrack/internal/fault"
	"github.com/chaintrack/chaintrack/internal/orders"
	"github.com/chaintrack/chaintrack/internal/redisx"
)

type Item struct {
	ProductID    string   `json:"product_id"`
	SellerID     string   `json:"seller_id"`
	ProductName  string   `json:"product_name,omitempty"`
	IsSerialized bool     `json:"is_serialized"`
	Qty          int      `json:"qty"`
	UnitIDs      []string `json:"unit_ids,omitempty"`
}

// merge folds a repeated add into the existing line: quantities accumulate and
// serialized-unit selections union without duplicates.
func merge(existing, incoming Item) Item {
	out := existing
	out.Qty += incoming.Qty
	seen := map[string]bool{}
	for _, id := range existing.UnitIDs {
		seen[id] = true
	}
	for _, id := range incoming.UnitIDs {
		if !seen[id] {
			out.UnitIDs = append(out.UnitIDs, id)
			seen[id] = true
		}
	}
	if incoming.ProductName != "" {
		out.ProductName = incoming.ProductName
	}
	return out
}

func fieldKey(productID, sellerID string) string {
	return productID + ":" + sellerID
}

type Store struct {
	Redis *redis.Client
}

func (s *Store) Add(ctx context.Context, buyerID string, it Item) (Item, error) {
	if it.ProductID == "" || it.SellerID == "" {
		return Item{}, fault.Validation("cart item needs product and seller")
	}
	if it.Qty <= 0 {
		return Item{}, fault.Validation("quantity must be positive, got %d", it.Qty)
	}

	key := fmt.Sprintf(redisx.KeyCart, buyerID)
	field := fieldKey(it.ProductID, it.SellerID)

	raw, err := s.Redis.HGet(ctx, key, field).Result()
	if err == nil && raw != "" {
		var existing Item
		if err := json.Unmarshal([]byte(raw), &existing); err == nil {
			it = merge(existing, it)
		}
	} else if err != redis.Nil && err != nil {
		return Item{}, err
	}

	b, err := json.Marshal(it)
	if err != nil {
		return Item{}, err
	}
	if err := s.Redis.HSet(ctx, key, field, b).Err(); err != nil {
		return Item{}, err
	}
	_ = s.Redis.Expire(ctx, key, redisx.TTLCart).Err()
	return it, nil
}

func (s *Store) Remove(ctx context.Context, buyerID, productID, sellerID string) error {
	key := fmt.Sprintf(redisx.KeyCart, buyerID)
	return s.Redis.HDel(ctx, key, fieldKey(productID, sellerID)).Err()
}

func (s *Store) Items(ctx context.Context, buyerID string) ([]Item, error) {
	key := fmt.Sprintf(redisx.KeyCart, buyerID)
	raw, err := s.Redis.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Item, 0, len(raw))
	for _, v := range raw {
		var it Item
		if err := json.Unmarshal([]byte(v), &it); err != nil {
			continue // drop unreadable lines rather than wedging the cart
		}
		out = append(out, it)
	}
	return out, nil
}

func (s *Store) Clear(ctx context.Context, buyerID string) error {
	return s.Redis.Del(ctx, fmt.Sprintf(redisx.KeyCart, buyerID)).Err()
}

// OrderPlacer is the slice of the coordinator checkout needs.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, productID, sellerID string, qty int, unitSelection []string) (*orders.Order, error)
}

// Checkout drains the cart into one order per line. The cart is cleared only
// when every line placed; a mid-way failure leaves already-placed orders
// standing and the remaining lines in the cart for the buyer to retry.
func (s *Store) Checkout(ctx context.Context, buyerID string, placer OrderPlacer) ([]orders.Order, error) {
	items, err := s.Items(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fault.Validation("cart is empty")
	}

	placed := make([]orders.Order, 0, len(items))
	for _, it := range items {
		o, err := placer.PlaceOrder(ctx, it.ProductID, it.SellerID, it.Qty, it.UnitIDs)
		if err != nil {
			for _, done := range placed {
				_ = s.Remove(ctx, buyerID, done.ProductID, done.SellerID)
			}
			return placed, err
		}
		placed = append(placed, *o)
	}
	if err := s.Clear(ctx, buyerID); err != nil {
		return placed, err
	}
	return placed, nil
}

package cart

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"

	"snap2sell/db"
	"snap2sell/globals"
	"snap2sell/models"
	"snap2sell/mq"

	"github.com/sirupsen/logrus"
)

// Summary is the payload of cart.changed events.
type Summary struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// Store is the persisted cart. Every mutation re-reads the durable copy, applies the change
// and writes it back before returning, so the last writer wins across processes.
// Persistence failures are logged; the in-memory copy stays authoritative.
type Store struct {
	store db.Storage
	bus   *mq.Bus
	log   logrus.FieldLogger

	mu    sync.Mutex
	items []models.LineItem
	stale bool
}

// New loads the cart from store.
func New(ctx context.Context, store db.Storage, bus *mq.Bus, log logrus.FieldLogger) *Store {
	c := &Store{store: store, bus: bus, log: log}
	c.mu.Lock()
	c.items = c.load(ctx)
	c.mu.Unlock()
	return c
}

// Get returns the current items and clears the possibly-stale flag.
func (c *Store) Get(ctx context.Context) []models.LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = c.load(ctx)
	c.stale = false
	return clone(c.items)
}

// Add puts one unit of p in the cart, incrementing the quantity if it is already there.
func (c *Store) Add(ctx context.Context, p models.CartProduct) []models.LineItem {
	if p.ProductID == "" {
		c.log.Warn("Cart add ignored: product without id")
		return c.Snapshot()
	}
	return c.mutate(ctx, func(items []models.LineItem) []models.LineItem {
		for i := range items {
			if items[i].ProductID == p.ProductID {
				items[i].Quantity++
				return items
			}
		}
		return append(items, models.LineItem{
			ProductID: p.ProductID,
			Name:      p.Name,
			Price:     math.Max(0, p.Price),
			Quantity:  1,
			ImageURL:  p.ImageURL,
		})
	})
}

// UpdateQuantity sets the quantity of productID to max(1, n). Unknown ids are a no-op.
func (c *Store) UpdateQuantity(ctx context.Context, productID string, n int) []models.LineItem {
	return c.mutate(ctx, func(items []models.LineItem) []models.LineItem {
		for i := range items {
			if items[i].ProductID == productID {
				items[i].Quantity = max(1, n)
			}
		}
		return items
	})
}

// Remove drops productID from the cart. Removing an absent id is a no-op.
func (c *Store) Remove(ctx context.Context, productID string) []models.LineItem {
	return c.mutate(ctx, func(items []models.LineItem) []models.LineItem {
		out := items[:0]
		for _, it := range items {
			if it.ProductID != productID {
				out = append(out, it)
			}
		}
		return out
	})
}

// Clear empties the cart.
func (c *Store) Clear(ctx context.Context) []models.LineItem {
	return c.mutate(ctx, func([]models.LineItem) []models.LineItem {
		return []models.LineItem{}
	})
}

// Total is the sum of price*quantity; 0 for an empty cart.
func (c *Store) Total(ctx context.Context) float64 {
	return models.CartTotal(c.Get(ctx))
}

// Count is the number of distinct line items, as shown on the cart badge.
func (c *Store) Count(ctx context.Context) int {
	return len(c.Get(ctx))
}

// Snapshot returns the in-memory items without touching storage.
func (c *Store) Snapshot() []models.LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return clone(c.items)
}

// Stale reports whether the durable cart changed since the last Get.
func (c *Store) Stale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stale
}

// Raw returns the exact JSON persisted for the cart.
func (c *Store) Raw(ctx context.Context) string {
	raw, err := db.GetOr(ctx, c.store, globals.CartKey, "[]")
	if err != nil {
		c.log.WithError(err).Warn("Cart raw read error")
	}
	return raw
}

func (c *Store) mutate(ctx context.Context, fn func([]models.LineItem) []models.LineItem) []models.LineItem {
	c.mu.Lock()
	items := fn(c.load(ctx))
	if items == nil {
		items = []models.LineItem{}
	}
	c.items = items
	c.persist(ctx, items)
	out := clone(items)
	c.mu.Unlock()

	c.bus.Emit(ctx, globals.EventCartChanged, summarize(out))
	return out
}

// load reads the durable cart, falling back to the in-memory copy when storage fails.
// Caller holds mu.
func (c *Store) load(ctx context.Context) []models.LineItem {
	raw, err := c.store.Get(ctx, globals.CartKey)
	if errors.Is(err, db.ErrNotFound) {
		return []models.LineItem{}
	}
	if err != nil {
		c.log.WithError(err).Warn("Cart load error")
		return clone(c.items)
	}
	items, err := decode(raw)
	if err != nil {
		c.log.WithError(err).Warn("Cart decode error, starting empty")
		return []models.LineItem{}
	}
	return items
}

func (c *Store) persist(ctx context.Context, items []models.LineItem) {
	raw, err := json.Marshal(items)
	if err != nil {
		c.log.WithError(err).Error("Cart encode error")
		return
	}
	if err := c.store.Set(ctx, globals.CartKey, string(raw)); err != nil {
		c.log.WithError(err).Error("Cart persist error")
	}
}

// decode parses a stored cart and repairs entries that break the cart invariants: blank ids
// are dropped, duplicate ids merged, quantities raised to 1 and negative prices zeroed.
func decode(raw string) ([]models.LineItem, error) {
	var stored []models.LineItem
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, err
	}
	items := make([]models.LineItem, 0, len(stored))
	index := make(map[string]int, len(stored))
	for _, it := range stored {
		if it.ProductID == "" {
			continue
		}
		it.Quantity = max(1, it.Quantity)
		it.Price = math.Max(0, it.Price)
		if i, ok := index[it.ProductID]; ok {
			items[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(items)
		items = append(items, it)
	}
	return items, nil
}

func summarize(items []models.LineItem) Summary {
	return Summary{Count: len(items), Total: models.CartTotal(items)}
}

func clone(items []models.LineItem) []models.LineItem {
	out := make([]models.LineItem, len(items))
	copy(out, items)
	return out
}

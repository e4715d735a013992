package cart

import (
	"context"
	"reflect"
	"time"

	"snap2sell/db"
	"snap2sell/globals"
)

// DefaultPollInterval matches how often the storefront badge re-reads the cart.
const DefaultPollInterval = 500 * time.Millisecond

// Watch keeps the in-memory cart in step with the durable copy until ctx is done. It polls
// every interval and, when the storage backend can report foreign writes, reacts to those
// immediately. A detected change marks the cart possibly stale and emits cart.changed.
func (c *Store) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var changes <-chan string
	if w, ok := c.store.(db.Watcher); ok {
		ch, err := w.Watch(ctx)
		if err != nil {
			c.log.WithError(err).Warn("Cart watch unavailable, polling only")
		}
		changes = ch
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sync(ctx)
		case key, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			if key == globals.CartKey {
				c.Sync(ctx)
			}
		}
	}
}

// Sync re-reads the durable cart and reports whether it differed from memory.
func (c *Store) Sync(ctx context.Context) bool {
	c.mu.Lock()
	fresh := c.load(ctx)
	if reflect.DeepEqual(fresh, c.items) {
		c.mu.Unlock()
		return false
	}
	c.items = fresh
	c.stale = true
	out := clone(fresh)
	c.mu.Unlock()

	c.log.WithField("count", len(out)).Debug("Cart changed elsewhere")
	c.bus.Emit(ctx, globals.EventCartChanged, summarize(out))
	return true
}

package query

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultRetention is how long an unobserved entry survives.
const DefaultRetention = 5 * time.Minute

// StartCollector drops, every interval, the entries that have no observers,
// no request in flight and were last used more than retention ago.
func (c *Client) StartCollector(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.base.Done():
				return
			case <-ticker.C:
				if n := c.collect(retention); n > 0 {
					c.log.Debug("collected idle cache entries", zap.Int("removed", n))
				}
			}
		}
	}()
}

func (c *Client) collect(retention time.Duration) int {
	cutoff := c.now().Add(-retention)
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for hash, e := range c.entries {
		if len(e.observers) > 0 || e.fetching || e.lastUsed.After(cutoff) {
			continue
		}
		delete(c.entries, hash)
		n++
	}
	return n
}

package arca

import (
	"fmt"
	"sync"
	"time"
)

// Tickets within this margin of expiry are treated as unusable so renewal
// happens before the remote service starts rejecting them.
const expiryMargin = 5 * time.Minute

// TicketCache is an in-memory, single-process cache of WSAA access tickets.
// WSAA tickets live up to 12 hours; caching avoids re-authenticating on every
// call. Construct one per process and inject it where needed. It does not
// coordinate across replicas: running several processes per (CUIT, ambiente)
// multiplies WSAA logins.
type TicketCache struct {
	mu      sync.Mutex
	entries map[string]Ticket
	now     func() time.Time
}

// NewTicketCache creates an empty cache.
func NewTicketCache() *TicketCache {
	return &TicketCache{
		entries: make(map[string]Ticket),
		now:     time.Now,
	}
}

// CacheKey builds the cache key for a (service, cuit, ambiente) triple.
func CacheKey(service, cuit string, ambiente Ambiente) string {
	return fmt.Sprintf("%s_%s_%s", service, cuit, ambiente)
}

// Get returns the cached ticket for key. Expired or near-expiry entries are
// evicted and reported as a miss.
func (c *TicketCache) Get(key string) (Ticket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.entries[key]
	if !ok {
		return Ticket{}, false
	}
	if !c.now().Add(expiryMargin).Before(t.Expiration) {
		delete(c.entries, key)
		return Ticket{}, false
	}
	return t, true
}

// Set stores a ticket under key, replacing any previous entry.
func (c *TicketCache) Set(key string, t Ticket) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = t
}

// Delete removes the entry for key if present.
func (c *TicketCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry.
func (c *TicketCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Ticket)
}

// CleanupExpired removes entries whose expiration has passed (the renewal
// margin does not apply here) and returns how many were removed.
func (c *TicketCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, t := range c.entries {
		if t.Expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

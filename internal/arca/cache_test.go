package arca

import (
	"testing"
	"time"
)

func newTestCache(now time.Time) *TicketCache {
	c := NewTicketCache()
	c.now = func() time.Time { return now }
	return c
}

func TestTicketCacheNearExpiryIsMiss(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCache(now)
	key := CacheKey("wsfe", "20409378472", AmbienteHomologacion)

	c.Set(key, Ticket{Token: "tok", Sign: "sig", Expiration: now.Add(3 * time.Minute)})
	if _, ok := c.Get(key); ok {
		t.Fatal("ticket 3 minutes from expiry must be a miss (5 minute margin)")
	}
	// the near-expiry entry was evicted, not just hidden
	c.now = func() time.Time { return now.Add(-time.Hour) }
	if _, ok := c.Get(key); ok {
		t.Fatal("near-expiry entry should have been evicted on first Get")
	}
}

func TestTicketCacheValidTicketIsHit(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCache(now)
	key := CacheKey("wsfe", "20409378472", AmbienteHomologacion)

	want := Ticket{Token: "tok", Sign: "sig", Expiration: now.Add(12 * time.Hour), Service: "wsfe"}
	c.Set(key, want)

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("ticket 12h from expiry must be a hit")
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestTicketCacheDeleteIsScoped(t *testing.T) {
	now := time.Now()
	c := newTestCache(now)
	exp := now.Add(time.Hour)

	c.Set(CacheKey("wsfe", "20409378472", AmbienteHomologacion), Ticket{Token: "a", Expiration: exp})
	c.Set(CacheKey("wsfex", "20409378472", AmbienteHomologacion), Ticket{Token: "b", Expiration: exp})
	c.Set(CacheKey("wsfe", "20409378472", AmbienteProduccion), Ticket{Token: "c", Expiration: exp})

	c.Delete(CacheKey("wsfe", "20409378472", AmbienteHomologacion))

	if _, ok := c.Get(CacheKey("wsfex", "20409378472", AmbienteHomologacion)); !ok {
		t.Fatal("delete touched another service")
	}
	if _, ok := c.Get(CacheKey("wsfe", "20409378472", AmbienteProduccion)); !ok {
		t.Fatal("delete touched another environment")
	}
}

func TestTicketCacheCleanupExpired(t *testing.T) {
	now := time.Now()
	c := newTestCache(now)

	c.Set("expired-1", Ticket{Expiration: now.Add(-time.Minute)})
	c.Set("expired-2", Ticket{Expiration: now})
	// inside the renewal margin but not yet expired: CleanupExpired keeps it
	c.Set("near", Ticket{Expiration: now.Add(2 * time.Minute)})
	c.Set("valid", Ticket{Expiration: now.Add(6 * time.Hour)})

	if got := c.CleanupExpired(); got != 2 {
		t.Fatalf("CleanupExpired = %d, want 2", got)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries["near"]; !ok {
		t.Fatal("cleanup removed a not-yet-expired entry")
	}
	if _, ok := c.entries["valid"]; !ok {
		t.Fatal("cleanup removed a valid entry")
	}
	if len(c.entries) != 2 {
		t.Fatalf("want 2 remaining entries, got %d", len(c.entries))
	}
}

func TestTicketCacheClear(t *testing.T) {
	c := newTestCache(time.Now())
	c.Set("a", Ticket{Expiration: time.Now().Add(time.Hour)})
	c.Set("b", Ticket{Expiration: time.Now().Add(time.Hour)})
	c.Clear()
	if _, ok := c.Get("a"); ok {
		t.Fatal("clear left entries behind")
	}
}

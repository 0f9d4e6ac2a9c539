package client

import (
	"bytes"
	"testing"
	"time"
)

func TestCacheTTL(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cache := NewCache(30*time.Second, clock.Now)

	cache.Set("reports/1", []byte(`{"id":1}`))

	body, ok := cache.Get("reports/1")
	if !ok {
		t.Fatal("expected fresh entry to be served")
	}
	if !bytes.Equal(body, []byte(`{"id":1}`)) {
		t.Errorf("unexpected body: %s", body)
	}

	clock.Advance(29 * time.Second)
	if _, ok := cache.Get("reports/1"); !ok {
		t.Error("entry expired before TTL")
	}

	clock.Advance(2 * time.Second)
	if _, ok := cache.Get("reports/1"); ok {
		t.Error("entry served past TTL")
	}
}

func TestCacheOverwrite(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cache := NewCache(30*time.Second, clock.Now)

	cache.Set("reports/1", []byte(`old`))
	clock.Advance(20 * time.Second)
	cache.Set("reports/1", []byte(`new`))
	clock.Advance(20 * time.Second)

	// The overwrite restarted the entry's clock.
	body, ok := cache.Get("reports/1")
	if !ok {
		t.Fatal("overwritten entry should be fresh")
	}
	if string(body) != "new" {
		t.Errorf("expected new body, got %s", body)
	}
}

func TestCacheClear(t *testing.T) {
	cache := NewCache(30*time.Second, nil)
	cache.Set("a", []byte(`1`))
	cache.Set("b", []byte(`2`))

	cache.Clear()

	if cache.Len() != 0 {
		t.Errorf("expected empty cache after clear, got %d entries", cache.Len())
	}
	if _, ok := cache.Get("a"); ok {
		t.Error("cleared entry still served")
	}
}

func TestCacheDisabledWithZeroTTL(t *testing.T) {
	cache := NewCache(0, nil)
	cache.Set("a", []byte(`1`))

	if _, ok := cache.Get("a"); ok {
		t.Error("zero-TTL cache must never serve entries")
	}
	if cache.Len() != 0 {
		t.Error("zero-TTL cache must not store entries")
	}
}

func TestCacheCopiesBody(t *testing.T) {
	cache := NewCache(30*time.Second, nil)

	body := []byte(`original`)
	cache.Set("a", body)
	body[0] = 'X'

	cached, ok := cache.Get("a")
	if !ok {
		t.Fatal("expected entry")
	}
	if string(cached) != "original" {
		t.Errorf("caller mutation leaked into cache: %s", cached)
	}
}

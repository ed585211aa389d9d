package gradio_test

import (
	"testing"
	"time"

	"github.com/MrWong99/gatewaymcp/internal/mcp/gradio"
)

// TestCache_PrivacyInvariant verifies P1: Set refuses to store entries for
// private spaces, and a subsequent Get is a miss.
func TestCache_PrivacyInvariant(t *testing.T) {
	t.Parallel()
	c := gradio.NewCache[string](time.Minute)

	c.Set("c/z", "secret", "etag1", true)

	if _, ok := c.Get("c/z"); ok {
		t.Fatal("Get found an entry that should never have been cached")
	}
	if got := c.Stats().Size; got != 0 {
		t.Fatalf("Size = %d, want 0", got)
	}
}

// TestCache_TTLFromCreation verifies P2: reads before TTL expiry are hits,
// reads at/after TTL expiry are misses, and repeated reads don't extend
// expiration.
func TestCache_TTLFromCreation(t *testing.T) {
	t.Parallel()
	c := gradio.NewCache[string](20 * time.Millisecond)

	c.Set("a/x", "v1", "etag1", false)

	if _, ok := c.Get("a/x"); !ok {
		t.Fatal("expected hit before TTL expiry")
	}
	// Multiple reads must not extend expiration.
	time.Sleep(15 * time.Millisecond)
	if _, ok := c.Get("a/x"); !ok {
		t.Fatal("expected hit still within TTL")
	}
	time.Sleep(15 * time.Millisecond)
	if _, ok := c.Get("a/x"); ok {
		t.Fatal("expected miss after TTL expiry")
	}
}

// TestCache_RevalidationIdempotent verifies repeated 304 handling leaves
// cache size unchanged and counts one ETag revalidation per touch.
func TestCache_RevalidationIdempotent(t *testing.T) {
	t.Parallel()
	c := gradio.NewCache[string](time.Millisecond)
	c.Set("a/x", "v1", "W1", false)

	_, etag, ok := c.GetForRevalidation("a/x")
	if !ok || etag != "W1" {
		t.Fatalf("GetForRevalidation = (%q, %v), want (W1, true)", etag, ok)
	}

	time.Sleep(2 * time.Millisecond)
	c.TouchRevalidated("a/x")
	time.Sleep(2 * time.Millisecond)
	c.TouchRevalidated("a/x")

	if got := c.Stats().Size; got != 1 {
		t.Fatalf("Size after two revalidations = %d, want 1", got)
	}
	if got := c.Stats().EtagRevalidations; got != 2 {
		t.Fatalf("EtagRevalidations = %d, want 2", got)
	}
}

// TestCache_ClearResetsEverything verifies clearAll() followed by Get is a
// miss and stats reset to zero.
func TestCache_ClearResetsEverything(t *testing.T) {
	t.Parallel()
	c := gradio.NewCache[string](time.Minute)
	c.Set("a/x", "v1", "", false)
	_, _ = c.Get("a/x")
	_, _ = c.Get("missing")

	c.Clear()

	if _, ok := c.Get("a/x"); ok {
		t.Fatal("expected miss after Clear")
	}
	stats := c.Stats()
	if stats.Size != 0 || stats.Hits != 0 || stats.Misses != 1 {
		t.Fatalf("Stats after Clear = %+v, want zeroed except the one miss from the Get above", stats)
	}
}

// TestCache_SetOverwritesInPlace verifies setting the same key twice doesn't
// grow the cache size.
func TestCache_SetOverwritesInPlace(t *testing.T) {
	t.Parallel()
	c := gradio.NewCache[string](time.Minute)
	c.Set("a/x", "v1", "etag1", false)
	c.Set("a/x", "v2", "etag2", false)

	if got := c.Stats().Size; got != 1 {
		t.Fatalf("Size = %d, want 1", got)
	}
	v, ok := c.Get("a/x")
	if !ok || v != "v2" {
		t.Fatalf("Get = (%q, %v), want (v2, true)", v, ok)
	}
}

package cache

import (
	"strings"
	"testing"
	"time"
)

func TestMemoryCacheBasic(t *testing.T) {
	c := NewMemoryCache()
	defer c.Stop()

	if _, found := c.Get("vue:1"); found {
		t.Error("expected cache miss for non-existent key")
	}

	c.Set("vue:1", `<pre class="chroma"><code>x</code></pre>`, time.Minute)

	html, found := c.Get("vue:1")
	if !found {
		t.Fatal("expected cache hit")
	}
	if !strings.HasPrefix(html, `<pre class="chroma">`) {
		t.Errorf("unexpected markup: %q", html)
	}
}

func TestMemoryCacheEmptyMarkupIsAHit(t *testing.T) {
	c := NewMemoryCache()
	defer c.Stop()

	c.Set("k", "", time.Minute)
	if html, found := c.Get("k"); !found || html != "" {
		t.Errorf("Get() = %q, %v; want \"\", true", html, found)
	}
}

func TestMemoryCacheTTL(t *testing.T) {
	c := NewMemoryCache()
	defer c.Stop()

	c.Set("short", "x", 50*time.Millisecond)

	if _, found := c.Get("short"); !found {
		t.Error("expected cache hit immediately after set")
	}

	time.Sleep(100 * time.Millisecond)

	if _, found := c.Get("short"); found {
		t.Error("expected cache miss after TTL expired")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be dropped on read, have %d", c.Len())
	}
}

func TestMemoryCacheDefaultTTL(t *testing.T) {
	c := NewMemoryCache()
	defer c.Stop()

	c.Set("k", "x", 0)

	c.mu.RLock()
	e := c.entries["k"]
	c.mu.RUnlock()
	if d := time.Until(e.ExpiresAt); d < DefaultTTL-time.Minute || d > DefaultTTL {
		t.Errorf("expiry %v not near DefaultTTL", d)
	}
}

func TestMemoryCacheInvalidate(t *testing.T) {
	c := NewMemoryCache()
	defer c.Stop()

	c.Set("test1", "a", time.Minute)
	c.Set("test2", "b", time.Minute)

	c.Invalidate("test1")

	if _, found := c.Get("test1"); found {
		t.Error("expected test1 to be invalidated")
	}
	if _, found := c.Get("test2"); !found {
		t.Error("expected test2 to still exist")
	}
}

func TestMemoryCacheInvalidateAll(t *testing.T) {
	c := NewMemoryCache()
	defer c.Stop()

	c.Set("test1", "a", time.Minute)
	c.Set("test2", "b", time.Minute)
	c.Set("test3", "c", time.Minute)

	if c.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", c.Len())
	}

	c.InvalidateAll()

	if c.Len() != 0 {
		t.Errorf("expected 0 entries after InvalidateAll, got %d", c.Len())
	}
}

func TestMemoryCacheCleanup(t *testing.T) {
	c := NewMemoryCache()
	defer c.Stop()

	c.Set("old", "x", 10*time.Millisecond)
	c.Set("new", "y", time.Minute)
	time.Sleep(30 * time.Millisecond)

	c.cleanup()

	if c.Len() != 1 {
		t.Errorf("expected 1 entry after cleanup, got %d", c.Len())
	}
}

func TestKey(t *testing.T) {
	a := Key("vue", "", "<template/>")
	if a != Key("vue", "", "<template/>") {
		t.Error("Key must be deterministic")
	}
	if !strings.HasPrefix(a, "vue:") {
		t.Errorf("Key should carry the language prefix, got %q", a)
	}

	distinct := []string{
		Key("vue", "", "<template/> "),
		Key("vue", "twoslash", "<template/>"),
		Key("ts", "", "<template/>"),
		Key("vue", "<template/>", ""),
	}
	for _, k := range distinct {
		if k == a {
			t.Errorf("Key collision for %q", k)
		}
	}
}

func TestEntryIsExpired(t *testing.T) {
	entry := &Entry{ExpiresAt: time.Now().Add(time.Minute)}
	if entry.IsExpired() {
		t.Error("expected entry to not be expired")
	}

	entry.ExpiresAt = time.Now().Add(-time.Minute)
	if !entry.IsExpired() {
		t.Error("expected entry to be expired")
	}
}

func TestMemoryCacheStopIdempotent(t *testing.T) {
	c := NewMemoryCache()

	// Calling Stop() multiple times should not panic
	c.Stop()
	c.Stop()
	c.Stop()
}

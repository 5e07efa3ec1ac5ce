package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/ppiankov/fincausal/internal/model"
)

func TestKey(t *testing.T) {
	k := Key("https://example.com/news/1")
	if !strings.HasPrefix(k, "fincausal:v1:") {
		t.Fatalf("unexpected key prefix: %s", k)
	}
	if n := len(strings.TrimPrefix(k, "fincausal:v1:")); n != 64 {
		t.Errorf("expected 64 hex chars, got %d", n)
	}

	if got := Key("HTTPS://Example.COM/news/1#top"); got != k {
		t.Errorf("normalized key mismatch: %s != %s", got, k)
	}
	if Key("https://example.com/news/2") == k {
		t.Error("different URLs share a key")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss")
	}

	value := []byte("利率")
	if err := c.Set("k", value, 0); err != nil {
		t.Fatal(err)
	}
	value[0] = 'x'

	got, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit")
	}
	if string(got) != "利率" {
		t.Errorf("stored value was aliased: %q", got)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}

	if err := c.Delete("k"); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after delete")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	if err := c.Set("k", []byte("v"), time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestDiskCache(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := Key("https://example.com/a")

	if err := c.Set(key, []byte("body"), 0); err != nil {
		t.Fatal(err)
	}

	got, ok := c.Get(key)
	if !ok || string(got) != "body" {
		t.Fatalf("Get = %q, %v", got, ok)
	}

	hash := strings.TrimPrefix(key, "fincausal:v1:")
	if _, err := os.Stat(filepath.Join(dir, hash[:2], hash+".json")); err != nil {
		t.Errorf("expected sharded cache file: %v", err)
	}

	if err := c.Delete(key); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(key); err != nil {
		t.Errorf("second delete: %v", err)
	}
	if _, ok := c.Get(key); ok {
		t.Error("expected miss after delete")
	}
}

func TestDiskCache_ExpiredAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	if err := c.Set("fincausal:v1:aaaa", []byte("old"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if _, ok := c.Get("fincausal:v1:aaaa"); ok {
		t.Error("expected expired entry to miss")
	}

	path := c.path("fincausal:v1:bbbb")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("fincausal:v1:bbbb"); ok {
		t.Error("expected corrupt entry to miss")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("corrupt entry not removed: %v", err)
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	layered := NewLayeredCache(time.Minute, dir, time.Hour)

	// Write through a separate disk cache sharing the directory
	if err := NewDiskCache(dir, time.Hour).Set("fincausal:v1:cc", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}

	got, ok := layered.Get("fincausal:v1:cc")
	if !ok || string(got) != "v" {
		t.Fatalf("Get = %q, %v", got, ok)
	}
	if _, ok := layered.memory.Get("fincausal:v1:cc"); !ok {
		t.Error("disk hit not promoted to memory")
	}

	if err := layered.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, ok := layered.Get("fincausal:v1:cc"); ok {
		t.Error("expected miss after clear")
	}
}

func TestPageCache_RoundTrip(t *testing.T) {
	pc := NewPageCache(NewMemoryCache(time.Minute, time.Minute), 0, zaptest.NewLogger(t))

	page := &Page{
		URL:      "https://example.com/news",
		FinalURL: "https://example.com/news/",
		Body:     "<p>利率上升导致经济放缓</p>",
		Meta:     model.FetchMeta{StatusCode: 200, ContentType: "text/html"},
	}
	if err := pc.Save(page); err != nil {
		t.Fatal(err)
	}

	got, ok := pc.Load("https://example.com/news#section")
	if !ok {
		t.Fatal("expected cached page")
	}
	if got.Body != page.Body || got.FinalURL != page.FinalURL {
		t.Errorf("unexpected page: %+v", got)
	}
	if !got.Meta.FromCache {
		t.Error("loaded page not marked FromCache")
	}
	if page.Meta.FromCache {
		t.Error("saved page was mutated")
	}
}

func TestPageCache_DropsUnreadable(t *testing.T) {
	backend := NewMemoryCache(time.Minute, time.Minute)
	pc := NewPageCache(backend, 0, zaptest.NewLogger(t))

	key := Key("https://example.com/x")
	if err := backend.Set(key, []byte("garbage"), 0); err != nil {
		t.Fatal(err)
	}

	if _, ok := pc.Load("https://example.com/x"); ok {
		t.Error("expected unreadable page to miss")
	}
	if _, ok := backend.Get(key); ok {
		t.Error("unreadable entry not dropped")
	}
}

func TestNew(t *testing.T) {
	if pc := New(model.CacheConfig{Enabled: false}, nil); pc != nil {
		t.Errorf("expected nil cache when disabled, got %+v", pc)
	}

	mem := New(model.CacheConfig{Enabled: true, TTL: time.Minute}, nil)
	if mem == nil {
		t.Fatal("expected memory cache")
	}
	if _, ok := mem.backend.(*MemoryCache); !ok {
		t.Errorf("expected *MemoryCache backend, got %T", mem.backend)
	}

	layered := New(model.CacheConfig{Enabled: true, Dir: t.TempDir(), TTL: time.Minute}, nil)
	if layered == nil {
		t.Fatal("expected layered cache")
	}
	if _, ok := layered.backend.(*LayeredCache); !ok {
		t.Errorf("expected *LayeredCache backend, got %T", layered.backend)
	}
}

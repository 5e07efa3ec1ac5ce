// Package cache keeps fetched pages so repeated runs over the same URLs do
// not hit the network.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/fincausal/internal/model"
)

// Cache is a byte-level key/value store with expiry
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives the cache key for a URL. Scheme and host are case-folded and
// the fragment is ignored.
func Key(rawURL string) string {
	normalized := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		u.Scheme = strings.ToLower(u.Scheme)
		u.Host = strings.ToLower(u.Host)
		u.Fragment = ""
		normalized = u.String()
	}
	hash := sha256.Sum256([]byte(normalized))
	return "fincausal:v1:" + hex.EncodeToString(hash[:])
}

// Page is one fetched input document
type Page struct {
	URL       string          `json:"url"`
	FinalURL  string          `json:"final_url"`
	Body      string          `json:"body"`
	Meta      model.FetchMeta `json:"meta"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// PageCache stores Pages on top of a byte-level Cache
type PageCache struct {
	backend Cache
	ttl     time.Duration
	logger  *zap.Logger
}

// NewPageCache wraps backend. A zero ttl uses the backend default.
func NewPageCache(backend Cache, ttl time.Duration, logger *zap.Logger) *PageCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageCache{backend: backend, ttl: ttl, logger: logger}
}

// New builds the configured page cache: memory only, or memory over disk
// when a directory is set. It returns nil when caching is disabled.
func New(cfg model.CacheConfig, logger *zap.Logger) *PageCache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Dir == "" {
		return NewPageCache(NewMemoryCache(cfg.TTL, 10*time.Minute), cfg.TTL, logger)
	}
	return NewPageCache(NewLayeredCache(cfg.TTL, cfg.Dir, cfg.TTL), cfg.TTL, logger)
}

// Load returns the cached page for rawURL
func (c *PageCache) Load(rawURL string) (*Page, bool) {
	data, ok := c.backend.Get(Key(rawURL))
	if !ok {
		return nil, false
	}

	var page Page
	if err := json.Unmarshal(data, &page); err != nil {
		c.logger.Warn("dropping unreadable cache entry", zap.String("url", rawURL), zap.Error(err))
		_ = c.backend.Delete(Key(rawURL))
		return nil, false
	}
	page.Meta.FromCache = true

	c.logger.Debug("cache hit", zap.String("url", rawURL))
	return &page, true
}

// Save stores page under its request URL
func (c *PageCache) Save(page *Page) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("marshal page: %w", err)
	}
	if err := c.backend.Set(Key(page.URL), data, c.ttl); err != nil {
		return fmt.Errorf("cache page %s: %w", page.URL, err)
	}
	return nil
}

// Clear empties the backend
func (c *PageCache) Clear() error {
	return c.backend.Clear()
}

// Package cache provides caching for rendered figures and derived
// query results.
package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Config contains cache configuration.
type Config struct {
	FigureCacheSizeMB int
	FigureTTL         time.Duration
	QueryCacheSize    int
}

// Manager manages figure and query caches.
type Manager struct {
	figureCache *bigcache.BigCache
	queryCache  *lru.Cache[string, []byte]
}

// NewManager creates a new cache manager.
func NewManager(cfg Config) (*Manager, error) {
	figureCacheConfig := bigcache.Config{
		Shards:             256,
		LifeWindow:         cfg.FigureTTL,
		CleanWindow:        cfg.FigureTTL / 2,
		MaxEntriesInWindow: 10000,
		MaxEntrySize:       2 * 1024 * 1024, // full figures run far larger than map tiles
		HardMaxCacheSize:   cfg.FigureCacheSizeMB,
		Verbose:            false,
	}

	figureCache, err := bigcache.New(context.Background(), figureCacheConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create figure cache: %w", err)
	}

	queryCache, err := lru.New[string, []byte](cfg.QueryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}

	return &Manager{
		figureCache: figureCache,
		queryCache:  queryCache,
	}, nil
}

// GetFigure retrieves a rendered figure from cache.
func (m *Manager) GetFigure(key string) ([]byte, bool) {
	data, err := m.figureCache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetFigure stores a rendered figure in cache.
func (m *Manager) SetFigure(key string, data []byte) error {
	return m.figureCache.Set(key, data)
}

// GetQuery retrieves a query result from cache.
func (m *Manager) GetQuery(key string) ([]byte, bool) {
	return m.queryCache.Get(key)
}

// SetQuery stores a query result in cache.
func (m *Manager) SetQuery(key string, data []byte) {
	m.queryCache.Add(key, data)
}

// FigureKey generates a deterministic cache key for a figure kind and
// its render parameters.
func FigureKey(kind string, params map[string]string) string {
	if len(params) == 0 {
		return "fig:" + kind
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("fig:")
	b.WriteString(kind)
	for _, k := range keys {
		b.WriteByte(':')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	return map[string]interface{}{
		"figure_cache_len": m.figureCache.Len(),
		"figure_cache_cap": m.figureCache.Capacity(),
		"query_cache_len":  m.queryCache.Len(),
	}
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	return m.figureCache.Close()
}

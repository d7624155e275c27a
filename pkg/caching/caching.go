// Package caching keeps raw fetched documents on disk so repeated runs
// against the same page skip the network.
package caching

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dtnitsch/llm-event-parser/pkg/urls"
)

// PageCache is a file cache of raw documents keyed by URL, with a TTL.
// A zero TTL disables lookups; writes still refresh the cache.
type PageCache struct {
	path string
	ttl  time.Duration
}

// NewPageCache creates the cache directory if it doesn't exist.
func NewPageCache(path string, ttl time.Duration) (*PageCache, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &PageCache{path: path, ttl: ttl}, nil
}

// key hashes the sanitized URL so copy-paste variants share an entry.
func (c *PageCache) key(url string) string {
	return urls.ContentHash([]byte(urls.SanitizeURL(url))) + ".html"
}

// Path returns the cache file for url.
func (c *PageCache) Path(url string) string {
	return filepath.Join(c.path, c.key(url))
}

// Get returns the cached document and true when it exists and is younger
// than the TTL.
func (c *PageCache) Get(url string) ([]byte, bool) {
	if c.ttl <= 0 {
		return nil, false
	}

	filePath := c.Path(url)
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, false
	}
	if time.Since(info.ModTime()) > c.ttl {
		return nil, false // expired
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set stores data for url.
func (c *PageCache) Set(url string, data []byte) error {
	if err := os.WriteFile(c.Path(url), data, 0644); err != nil {
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	return nil
}

// Invalidate drops the entry for url. A missing entry is not an error.
func (c *PageCache) Invalidate(url string) error {
	if err := os.Remove(c.Path(url)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove cache entry: %w", err)
	}
	return nil
}

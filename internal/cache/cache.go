// Package cache stores deterministic optimization results on disk so a
// seeded rerun over unchanged inputs is answered without re-optimizing.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// entryExt is the suffix of every cache file.
const entryExt = ".json.zst"

// Cache provides caching for optimization results
type Cache struct {
	dir string
	mu  sync.Mutex
}

// New creates a new cache instance with the specified directory.
// An empty dir disables the cache.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Key hashes the given parts into a cache key. Each part is JSON-encoded
// and delimited so that ("ab", "c") and ("a", "bc") differ.
func Key(parts ...any) (string, error) {
	h := sha256.New()
	for i, p := range parts {
		data, err := json.Marshal(p)
		if err != nil {
			return "", fmt.Errorf("marshaling key part %d: %w", i, err)
		}
		if err := writeBytes(h, data); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get decodes a cached entry into dst. It reports false on a miss or on an
// unreadable entry.
func (c *Cache) Get(key string, dst any) bool {
	if c == nil || c.dir == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.Open(c.cachePath(key))
	if err != nil {
		return false
	}
	defer f.Close() //nolint:errcheck

	dec, err := zstd.NewReader(f)
	if err != nil {
		return false
	}
	defer dec.Close()

	if err := json.NewDecoder(dec).Decode(dst); err != nil {
		// Invalid cache entry, treat as miss
		return false
	}
	return true
}

// Put stores v under key.
func (c *Cache) Put(key string, v any) error {
	if c == nil || c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling entry: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("creating encoder: %w", err)
	}
	defer enc.Close() //nolint:errcheck
	compressed := enc.EncodeAll(data, nil)

	tmp := c.cachePath(key) + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := os.Rename(tmp, c.cachePath(key)); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	return nil
}

// Clear removes all cached results
func (c *Cache) Clear() error {
	if c == nil || c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return nil
	}

	// Only remove the directory if it holds nothing but cache entries.
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			return fmt.Errorf("cache directory contains subdirectories - refusing to delete for safety")
		}
		if !strings.HasSuffix(entry.Name(), entryExt) {
			return fmt.Errorf("cache directory contains non-cache files - refusing to delete for safety")
		}
	}

	return os.RemoveAll(c.dir)
}

// cachePath returns the file path for a cache key
func (c *Cache) cachePath(key string) string {
	return filepath.Join(c.dir, key+entryExt)
}

func writeBytes(w io.Writer, b []byte) error {
	// Null byte delimiter prevents collisions between adjacent parts.
	if _, err := w.Write(b); err != nil {
		return err
	}
	_, err := w.Write([]byte{0})
	return err
}

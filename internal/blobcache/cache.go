// Package blobcache provides an on-disk content cache holding a fixed number
// of blobs with LRU eviction.
package blobcache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/obot-platform/arenalru/lru"
)

// MaxKeyLength bounds the length of a cache key.
const MaxKeyLength = 1024

var (
	// ErrCacheMiss indicates the requested item is not in cache.
	ErrCacheMiss = errors.New("cache miss")
	// ErrCacheDisabled indicates the cache is not enabled.
	ErrCacheDisabled = errors.New("cache disabled")
	// ErrInvalidKey indicates the key is empty or too long.
	ErrInvalidKey = errors.New("invalid cache key")
)

// Options tunes how blobs are stored.
type Options struct {
	// Compress stores blob bodies zstd compressed.
	Compress bool
}

// Cache stores blobs on disk and keeps at most capacity of them, evicting
// the least recently used blob when a new key is stored into a full cache.
type Cache struct {
	dir      string
	capacity int
	enabled  bool
	compress bool
	logger   *zap.Logger

	mu      sync.Mutex
	index   *lru.Cache[indexEntry] // recency order of stored keys
	stats   Stats
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// indexEntry is the in-memory record for one stored blob.
type indexEntry struct {
	key      string
	size     int64
	storedAt time.Time
}

// Stats tracks cache statistics.
type Stats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Stores      int64 `json:"stores"`
	Evictions   int64 `json:"evictions"`
	Errors      int64 `json:"errors"`
	Entries     int   `json:"entries"`
	Capacity    int   `json:"capacity"`
	CurrentSize int64 `json:"current_size"`
}

// Info describes a stored blob without reading it.
type Info struct {
	Key      string    `json:"key"`
	Size     int64     `json:"size"`
	StoredAt time.Time `json:"stored_at"`
}

// Entry is a cached blob.
type Entry struct {
	ContentType string
	Body        []byte
	StoredAt    time.Time
	// Size is the number of bytes the entry occupies on disk.
	Size int64
}

// New creates a cache in dir holding at most capacity blobs. A capacity of
// zero returns a disabled cache. Blobs already present in dir are indexed
// oldest first, so the most recently written one ends up most recently used.
func New(dir string, capacity int, opts Options, logger *zap.Logger) (*Cache, error) {
	if capacity == 0 {
		return &Cache{enabled: false, logger: logger}, nil
	}

	index, err := lru.New[indexEntry](capacity)
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	c := &Cache{
		dir:      dir,
		capacity: capacity,
		enabled:  true,
		compress: opts.Compress,
		logger:   logger,
		index:    index,
	}

	if c.encoder, err = zstd.NewWriter(nil); err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	if c.decoder, err = zstd.NewReader(nil); err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	if err := c.loadIndex(); err != nil {
		logger.Warn("failed to load cache index", zap.Error(err))
	}

	return c, nil
}

// Close releases compression resources. The cache must not be used after.
func (c *Cache) Close() error {
	if !c.enabled {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.decoder.Close()
	return c.encoder.Close()
}

// Enabled reports whether the cache stores anything.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// Get retrieves a cached blob and marks it most recently used.
func (c *Cache) Get(key string) (*Entry, error) {
	if !c.enabled {
		return nil, ErrCacheDisabled
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.index.Touch(matchKey(key)) {
		c.stats.Misses++
		return nil, ErrCacheMiss
	}

	entry, err := c.readEntry(key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			c.stats.Misses++
		} else {
			c.stats.Errors++
		}
		c.logger.Debug("cache read error", zap.String("key", key), zap.Error(err))
		return nil, err
	}

	c.stats.Hits++
	return entry, nil
}

// Info returns metadata for key and marks it most recently used.
func (c *Cache) Info(key string) (Info, error) {
	if !c.enabled {
		return Info{}, ErrCacheDisabled
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	info, ok := lru.Lookup(c.index, func(e indexEntry) (Info, bool) {
		return Info{Key: e.key, Size: e.size, StoredAt: e.storedAt}, e.key == key
	})
	if !ok {
		c.stats.Misses++
		return Info{}, ErrCacheMiss
	}
	return info, nil
}

// Put stores a blob under key, replacing any previous blob for the key. If
// the key names a sha256 digest the body must hash to it.
func (c *Cache) Put(key string, entry *Entry) error {
	if !c.enabled {
		return ErrCacheDisabled
	}
	if err := validateKey(key); err != nil {
		return err
	}
	if err := VerifyDigest(key, entry.Body); err != nil {
		return err
	}
	if entry.StoredAt.IsZero() {
		entry.StoredAt = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	size, err := c.writeEntry(key, entry)
	if err != nil {
		c.stats.Errors++
		return err
	}
	entry.Size = size
	c.stats.Stores++

	// Existing key: the file was rewritten in place, only the record changes.
	if e := c.index.Fetch(matchKey(key)); e != nil {
		c.stats.CurrentSize += size - e.size
		e.size = size
		e.storedAt = entry.StoredAt
		return nil
	}

	c.insertLocked(indexEntry{key: key, size: size, storedAt: entry.StoredAt})
	return nil
}

// Keys returns the stored keys, most recently used first.
func (c *Cache) Keys() []string {
	if !c.enabled {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.index.Len())
	for e := range c.index.All() {
		keys = append(keys, e.key)
	}
	return keys
}

// Len returns the number of stored blobs.
func (c *Cache) Len() int {
	if !c.enabled {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index.Len()
}

// GetStats returns current cache statistics.
func (c *Cache) GetStats() Stats {
	if !c.enabled {
		return Stats{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Entries = c.index.Len()
	s.Capacity = c.capacity
	return s
}

// Clear removes all cached entries.
func (c *Cache) Clear() error {
	if !c.enabled {
		return ErrCacheDisabled
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.RemoveAll(c.dir); err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return err
	}

	c.index.Clear()
	c.stats = Stats{}

	return nil
}

// insertLocked adds a record for a key not yet in the index. When the index
// is full the least recently used blob is removed from disk first, since its
// slot is about to be overwritten.
func (c *Cache) insertLocked(e indexEntry) {
	if c.index.Len() == c.index.Cap() {
		if victim, ok := c.index.Back(); ok {
			if err := c.removeFiles(victim.key); err != nil {
				c.logger.Warn("eviction failed", zap.String("key", victim.key), zap.Error(err))
			}
			c.stats.CurrentSize -= victim.size
			c.stats.Evictions++
			c.logger.Debug("evicted blob", zap.String("key", victim.key), zap.Int64("size", victim.size))
		}
	}

	c.index.Insert(e)
	c.stats.CurrentSize += e.size
}

func matchKey(key string) func(indexEntry) bool {
	return func(e indexEntry) bool { return e.key == key }
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if len(key) > MaxKeyLength {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidKey, len(key), MaxKeyLength)
	}
	return nil
}

// cacheKey generates a filesystem-safe file name from a cache key.
func cacheKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// readEntry reads a cache entry from disk.
func (c *Cache) readEntry(key string) (*Entry, error) {
	path := filepath.Join(c.dir, cacheKey(key))

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("read cache file: %w", err)
	}

	entry, err := c.decodeEntry(data)
	if err != nil {
		// Corrupt cache file: drop it. The key keeps its slot, with no bytes
		// accounted, until it is rewritten or evicted.
		_ = os.Remove(path)
		if e := c.index.FrontMut(); e != nil && e.key == key {
			c.stats.CurrentSize -= e.size
			e.size = 0
		}
		c.logger.Warn("removed corrupt cache file", zap.String("key", key), zap.Error(err))
		return nil, ErrCacheMiss
	}

	return entry, nil
}

// writeEntry writes a cache entry to disk and returns its size.
func (c *Cache) writeEntry(key string, entry *Entry) (int64, error) {
	hash := cacheKey(key)
	path := filepath.Join(c.dir, hash)

	data, err := c.encodeEntry(entry)
	if err != nil {
		return 0, fmt.Errorf("serialize entry: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return 0, fmt.Errorf("write cache file: %w", err)
	}

	// Write metadata file with original key
	metaPath := filepath.Join(c.dir, hash+".meta")
	if err := os.WriteFile(metaPath, []byte(key), 0644); err != nil {
		return 0, fmt.Errorf("write meta file: %w", err)
	}

	return int64(len(data)), nil
}

// removeFiles deletes the blob and metadata files of key.
func (c *Cache) removeFiles(key string) error {
	hash := cacheKey(key)
	path := filepath.Join(c.dir, hash)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove cache file: %w", err)
	}

	// Remove metadata file
	metaPath := filepath.Join(c.dir, hash+".meta")
	_ = os.Remove(metaPath) // Ignore error if meta file doesn't exist

	return nil
}

// loadIndex rebuilds the index from existing cache files.
func (c *Cache) loadIndex() error {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}

	var found []indexEntry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}

		// Skip metadata files
		if filepath.Ext(de.Name()) == ".meta" {
			continue
		}

		info, err := de.Info()
		if err != nil {
			continue
		}

		// Read the original key from metadata file
		metaPath := filepath.Join(c.dir, de.Name()+".meta")
		keyData, err := os.ReadFile(metaPath)
		if err != nil {
			// If no metadata file, skip this entry (orphaned cache file)
			continue
		}

		found = append(found, indexEntry{
			key:      string(keyData),
			size:     info.Size(),
			storedAt: info.ModTime(),
		})
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].storedAt.Before(found[j].storedAt)
	})

	// Anything beyond capacity is evicted through the normal path.
	for _, e := range found {
		c.insertLocked(e)
	}
	c.stats.Evictions = 0

	c.logger.Debug("loaded cache index", zap.Int("entries", c.index.Len()), zap.Int("files", len(found)))
	return nil
}

package cache

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"media-pipeline/internal/filesystem"
	"media-pipeline/internal/logging"
	"media-pipeline/internal/metrics"
	"media-pipeline/internal/model"

	"golang.org/x/crypto/blake2b"
)

// IndexFileName is the name of the index file kept in each output directory.
const IndexFileName = ".thumbnail_cache.json"

const indexVersion = 1

// KeyStrategy selects how source identity is derived.
type KeyStrategy string

const (
	// KeyMtimeSize identifies a source by path, modification time and size.
	// It never reads the file, but misses content changes that preserve both.
	KeyMtimeSize KeyStrategy = "mtime_size"

	// KeyContentHash identifies a source by a BLAKE2b hash of its bytes.
	KeyContentHash KeyStrategy = "content_hash"
)

// ParseKeyStrategy accepts a strategy name. The empty string selects
// KeyMtimeSize.
func ParseKeyStrategy(s string) (KeyStrategy, error) {
	switch KeyStrategy(s) {
	case "", KeyMtimeSize:
		return KeyMtimeSize, nil
	case KeyContentHash:
		return KeyContentHash, nil
	default:
		return "", fmt.Errorf("unknown cache key strategy %q", s)
	}
}

// Stats summarises a cache index.
type Stats struct {
	TotalEntries   int   `json:"total_entries"`
	ValidEntries   int   `json:"valid_entries"`
	InvalidEntries int   `json:"invalid_entries"`
	TotalSizeBytes int64 `json:"total_size_bytes"`
}

type indexFile struct {
	Version  int                         `json:"version"`
	Strategy KeyStrategy                 `json:"strategy"`
	Entries  map[string]model.CacheEntry `json:"entries"`
}

// ThumbnailCache maps (source, spec) pairs to generated outputs. The index
// is rewritten atomically after every mutation. One process should own an
// output directory at a time.
type ThumbnailCache struct {
	dir       string
	indexPath string
	strategy  KeyStrategy

	mu      sync.Mutex
	entries map[string]model.CacheEntry
}

// New opens the cache for outputDir, loading any existing index. A corrupt
// or incompatible index is discarded with a warning.
func New(outputDir string, strategy KeyStrategy) (*ThumbnailCache, error) {
	strategy, err := ParseKeyStrategy(string(strategy))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", outputDir, err)
	}

	c := &ThumbnailCache{
		dir:       outputDir,
		indexPath: filepath.Join(outputDir, IndexFileName),
		strategy:  strategy,
		entries:   make(map[string]model.CacheEntry),
	}
	c.load()
	c.updateGauge()
	return c, nil
}

func (c *ThumbnailCache) load() {
	var idx indexFile
	err := filesystem.ReadJSON(c.indexPath, &idx)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return
	case err != nil:
		metrics.ThumbnailCacheCorruptions.Inc()
		logging.Warn("Thumbnail cache index %s is unreadable, starting empty: %v", c.indexPath, err)
		return
	case idx.Version > indexVersion:
		logging.Warn("Thumbnail cache index %s has newer version %d, starting empty", c.indexPath, idx.Version)
		return
	case idx.Strategy != "" && idx.Strategy != c.strategy:
		logging.Info("Thumbnail cache index %s uses %s keys, rebuilding with %s", c.indexPath, idx.Strategy, c.strategy)
		return
	}

	for k, e := range idx.Entries {
		c.entries[k] = e
	}
	logging.Debug("Loaded thumbnail cache %s with %d entries", c.indexPath, len(c.entries))
}

// Dir returns the output directory the cache belongs to.
func (c *ThumbnailCache) Dir() string {
	return c.dir
}

// Strategy returns the key strategy in use.
func (c *ThumbnailCache) Strategy() KeyStrategy {
	return c.strategy
}

// Key derives the cache key for source rendered with spec.
func (c *ThumbnailCache) Key(source string, spec model.ThumbnailSpec) (string, error) {
	key, _, err := c.key(source, spec)
	return key, err
}

func (c *ThumbnailCache) key(source string, spec model.ThumbnailSpec) (string, os.FileInfo, error) {
	info, err := filesystem.StatWithRetry(source, filesystem.DefaultRetryConfig())
	if err != nil {
		return "", nil, err
	}

	sig := spec.Signature()
	switch c.strategy {
	case KeyContentHash:
		h, _ := blake2b.New256(nil)
		fmt.Fprintf(h, "%s|%s|", source, sig)
		f, err := filesystem.OpenWithRetry(source, filesystem.DefaultRetryConfig())
		if err != nil {
			return "", nil, err
		}
		defer f.Close()
		if _, err := io.Copy(h, f); err != nil {
			return "", nil, fmt.Errorf("hash %s: %w", source, err)
		}
		return hex.EncodeToString(h.Sum(nil)), info, nil
	default:
		sum := md5.Sum(fmt.Appendf(nil, "%s|%d|%d|%s", source, info.ModTime().UnixNano(), info.Size(), sig))
		return hex.EncodeToString(sum[:]), info, nil
	}
}

// Get returns the cached output for source and spec. It only reports a hit
// when the output file still exists; stale entries are purged.
func (c *ThumbnailCache) Get(source string, spec model.ThumbnailSpec) (string, bool) {
	key, _, err := c.key(source, spec)
	if err != nil {
		metrics.ThumbnailCacheMisses.Inc()
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		metrics.ThumbnailCacheMisses.Inc()
		return "", false
	}

	if !outputExists(entry.OutputPath) {
		logging.Debug("Thumbnail cache entry for %s points at missing %s, evicting", source, entry.OutputPath)
		delete(c.entries, key)
		metrics.ThumbnailCacheEvictions.Inc()
		metrics.ThumbnailCacheMisses.Inc()
		if err := c.persistLocked(); err != nil {
			logging.Warn("Failed to persist thumbnail cache after eviction: %v", err)
		}
		return "", false
	}

	metrics.ThumbnailCacheHits.Inc()
	return entry.OutputPath, true
}

// Put records output as the rendition of source with spec and persists the
// index. Older entries for the same source and spec are replaced, as are
// entries of other sources whose output file was overwritten.
func (c *ThumbnailCache) Put(source, output string, spec model.ThumbnailSpec) error {
	key, info, err := c.key(source, spec)
	if err != nil {
		return fmt.Errorf("cache key for %s: %w", source, err)
	}

	var size int64
	if out, err := filesystem.StatWithRetry(output, filesystem.DefaultRetryConfig()); err == nil {
		size = out.Size()
	}

	sig := spec.Signature()
	entry := model.CacheEntry{
		Key:           key,
		SourcePath:    source,
		OutputPath:    output,
		SpecSignature: sig,
		SourceModTime: info.ModTime(),
		SourceSize:    info.Size(),
		CreatedAt:     time.Now(),
		Size:          size,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		if k == key {
			continue
		}
		if (e.SourcePath == source && e.SpecSignature == sig) || filepath.Clean(e.OutputPath) == filepath.Clean(output) {
			delete(c.entries, k)
			metrics.ThumbnailCacheEvictions.Inc()
		}
	}
	c.entries[key] = entry

	return c.persistLocked()
}

// Clear deletes every cached output that still exists and empties the
// index. It returns the number of files deleted.
func (c *ThumbnailCache) Clear() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deleted := 0
	var errs []error
	for _, e := range c.entries {
		err := os.Remove(e.OutputPath)
		switch {
		case err == nil:
			deleted++
		case errors.Is(err, fs.ErrNotExist):
		default:
			errs = append(errs, err)
		}
	}

	c.entries = make(map[string]model.CacheEntry)
	if err := c.persistLocked(); err != nil {
		errs = append(errs, err)
	}

	logging.Info("Cleared thumbnail cache %s: %d files deleted", c.dir, deleted)
	return deleted, errors.Join(errs...)
}

// Stats reports entry counts and the size of outputs still on disk.
func (c *ThumbnailCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{TotalEntries: len(c.entries)}
	for _, e := range c.entries {
		info, err := os.Stat(e.OutputPath)
		if err != nil {
			s.InvalidEntries++
			continue
		}
		s.ValidEntries++
		s.TotalSizeBytes += info.Size()
	}
	return s
}

// Len returns the number of index entries.
func (c *ThumbnailCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ThumbnailCache) persistLocked() error {
	idx := indexFile{
		Version:  indexVersion,
		Strategy: c.strategy,
		Entries:  c.entries,
	}
	if err := filesystem.WriteJSON(c.indexPath, idx); err != nil {
		return fmt.Errorf("persist thumbnail cache index: %w", err)
	}
	c.updateGauge()
	return nil
}

func (c *ThumbnailCache) updateGauge() {
	metrics.ThumbnailCacheEntries.WithLabelValues(c.dir).Set(float64(len(c.entries)))
}

func outputExists(path string) bool {
	_, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	return err == nil
}

// Package datastore is a small JSON-file backed key/value store. Values live in
// memory and are flushed to disk periodically, on Flush and on Close. Writes are
// atomic (temp file + rename) and skipped when nothing changed.
package datastore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("datastore is closed")

// Config holds configuration options for the DataStore.
type Config struct {
	FilePath         string
	AutoSaveInterval time.Duration
	BackupCount      int // number of backup files to keep, 0 disables backups
	Logger           zerolog.Logger
}

// DefaultConfig returns a default configuration.
func DefaultConfig(filePath string, logger zerolog.Logger) Config {
	return Config{
		FilePath:         filePath,
		AutoSaveInterval: 10 * time.Second,
		BackupCount:      3,
		Logger:           logger,
	}
}

type DataStore struct {
	cfg    Config
	logger zerolog.Logger

	mu           sync.RWMutex
	data         map[string]any
	lastChecksum string
	closed       bool

	saveMu sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New opens (or creates) the store at filePath with the default configuration.
func New(filePath string, logger zerolog.Logger) (*DataStore, error) {
	return NewWithConfig(DefaultConfig(filePath, logger))
}

// NewWithConfig opens (or creates) a store.
func NewWithConfig(cfg Config) (*DataStore, error) {
	if cfg.FilePath == "" {
		return nil, errors.New("file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	ds := &DataStore{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "datastore").Str("file", cfg.FilePath).Logger(),
		data:   make(map[string]any),
	}

	switch _, err := os.Stat(cfg.FilePath); {
	case errors.Is(err, os.ErrNotExist):
		if err := ds.writeFileAtomic([]byte("{}")); err != nil {
			return nil, fmt.Errorf("create empty store: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("stat store: %w", err)
	default:
		if err := ds.load(); err != nil {
			return nil, fmt.Errorf("load store: %w", err)
		}
	}

	if cfg.AutoSaveInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		ds.cancel = cancel
		ds.wg.Add(1)
		go ds.autoSave(ctx)
	}

	return ds, nil
}

// Add stores value under key.
func (ds *DataStore) Add(key string, value any) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.closed {
		return ErrClosed
	}
	ds.data[key] = value
	return nil
}

// Get returns the value stored under key. Values loaded from disk are
// generic JSON values (maps, slices, strings, float64).
func (ds *DataStore) Get(key string) (any, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	if ds.closed {
		return nil, false
	}
	v, ok := ds.data[key]
	return v, ok
}

// Delete removes key.
func (ds *DataStore) Delete(key string) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.closed {
		return ErrClosed
	}
	delete(ds.data, key)
	return nil
}

// Keys returns the sorted keys starting with prefix.
func (ds *DataStore) Keys(prefix string) []string {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	out := make([]string, 0)
	for k := range ds.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Flush writes the store to disk now.
func (ds *DataStore) Flush() error {
	ds.mu.RLock()
	closed := ds.closed
	ds.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	return ds.save()
}

// Close stops autosave and writes the final state.
func (ds *DataStore) Close() error {
	ds.mu.Lock()
	if ds.closed {
		ds.mu.Unlock()
		return nil
	}
	ds.closed = true
	ds.mu.Unlock()

	if ds.cancel != nil {
		ds.cancel()
	}
	ds.wg.Wait()
	return ds.save()
}

// Stats returns statistics about the store.
func (ds *DataStore) Stats() map[string]any {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return map[string]any{
		"keys":      len(ds.data),
		"file_path": ds.cfg.FilePath,
		"saved":     ds.lastChecksum != "",
	}
}

func (ds *DataStore) save() error {
	ds.saveMu.Lock()
	defer ds.saveMu.Unlock()

	ds.mu.RLock()
	data, err := json.MarshalIndent(ds.data, "", "  ")
	last := ds.lastChecksum
	ds.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	sum := checksum(data)
	if sum == last {
		return nil
	}

	if ds.cfg.BackupCount > 0 {
		if err := ds.backup(); err != nil {
			ds.logger.Warn().Err(err).Msg("failed to create backup")
		}
	}
	if err := ds.writeFileAtomic(data); err != nil {
		return err
	}

	ds.mu.Lock()
	ds.lastChecksum = sum
	ds.mu.Unlock()
	return nil
}

func (ds *DataStore) load() error {
	raw, err := os.ReadFile(ds.cfg.FilePath)
	if err != nil {
		return err
	}

	data := make(map[string]any)
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	ds.mu.Lock()
	ds.data = data
	ds.lastChecksum = checksum(raw)
	ds.mu.Unlock()
	return nil
}

func (ds *DataStore) writeFileAtomic(data []byte) error {
	tmp := ds.cfg.FilePath + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, ds.cfg.FilePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func (ds *DataStore) backup() error {
	src, err := os.Open(ds.cfg.FilePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer src.Close()

	name := fmt.Sprintf("%s.backup.%s", ds.cfg.FilePath, time.Now().Format("20060102_150405"))
	dst, err := os.Create(name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}

	ds.pruneBackups()
	return nil
}

// pruneBackups keeps the newest BackupCount backups. Backup names sort by time.
func (ds *DataStore) pruneBackups() {
	matches, err := filepath.Glob(ds.cfg.FilePath + ".backup.*")
	if err != nil || len(matches) <= ds.cfg.BackupCount {
		return
	}
	sort.Strings(matches)
	for _, old := range matches[:len(matches)-ds.cfg.BackupCount] {
		if err := os.Remove(old); err != nil {
			ds.logger.Warn().Err(err).Str("backup", old).Msg("failed to remove old backup")
		}
	}
}

func (ds *DataStore) autoSave(ctx context.Context) {
	defer ds.wg.Done()

	ticker := time.NewTicker(ds.cfg.AutoSaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ds.save(); err != nil {
				ds.logger.Error().Err(err).Msg("auto-save failed")
			}
		}
	}
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

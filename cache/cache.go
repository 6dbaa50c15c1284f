// Package cache stores compiled artifacts on disk keyed by a digest of the
// source and options, so an unchanged file skips the whole pipeline.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Bump when the Entry format changes so stale files are ignored.
const schemaVersion uint16 = 1

// Key identifies one compilation unit: source contents plus the options that
// influence its output.
type Key [sha256.Size]byte

// KeyFor hashes the source together with an option fingerprint.
func KeyFor(src string, optTag string) Key {
	h := sha256.New()
	h.Write([]byte(optTag))
	h.Write([]byte{0})
	h.Write([]byte(src))
	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

// Entry is the cached result of a clean compilation. Compilations with
// diagnostics are never cached.
type Entry struct {
	Schema uint16
	Tac    string
	Asm    string
}

// Cache is a directory of msgpack-encoded entries. Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Open initializes the cache at the standard per-user location.
func Open(app string) (*Cache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenAt(filepath.Join(base, app))
}

// OpenAt initializes the cache rooted at dir, creating it if needed.
func OpenAt(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) pathFor(key Key) string {
	return filepath.Join(c.dir, hex.EncodeToString(key[:])+".mp")
}

// Get reads the entry for key. Returns false on a miss, including entries
// written by an older schema.
func (c *Cache) Get(key Key) (*Entry, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer func() {
		_ = f.Close()
	}()
	var entry Entry
	if err := msgpack.NewDecoder(f).Decode(&entry); err != nil {
		return nil, false, fmt.Errorf("%s: corrupt cache entry: %w", c.pathFor(key), err)
	}
	if entry.Schema != schemaVersion {
		return nil, false, nil
	}
	return &entry, true, nil
}

// Put writes the entry for key atomically via a temp file and rename.
func (c *Cache) Put(key Key, entry *Entry) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry.Schema = schemaVersion
	f, err := os.CreateTemp(c.dir, "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(f.Name())
	}()
	if err := msgpack.NewEncoder(f).Encode(entry); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), c.pathFor(key))
}

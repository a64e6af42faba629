// Package cache stores compiled chunks in a SQLite database so that
// unchanged scripts skip parsing and compilation on later runs.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/funvibe/kite/internal/vm"
)

// ErrMiss is returned by Get when no chunk is stored for a path and hash.
var ErrMiss = errors.New("cache miss")

var log = commonlog.GetLogger("kite.cache")

const schema = `CREATE TABLE IF NOT EXISTS chunks (
	path     TEXT NOT NULL,
	hash     TEXT NOT NULL,
	version  INTEGER NOT NULL,
	data     BLOB NOT NULL,
	created  INTEGER NOT NULL,
	PRIMARY KEY (path, hash)
)`

// Cache is a persistent chunk store. It is safe for concurrent use.
type Cache struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens or creates the cache database at path.
func Open(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	log.Debugf("opened %s", path)
	return &Cache{db: db, path: path}, nil
}

// DefaultPath is the cache location used when the project doesn't set one.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "kite", "chunks.db"), nil
}

// Close closes the database.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Key hashes a script's source together with the global names it was
// compiled against. A chunk resolves globals by name at compile time, so
// a different prelude needs a different entry.
func Key(source []byte, globals []string) string {
	names := append([]string(nil), globals...)
	sort.Strings(names)
	h := sha256.New()
	h.Write(source)
	for _, name := range names {
		h.Write([]byte{0})
		h.Write([]byte(name))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the chunk stored for path and hash, or ErrMiss. Entries
// written by another encoding version are treated as misses.
func (c *Cache) Get(ctx context.Context, path, hash string) (*vm.Chunk, error) {
	var (
		data    []byte
		version int
	)
	err := c.db.QueryRowContext(ctx,
		"SELECT data, version FROM chunks WHERE path = ? AND hash = ?", path, hash,
	).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debugf("miss %s", path)
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("querying chunk: %w", err)
	}
	if version != vm.EncodingVersion {
		log.Debugf("stale encoding version %d for %s", version, path)
		return nil, ErrMiss
	}
	chunk, err := vm.UnmarshalChunk(data)
	if err != nil {
		log.Warningf("dropping unreadable entry for %s: %s", path, err)
		return nil, ErrMiss
	}
	log.Debugf("hit %s", path)
	return chunk, nil
}

// Put stores chunk for path and hash, replacing older entries for path.
func (c *Cache) Put(ctx context.Context, path, hash string, chunk *vm.Chunk) error {
	data, err := vm.MarshalChunk(chunk)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE path = ?", path); err != nil {
		return fmt.Errorf("removing old chunks: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO chunks (path, hash, version, data, created) VALUES (?, ?, ?, ?, ?)",
		path, hash, vm.EncodingVersion, data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving chunk: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("saving chunk: %w", err)
	}
	log.Debugf("stored %s (%d bytes)", path, len(data))
	return nil
}

// Clear removes every entry.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.db.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}

// Len returns the number of stored chunks.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

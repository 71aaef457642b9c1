// Package cache stores which files are already in shape, so repeated runs
// skip them.
package cache

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pyshape/internal/core/errors"
	"pyshape/internal/core/ports"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

var _ ports.CleanCache = (*SQLiteCache)(nil)

// SQLiteCache keeps one row per path and fingerprint. A row only counts as a
// hit while its content hash matches.
type SQLiteCache struct {
	db *sql.DB
}

type cachePayload struct {
	Version int      `msgpack:"v"`
	RunID   string   `msgpack:"run"`
	Options []string `msgpack:"opts"`
}

func OpenSQLite(path string) (*SQLiteCache, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, errors.New(errors.CodeConfigInvalid, "cache path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, errors.Newf(errors.CodeConfigInvalid, "cache path %q is a directory", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, errors.CodeIO, fmt.Sprintf("create cache directory %q", dir))
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, fmt.Sprintf("open cache sqlite %q", cleanPath))
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.CodeIO, fmt.Sprintf("ping cache sqlite %q", cleanPath))
	}
	if err := migrateCacheSchema(db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.CodeIO, "migrate cache")
	}
	return &SQLiteCache{db: db}, nil
}

func (c *SQLiteCache) Lookup(ctx context.Context, key ports.CacheKey) (bool, error) {
	if c == nil || c.db == nil {
		return false, fmt.Errorf("cache not initialized")
	}
	var (
		hash string
		raw  []byte
	)
	err := c.db.QueryRowContext(ctx, `
SELECT content_hash, payload FROM clean_files WHERE path = ? AND fingerprint = ?
`, key.Path, key.Fingerprint).Scan(&hash, &raw)
	if stderrors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, errors.CodeIO, "lookup cache")
	}
	var payload cachePayload
	if err := msgpack.Unmarshal(raw, &payload); err != nil || payload.Version != schemaVersion {
		// Rows from other versions read as misses and get overwritten.
		return false, nil
	}
	return hash == key.Hash, nil
}

func (c *SQLiteCache) Record(ctx context.Context, key ports.CacheKey, entry ports.CacheEntry) error {
	if c == nil || c.db == nil {
		return fmt.Errorf("cache not initialized")
	}
	raw, err := msgpack.Marshal(cachePayload{Version: schemaVersion, RunID: entry.RunID, Options: entry.Options})
	if err != nil {
		return fmt.Errorf("marshal cache payload: %w", err)
	}
	checked := entry.CheckedAt
	if checked.IsZero() {
		checked = time.Now()
	}
	_, err = c.db.ExecContext(ctx, `
INSERT INTO clean_files (path, content_hash, fingerprint, payload, checked_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(path, fingerprint) DO UPDATE SET
  content_hash = excluded.content_hash,
  payload = excluded.payload,
  checked_at = excluded.checked_at
`, key.Path, key.Hash, key.Fingerprint, raw, checked.UTC().UnixMilli())
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "record cache entry")
	}
	return nil
}

func (c *SQLiteCache) Clear(ctx context.Context) (int64, error) {
	if c == nil || c.db == nil {
		return 0, fmt.Errorf("cache not initialized")
	}
	res, err := c.db.ExecContext(ctx, `DELETE FROM clean_files`)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeIO, "clear cache")
	}
	return res.RowsAffected()
}

// Prune drops entries not checked since before.
func (c *SQLiteCache) Prune(ctx context.Context, before time.Time) (int64, error) {
	if c == nil || c.db == nil {
		return 0, fmt.Errorf("cache not initialized")
	}
	res, err := c.db.ExecContext(ctx, `DELETE FROM clean_files WHERE checked_at < ?`, before.UTC().UnixMilli())
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeIO, "prune cache")
	}
	return res.RowsAffected()
}

func (c *SQLiteCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

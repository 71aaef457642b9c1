package cache

import (
	"database/sql"
	"fmt"
)

const schemaVersion = 1

func migrateCacheSchema(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("cache db is nil")
	}
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS clean_files (
  path TEXT NOT NULL,
  content_hash TEXT NOT NULL,
  fingerprint TEXT NOT NULL,
  payload BLOB NOT NULL,
  checked_at INTEGER NOT NULL,
  PRIMARY KEY (path, fingerprint)
);
CREATE INDEX IF NOT EXISTS idx_clean_files_checked ON clean_files(checked_at);
`)
	if err != nil {
		return fmt.Errorf("migrate cache schema: %w", err)
	}
	return nil
}

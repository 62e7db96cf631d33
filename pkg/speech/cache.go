package speech

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteCache stores synthesized audio keyed by the hash of the cleaned
// input text, so repeated replies never hit the TTS vendors twice.
type SQLiteCache struct {
	db *sql.DB
}

func NewSQLiteCache(path string) (*SQLiteCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audio cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audio cache db: %w", err)
	}
	// Single writer; avoid SQLite lock contention between goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	cache := &SQLiteCache{db: db}
	if err := cache.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return cache, nil
}

func (c *SQLiteCache) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS audio_cache (
			text_hash TEXT PRIMARY KEY,
			voice TEXT NOT NULL DEFAULT '',
			audio BLOB NOT NULL,
			created_at_ms INTEGER NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("init audio cache schema: %w", err)
		}
	}
	return nil
}

func (c *SQLiteCache) Get(ctx context.Context, textHash string) ([]byte, bool, error) {
	var audio []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT audio FROM audio_cache WHERE text_hash = ?`, textHash).Scan(&audio)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("audio cache get: %w", err)
	}
	return audio, true, nil
}

func (c *SQLiteCache) Put(ctx context.Context, textHash, voice string, audio []byte) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO audio_cache (text_hash, voice, audio, created_at_ms) VALUES (?, ?, ?, ?)`,
		textHash, voice, audio, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("audio cache put: %w", err)
	}
	return nil
}

func (c *SQLiteCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

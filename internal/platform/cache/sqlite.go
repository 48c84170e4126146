package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/AzouC/Outils-Osintt/internal/core/domain"
	"github.com/AzouC/Outils-Osintt/internal/platform/logx"
)

// SQLiteStore persists cache entries across runs in a single database file.
// It satisfies Store; a failed database operation degrades to a cache miss
// rather than failing the task.
type SQLiteStore struct {
	db     *sql.DB
	logger logx.Logger
}

// OpenSQLite opens or creates the cache database under dir.
func OpenSQLite(dir string, logger logx.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = logx.New()
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dbPath := filepath.Join(dir, "osintgraph_cache.db")
	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// SQLite supports a single writer; extra connections just contend.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger.With("component", "cache-sqlite"),
	}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cache_entries (
		key TEXT PRIMARY KEY,
		module_id TEXT NOT NULL,
		entity_kind TEXT NOT NULL,
		entity_value TEXT NOT NULL,
		result TEXT NOT NULL,
		fetched_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cache_module ON cache_entries(module_id);
	CREATE INDEX IF NOT EXISTS idx_cache_expires ON cache_entries(expires_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get looks up a persisted entry. Expired rows are treated as misses and
// lazily deleted.
func (s *SQLiteStore) Get(moduleID string, entity domain.Entity) (*domain.ModuleResult, bool) {
	key := Key(moduleID, entity)

	var raw string
	var expiresAt int64
	err := s.db.QueryRow(
		"SELECT result, expires_at FROM cache_entries WHERE key = ?", key,
	).Scan(&raw, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("cache read failed", "error", err.Error())
		return nil, false
	}

	if expiresAt > 0 && time.Now().Unix() > expiresAt {
		if _, err := s.db.Exec("DELETE FROM cache_entries WHERE key = ?", key); err != nil {
			s.logger.Warn("expired entry cleanup failed", "error", err.Error())
		}
		return nil, false
	}

	var result domain.ModuleResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		s.logger.Warn("cache entry corrupt, dropping", "key", key, "error", err.Error())
		_, _ = s.db.Exec("DELETE FROM cache_entries WHERE key = ?", key)
		return nil, false
	}
	return &result, true
}

// Put upserts an entry. Refresh replaces the whole row.
func (s *SQLiteStore) Put(moduleID string, entity domain.Entity, result *domain.ModuleResult, ttl time.Duration) {
	raw, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn("cache entry marshal failed", "error", err.Error())
		return
	}

	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).Unix()
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO cache_entries
			(key, module_id, entity_kind, entity_value, result, fetched_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		Key(moduleID, entity), moduleID, string(entity.Kind), entity.Value,
		string(raw), time.Now().Unix(), expiresAt,
	)
	if err != nil {
		s.logger.Warn("cache write failed", "error", err.Error())
	}
}

// Invalidate removes an entry.
func (s *SQLiteStore) Invalidate(moduleID string, entity domain.Entity) {
	if _, err := s.db.Exec(
		"DELETE FROM cache_entries WHERE key = ?", Key(moduleID, entity),
	); err != nil {
		s.logger.Warn("cache invalidate failed", "error", err.Error())
	}
}

// CleanExpired drops all expired rows and reports how many were removed.
func (s *SQLiteStore) CleanExpired() int {
	res, err := s.db.Exec(
		"DELETE FROM cache_entries WHERE expires_at > 0 AND expires_at < ?",
		time.Now().Unix(),
	)
	if err != nil {
		s.logger.Warn("expired sweep failed", "error", err.Error())
		return 0
	}
	n, _ := res.RowsAffected()
	return int(n)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

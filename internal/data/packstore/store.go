// Package packstore persists pack file scan results in SQLite so repeated
// index builds can skip rescanning unchanged pack files.
package packstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"packsense/internal/core/ports"
	"packsense/internal/engine/scanner"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

const schemaVersion = 1

type SQLiteStore struct {
	db       *sql.DB
	loadStmt *sql.Stmt
	saveStmt *sql.Stmt

	mu     sync.Mutex
	hits   int
	misses int
}

// Stats counts lookups since the store was opened.
type Stats struct {
	Files  int
	Hits   int
	Misses int
}

func Open(path string) (*SQLiteStore, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("pack store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("pack store path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create pack store directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite pack store %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite pack store %q: %w", cleanPath, err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	loadStmt, err := db.Prepare(`SELECT size, mtime_ns, occurrences FROM pack_files WHERE file_path = ?`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prepare load stmt: %w", err)
	}
	saveStmt, err := db.Prepare(`INSERT OR REPLACE INTO pack_files
  (file_path, size, mtime_ns, occurrence_count, occurrences, scanned_at)
VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = loadStmt.Close()
		_ = db.Close()
		return nil, fmt.Errorf("prepare save stmt: %w", err)
	}

	return &SQLiteStore{db: db, loadStmt: loadStmt, saveStmt: saveStmt}, nil
}

func migrate(db *sql.DB) error {
	var version int
	_ = db.QueryRow(`PRAGMA user_version`).Scan(&version)
	if version >= schemaVersion {
		return nil
	}
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS pack_files (
  file_path TEXT NOT NULL PRIMARY KEY,
  size INTEGER NOT NULL,
  mtime_ns INTEGER NOT NULL,
  occurrence_count INTEGER NOT NULL DEFAULT 0,
  occurrences BLOB NOT NULL,
  scanned_at INTEGER NOT NULL
);
PRAGMA user_version = 1;
`)
	if err != nil {
		return fmt.Errorf("create v1 schema: %w", err)
	}
	return nil
}

// Load returns the stored occurrences of path when size and modification
// time still match info.
func (s *SQLiteStore) Load(path string, info ports.FileInfo) ([]scanner.Occurrence, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, nil
	}
	var (
		size  int64
		mtime int64
		blob  []byte
	)
	err := s.loadStmt.QueryRow(path).Scan(&size, &mtime, &blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.count(false)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load pack file %q: %w", path, err)
	}
	if size != info.Size || mtime != info.ModTime.UnixNano() {
		s.count(false)
		return nil, false, nil
	}
	var occs []scanner.Occurrence
	if err := json.Unmarshal(blob, &occs); err != nil {
		return nil, false, fmt.Errorf("unmarshal pack file %q: %w", path, err)
	}
	s.count(true)
	return occs, true, nil
}

// Save records the scan of path under info's size and modification time.
func (s *SQLiteStore) Save(path string, info ports.FileInfo, occs []scanner.Occurrence) error {
	if s == nil || s.db == nil {
		return nil
	}
	if occs == nil {
		occs = []scanner.Occurrence{}
	}
	blob, err := json.Marshal(occs)
	if err != nil {
		return fmt.Errorf("marshal pack file %q: %w", path, err)
	}
	if _, err := s.saveStmt.Exec(path, info.Size, info.ModTime.UnixNano(), len(occs), blob, time.Now().Unix()); err != nil {
		return fmt.Errorf("save pack file %q: %w", path, err)
	}
	return nil
}

// PruneMissing deletes rows whose file no longer exists according to exists.
func (s *SQLiteStore) PruneMissing(exists func(path string) bool) (int, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	rows, err := s.db.Query(`SELECT file_path FROM pack_files`)
	if err != nil {
		return 0, fmt.Errorf("list pack files: %w", err)
	}
	var stale []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("scan pack file row: %w", err)
		}
		if !exists(p) {
			stale = append(stale, p)
		}
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate pack files: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin prune tx: %w", err)
	}
	for _, p := range stale {
		if _, err := tx.Exec(`DELETE FROM pack_files WHERE file_path = ?`, p); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("delete pack file %q: %w", p, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune tx: %w", err)
	}
	return len(stale), nil
}

func (s *SQLiteStore) Stats() (Stats, error) {
	if s == nil || s.db == nil {
		return Stats{}, nil
	}
	var st Stats
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM pack_files`).Scan(&st.Files); err != nil {
		return Stats{}, fmt.Errorf("count pack files: %w", err)
	}
	s.mu.Lock()
	st.Hits, st.Misses = s.hits, s.misses
	s.mu.Unlock()
	return st, nil
}

func (s *SQLiteStore) count(hit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hit {
		s.hits++
	} else {
		s.misses++
	}
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if s.loadStmt != nil {
		_ = s.loadStmt.Close()
	}
	if s.saveStmt != nil {
		_ = s.saveStmt.Close()
	}
	return s.db.Close()
}

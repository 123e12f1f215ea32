package diffbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

var ErrNotPinned = errors.New("no pinned base")

// Pin is one saved diff base.
type Pin struct {
	Path     string
	Size     int
	PinnedAt time.Time
}

// Store keeps user-pinned diff bases in a SQLite database, keyed by the
// file's absolute path.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens or creates the store at dbPath.
func Open(dbPath string, logger zerolog.Logger) (*Store, error) {
	logger = logger.With().Str("component", "pinstore").Logger()

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug().Str("db_path", dbPath).Msg("pinned base store ready")
	return s, nil
}

func (s *Store) initSchema() error {
	stmts := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		`CREATE TABLE IF NOT EXISTS pinned_bases (
			path      TEXT PRIMARY KEY,
			content   BLOB NOT NULL,
			pinned_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Pin saves content as the diff base for path, replacing any earlier pin.
func (s *Store) Pin(ctx context.Context, path string, content []byte) error {
	key, err := storeKey(path)
	if err != nil {
		return err
	}
	if content == nil {
		content = []byte{}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pinned_bases (path, content, pinned_at) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET content = excluded.content, pinned_at = excluded.pinned_at`,
		key, content, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("pin %s: %w", key, err)
	}
	s.logger.Info().Str("path", key).Int("bytes", len(content)).Msg("pinned diff base")
	return nil
}

// Unpin removes the pin for path. It returns ErrNotPinned if there was none.
func (s *Store) Unpin(ctx context.Context, path string) error {
	key, err := storeKey(path)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM pinned_bases WHERE path = ?`, key)
	if err != nil {
		return fmt.Errorf("unpin %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unpin %s: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", key, ErrNotPinned)
	}
	s.logger.Info().Str("path", key).Msg("unpinned diff base")
	return nil
}

// Get returns the pinned content for path.
func (s *Store) Get(ctx context.Context, path string) ([]byte, error) {
	key, err := storeKey(path)
	if err != nil {
		return nil, err
	}
	var content []byte
	err = s.db.QueryRowContext(ctx, `SELECT content FROM pinned_bases WHERE path = ?`, key).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotPinned)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", key, err)
	}
	return content, nil
}

// List returns every pin ordered by path.
func (s *Store) List(ctx context.Context) ([]Pin, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, length(content), pinned_at FROM pinned_bases ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("list pins: %w", err)
	}
	defer rows.Close()

	var pins []Pin
	for rows.Next() {
		var p Pin
		if err := rows.Scan(&p.Path, &p.Size, &p.PinnedAt); err != nil {
			return nil, fmt.Errorf("scan pin: %w", err)
		}
		pins = append(pins, p)
	}
	return pins, rows.Err()
}

// DiffBase implements Provider.
func (s *Store) DiffBase(ctx context.Context, path string) ([]byte, bool) {
	content, err := s.Get(ctx, path)
	if err != nil {
		if !errors.Is(err, ErrNotPinned) {
			s.logger.Warn().Err(err).Str("path", path).Msg("pinned base lookup failed")
		}
		return nil, false
	}
	return content, true
}

func storeKey(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return filepath.Clean(abs), nil
}

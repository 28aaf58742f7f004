package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLite stores settings in a single-row table at the given path. The
// modernc driver keeps the binary cgo-free.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}
	// A single writer is enough for a settings table.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		theme TEXT NOT NULL DEFAULT '',
		api_url TEXT NOT NULL DEFAULT '',
		api_key TEXT NOT NULL DEFAULT ''
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate settings db: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Load(ctx context.Context) (Settings, error) {
	var out Settings
	err := s.db.QueryRowContext(ctx, `SELECT theme, api_url, api_key FROM settings WHERE id = 1`).
		Scan(&out.Theme, &out.APIURL, &out.APIKey)
	if errors.Is(err, sql.ErrNoRows) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return out, nil
}

func (s *SQLite) Save(ctx context.Context, in Settings) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO settings (id, theme, api_url, api_key) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET theme=excluded.theme, api_url=excluded.api_url, api_key=excluded.api_key`,
		in.Theme, in.APIURL, in.APIKey)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }

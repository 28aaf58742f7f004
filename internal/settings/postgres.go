package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres stores settings for deployments that already run a database.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS mrtrack_settings (
		id INT PRIMARY KEY CHECK (id = 1),
		theme TEXT NOT NULL DEFAULT '',
		api_url TEXT NOT NULL DEFAULT '',
		api_key TEXT NOT NULL DEFAULT ''
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate settings table: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Load(ctx context.Context) (Settings, error) {
	var out Settings
	err := p.db.QueryRowContext(ctx, `SELECT theme, api_url, api_key FROM mrtrack_settings WHERE id = 1`).
		Scan(&out.Theme, &out.APIURL, &out.APIKey)
	if errors.Is(err, sql.ErrNoRows) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return out, nil
}

func (p *Postgres) Save(ctx context.Context, in Settings) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO mrtrack_settings (id, theme, api_url, api_key) VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET theme=EXCLUDED.theme, api_url=EXCLUDED.api_url, api_key=EXCLUDED.api_key`,
		in.Theme, in.APIURL, in.APIKey)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error { return p.db.Close() }

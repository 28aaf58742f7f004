// Package settings persists the operator-facing preferences: UI theme and
// the upstream API override ({apiUrl, apiKey}). Writes happen only through
// the settings surface; the backend adapter re-resolves on every request.
package settings

import "context"

type Settings struct {
	Theme  string `json:"theme,omitempty"`
	APIURL string `json:"apiUrl,omitempty"`
	APIKey string `json:"apiKey,omitempty"`
}

type Store interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
	Close() error
}

// New selects a backend: postgres when dsn is set, sqlite when a file path is
// set, in-memory otherwise. Mirrors how the rest of the stack picks optional
// infrastructure by configuration.
func New(dsn, sqlitePath string) (Store, error) {
	switch {
	case dsn != "":
		return NewPostgres(dsn)
	case sqlitePath != "":
		return NewSQLite(sqlitePath)
	}
	return NewMemory(), nil
}

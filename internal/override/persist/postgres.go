package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dshills/hintprefs/internal/setdiff"
)

// Postgres stores one row per classifier with the diff as a JSON payload, and
// one row per option in a second table.
type Postgres struct {
	db     *sql.DB
	schema initGate
}

// NewPostgres connects to dsn through the pgx driver.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresDB(db), nil
}

// NewPostgresDB uses an existing connection pool.
func NewPostgresDB(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

var schemaStatements = []string{`
CREATE TABLE IF NOT EXISTS hint_blacklist_diffs (
  classifier TEXT PRIMARY KEY,
  payload TEXT NOT NULL,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
)`, `
CREATE TABLE IF NOT EXISTS hint_options (
  id TEXT PRIMARY KEY,
  value BOOLEAN NOT NULL,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
)`}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	return p.schema.do(ctx, func(ctx context.Context) error {
		for _, stmt := range schemaStatements {
			if _, err := p.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("create schema: %w", err)
			}
		}
		return nil
	})
}

// Load implements Backend.
func (p *Postgres) Load(ctx context.Context, classifier string) (setdiff.Diff[string], error) {
	if err := p.ensureSchema(ctx); err != nil {
		return setdiff.Diff[string]{}, err
	}
	var payload string
	err := p.db.QueryRowContext(ctx,
		`SELECT payload FROM hint_blacklist_diffs WHERE classifier = $1`, classifier).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return setdiff.Diff[string]{}, ErrNotFound
	}
	if err != nil {
		return setdiff.Diff[string]{}, err
	}
	return decodeJSON([]byte(payload))
}

// Save implements Backend.
func (p *Postgres) Save(ctx context.Context, classifier string, d setdiff.Diff[string]) error {
	if err := p.ensureSchema(ctx); err != nil {
		return err
	}
	if d.IsEmpty() {
		_, err := p.db.ExecContext(ctx,
			`DELETE FROM hint_blacklist_diffs WHERE classifier = $1`, classifier)
		return err
	}
	payload, err := encodeJSON(d)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
INSERT INTO hint_blacklist_diffs (classifier, payload, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (classifier)
DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`, classifier, string(payload))
	return err
}

// List implements Backend.
func (p *Postgres) List(ctx context.Context) ([]string, error) {
	if err := p.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT classifier FROM hint_blacklist_diffs ORDER BY classifier`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// LoadOptions implements Backend.
func (p *Postgres) LoadOptions(ctx context.Context) (map[string]bool, error) {
	if err := p.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, `SELECT id, value FROM hint_options`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var (
			id    string
			value bool
		)
		if err := rows.Scan(&id, &value); err != nil {
			return nil, err
		}
		out[id] = value
	}
	return out, rows.Err()
}

// SaveOption implements Backend.
func (p *Postgres) SaveOption(ctx context.Context, id string, value bool) error {
	if err := p.ensureSchema(ctx); err != nil {
		return err
	}
	_, err := p.db.ExecContext(ctx, `
INSERT INTO hint_options (id, value, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (id)
DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, id, value)
	return err
}

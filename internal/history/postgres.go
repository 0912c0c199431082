package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

const ddlPhraseHistory = `
CREATE TABLE IF NOT EXISTS phrase_history (
    id          BIGSERIAL    PRIMARY KEY,
    text        TEXT         NOT NULL,
    translated  TEXT         NOT NULL DEFAULT '',
    speaker     TEXT         NOT NULL DEFAULT '',
    spoken_at   TIMESTAMPTZ  NOT NULL DEFAULT now(),
    duration_ns BIGINT       NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_phrase_history_spoken_at
    ON phrase_history (spoken_at);

CREATE INDEX IF NOT EXISTS idx_phrase_history_fts
    ON phrase_history USING GIN (to_tsvector('simple', text || ' ' || translated));
`

// PostgresStore is a [Store] backed by a PostgreSQL phrase_history table with
// a GIN full-text search index. All operations are safe for concurrent use.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database at dsn, verifies the connection,
// and ensures the phrase_history schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("history store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("history store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history store: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, ddlPhraseHistory); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history store: migrate: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Append implements [Store].
func (p *PostgresStore) Append(ctx context.Context, entry Entry) error {
	const q = `
		INSERT INTO phrase_history (text, translated, speaker, spoken_at, duration_ns)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := p.pool.Exec(ctx, q,
		entry.Text,
		entry.Translated,
		entry.Speaker,
		entry.SpokenAt,
		entry.Duration.Nanoseconds(),
	)
	if err != nil {
		return fmt.Errorf("history store: append: %w", err)
	}
	return nil
}

// Recent implements [Store].
func (p *PostgresStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	q := `
		SELECT text, translated, speaker, spoken_at, duration_ns
		FROM   phrase_history
		ORDER  BY spoken_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		args = append(args, limit)
		q += "\nLIMIT $1"
	}

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("history store: recent: %w", err)
	}
	entries, err := collectEntries(rows)
	if err != nil {
		return nil, err
	}
	reverse(entries)
	return entries, nil
}

// Search implements [Store]. The query is passed to plainto_tsquery so no
// special operator syntax is required.
func (p *PostgresStore) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	q := `
		SELECT text, translated, speaker, spoken_at, duration_ns
		FROM   phrase_history
		WHERE  to_tsvector('simple', text || ' ' || translated)
		       @@ plainto_tsquery('simple', $1)
		ORDER  BY spoken_at, id`
	args := []any{query}
	if limit > 0 {
		args = append(args, limit)
		q += "\nLIMIT $2"
	}

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("history store: search: %w", err)
	}
	return collectEntries(rows)
}

// Close implements [Store].
func (p *PostgresStore) Close() {
	p.pool.Close()
}

func collectEntries(rows pgx.Rows) ([]Entry, error) {
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var (
			e          Entry
			durationNS int64
		)
		if err := row.Scan(&e.Text, &e.Translated, &e.Speaker, &e.SpokenAt, &durationNS); err != nil {
			return Entry{}, err
		}
		e.Duration = time.Duration(durationNS)
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("history store: scan rows: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

func reverse(entries []Entry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}

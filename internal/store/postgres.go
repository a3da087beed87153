package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/shanehull/cryptobriefs/internal/config"
	"github.com/shanehull/cryptobriefs/internal/types"
)

// PostgresStore keeps one row per link.
type PostgresStore struct {
	db      *sql.DB
	table   string
	timeout time.Duration
}

func OpenPostgres(ctx context.Context, cfg config.StoreConfig) (*PostgresStore, error) {
	if cfg.URI == "" {
		return nil, config.ErrMissingStoreURI
	}

	db, err := sql.Open("postgres", cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	s := &PostgresStore{
		db:      db,
		table:   pq.QuoteIdentifier(cfg.Collection),
		timeout: timeout,
	}

	initCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(initCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if _, err := db.ExecContext(initCtx, s.schema()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

func (s *PostgresStore) schema() string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			link       TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			image      TEXT NOT NULL,
			published  TIMESTAMPTZ NOT NULL,
			coins      TEXT[] NOT NULL DEFAULT '{}',
			sentiment  TEXT NOT NULL DEFAULT 'neutral',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS %[2]s ON %[1]s (published DESC);
	`, s.table, pq.QuoteIdentifier(strings.Trim(s.table, `"`)+"_published_idx"))
}

func (s *PostgresStore) FindSentiments(ctx context.Context, links []string) (map[string]types.Sentiment, error) {
	found := make(map[string]types.Sentiment, len(links))
	if len(links) == 0 {
		return found, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT link, sentiment FROM %s WHERE link = ANY($1)`, s.table),
		pq.Array(links),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to look up links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var link, sentiment string
		if err := rows.Scan(&link, &sentiment); err != nil {
			return nil, err
		}
		found[link] = types.Sentiment(sentiment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return found, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, rec types.NewsRecord) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	coins := rec.Coins
	if coins == nil {
		coins = []string{}
	}

	var inserted bool
	err := s.db.QueryRowContext(ctx, s.upsertSQL(),
		rec.Link, rec.Title, rec.Image, rec.Published, pq.Array(coins), string(rec.Sentiment),
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert %s: %w", rec.Link, err)
	}

	return inserted, nil
}

// upsertSQL only touches sentiment on conflict; xmax is zero for a fresh insert.
func (s *PostgresStore) upsertSQL() string {
	return fmt.Sprintf(`
		INSERT INTO %s (link, title, image, published, coins, sentiment)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (link) DO UPDATE SET sentiment = EXCLUDED.sentiment, updated_at = now()
		RETURNING (xmax = 0)
	`, s.table)
}

func (s *PostgresStore) List(ctx context.Context, q Query) ([]types.NewsRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query, args := postgresListQuery(s.table, q)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list news: %w", err)
	}
	defer rows.Close()

	records := []types.NewsRecord{}
	for rows.Next() {
		var rec types.NewsRecord
		var sentiment string
		if err := rows.Scan(&rec.Title, &rec.Link, &rec.Image, &rec.Published, pq.Array(&rec.Coins), &sentiment); err != nil {
			return nil, err
		}
		rec.Sentiment = types.Sentiment(sentiment)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func (s *PostgresStore) Close(context.Context) error {
	return s.db.Close()
}

func postgresListQuery(table string, q Query) (string, []any) {
	var (
		where []string
		args  []any
	)
	if q.Coin != "" {
		args = append(args, q.Coin)
		where = append(where, fmt.Sprintf("$%d = ANY(coins)", len(args)))
	}
	if q.Sentiment != "" {
		args = append(args, string(q.Sentiment))
		where = append(where, fmt.Sprintf("sentiment = $%d", len(args)))
	}

	var sb strings.Builder
	sb.WriteString("SELECT title, link, image, published, coins, sentiment FROM ")
	sb.WriteString(table)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	args = append(args, q.limit())
	sb.WriteString(fmt.Sprintf(" ORDER BY published DESC LIMIT $%d", len(args)))

	return sb.String(), args
}

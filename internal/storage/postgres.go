package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/user/neptun-scraper/internal/domain"
)

type table struct {
	name     string
	keyField string
}

var tables = map[domain.Kind]table{
	domain.KindImage: {name: "docker_images", keyField: "name"},
	domain.KindBlog:  {name: "blog_posts", keyField: "title"},
	domain.KindDoc:   {name: "doc_pages", keyField: "url"},
}

// PostgresSink upserts records into one table per record kind.
type PostgresSink struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresSink(ctx context.Context, connStr string, logger *zap.Logger) (*PostgresSink, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return &PostgresSink{db: db, logger: logger}, nil
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresSink) Close() {
	s.db.Close()
}

const failedPagesTable = `CREATE TABLE IF NOT EXISTS failed_pages (
	url            TEXT PRIMARY KEY,
	target         TEXT NOT NULL,
	failure_reason TEXT NOT NULL,
	last_attempt   TIMESTAMPTZ NOT NULL,
	retry_count    INTEGER NOT NULL DEFAULT 1
)`

// upsertFailedPage increments retry_count on conflict.
const upsertFailedPage = `INSERT INTO failed_pages (url, target, failure_reason, last_attempt, retry_count)
	VALUES ($1, $2, $3, $4, 1)
	ON CONFLICT (url) DO UPDATE SET
		failure_reason = EXCLUDED.failure_reason,
		last_attempt = EXCLUDED.last_attempt,
		retry_count = failed_pages.retry_count + 1`

// EnsureSchema creates the record tables and the failed page log when
// missing.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, failedPagesTable); err != nil {
		return fmt.Errorf("create table failed_pages: %w", err)
	}
	for _, t := range tables {
		_, err := s.db.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			key        TEXT PRIMARY KEY,
			data       JSONB NOT NULL,
			scraped_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, t.name))
		if err != nil {
			return fmt.Errorf("create table %s: %w", t.name, err)
		}
	}
	return nil
}

// Write upserts every record of res and logs its failed pages within a
// single transaction.
func (s *PostgresSink) Write(ctx context.Context, res *domain.Result) error {
	batch := &pgx.Batch{}
	for _, rec := range res.Records() {
		t, ok := tables[rec.Kind()]
		if !ok {
			return fmt.Errorf("no table for record kind %q", rec.Kind())
		}
		key, data, err := splitDocument(rec, t.keyField)
		if err != nil {
			return err
		}
		batch.Queue(fmt.Sprintf(`INSERT INTO %s (key, data, scraped_at) VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, scraped_at = EXCLUDED.scraped_at`, t.name),
			key, data, res.FinishedAt)
	}
	for _, f := range res.Failures {
		batch.Queue(upsertFailedPage, f.URL, res.Target, f.Reason, f.At)
	}
	if batch.Len() == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert %s records: %w", res.Target, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.logger.Info("results upserted",
		zap.String("target", res.Target),
		zap.Int("records", res.Count()),
		zap.Int("failed_pages", len(res.Failures)))
	return nil
}

// splitDocument separates the identity of rec from the rest of its JSON
// document.
func splitDocument(rec domain.Record, keyField string) (string, []byte, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return "", nil, fmt.Errorf("encode record %q: %w", rec.Key(), err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", nil, fmt.Errorf("decode record %q: %w", rec.Key(), err)
	}
	delete(doc, keyField)
	data, err := json.Marshal(doc)
	if err != nil {
		return "", nil, fmt.Errorf("encode record %q: %w", rec.Key(), err)
	}
	return rec.Key(), data, nil
}


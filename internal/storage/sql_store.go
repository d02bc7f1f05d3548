package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect names the SQL backend. Queries are written with ? placeholders and
// rebound for postgres.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Times are stored as unix seconds so both backends compare them the same way.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS seen_news (
		url TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		title TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		seen_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_seen_news_seen_at ON seen_news(seen_at)`,
	`CREATE INDEX IF NOT EXISTS idx_seen_news_hash ON seen_news(hash)`,
	`CREATE TABLE IF NOT EXISTS posted_news (
		url TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		score DOUBLE PRECISION NOT NULL DEFAULT 0,
		message TEXT NOT NULL DEFAULT '',
		posted_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posted_news_posted_at ON posted_news(posted_at)`,
	`CREATE TABLE IF NOT EXISTS summary_cache (
		content_hash TEXT PRIMARY KEY,
		summary TEXT NOT NULL,
		provider TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL,
		last_used_at BIGINT NOT NULL,
		use_count INTEGER NOT NULL DEFAULT 1
	)`,
}

// SQLStore keeps records in PostgreSQL or SQLite.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
	log     *slog.Logger
}

// OpenSQL connects, pings and creates the schema.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string, log *slog.Logger) (*SQLStore, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// One writer keeps SQLite free of "database is locked" errors.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dialect, err)
	}

	s := &SQLStore{db: db, dialect: dialect, now: time.Now, log: log}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("sql store connected", "dialect", dialect)
	return s, nil
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// rebind turns ? placeholders into $n for postgres.
func (s *SQLStore) rebind(query string) string {
	return rebind(s.dialect, query)
}

func rebind(dialect Dialect, query string) string {
	if dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const seenBatch = 500

func (s *SQLStore) SeenURLs(ctx context.Context, urls []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for start := 0; start < len(urls); start += seenBatch {
		end := min(start+seenBatch, len(urls))
		chunk := urls[start:end]

		args := make([]any, len(chunk))
		for i, u := range chunk {
			args[i] = u
		}
		query := s.rebind(`SELECT url FROM seen_news WHERE url IN (` +
			strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",") + `)`)

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query seen urls: %w", err)
		}
		for rows.Next() {
			var u string
			if err := rows.Scan(&u); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan seen url: %w", err)
			}
			out[u] = true
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read seen urls: %w", err)
		}
	}
	return out, nil
}

func (s *SQLStore) RecordSeen(ctx context.Context, items []SeenItem) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(`
		INSERT INTO seen_news (url, hash, title, source, seen_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (url) DO NOTHING`))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := s.now()
	for _, item := range items {
		seenAt := item.SeenAt
		if seenAt.IsZero() {
			seenAt = now
		}
		if _, err := stmt.ExecContext(ctx, item.URL, item.Hash, item.Title, item.Source, seenAt.Unix()); err != nil {
			return fmt.Errorf("failed to record %s: %w", item.URL, err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) IsPosted(ctx context.Context, url string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM posted_news WHERE url = ?`), url).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check post: %w", err)
	}
	return count > 0, nil
}

// RecordPost upserts so a retried publish does not fail on the primary key.
func (s *SQLStore) RecordPost(ctx context.Context, p Post) error {
	postedAt := p.PostedAt
	if postedAt.IsZero() {
		postedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO posted_news (url, title, category, source, score, message, posted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET
			message = EXCLUDED.message,
			posted_at = EXCLUDED.posted_at`),
		p.URL, p.Title, p.Category, p.Source, p.Score, p.Message, postedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to record post: %w", err)
	}
	return nil
}

func (s *SQLStore) RecentPosts(ctx context.Context, limit int) ([]Post, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT url, title, category, source, score, message, posted_at
		FROM posted_news
		ORDER BY posted_at DESC
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		var postedAt int64
		if err := rows.Scan(&p.URL, &p.Title, &p.Category, &p.Source, &p.Score, &p.Message, &postedAt); err != nil {
			s.log.Warn("skipping unreadable post row", "error", err)
			continue
		}
		p.PostedAt = time.Unix(postedAt, 0).UTC()
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *SQLStore) Cleanup(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM seen_news WHERE seen_at < ?`), olderThan.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM summary_cache WHERE last_used_at < ?`), olderThan.Unix()); err != nil {
		return 0, fmt.Errorf("failed to cleanup summaries: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows > 0 {
		s.log.Info("cleaned up old records", "rows", rows)
	}
	return rows, nil
}

func (s *SQLStore) GetSummary(ctx context.Context, contentHash string) (string, bool, error) {
	var summary string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT summary FROM summary_cache WHERE content_hash = ?`), contentHash).Scan(&summary)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get summary from cache: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE summary_cache SET last_used_at = ?, use_count = use_count + 1
		WHERE content_hash = ?`), s.now().Unix(), contentHash); err != nil {
		s.log.Warn("failed to touch cached summary", "error", err)
	}
	return summary, true, nil
}

func (s *SQLStore) PutSummary(ctx context.Context, contentHash, summary, provider string) error {
	now := s.now().Unix()
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO summary_cache (content_hash, summary, provider, created_at, last_used_at, use_count)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT (content_hash) DO UPDATE SET
			summary = EXCLUDED.summary,
			provider = EXCLUDED.provider,
			last_used_at = EXCLUDED.last_used_at,
			use_count = summary_cache.use_count + 1`),
		contentHash, summary, provider, now, now)
	if err != nil {
		return fmt.Errorf("failed to set summary cache: %w", err)
	}
	return nil
}

// GetStats returns row counts for monitoring.
func (s *SQLStore) GetStats(ctx context.Context) (map[string]int, error) {
	stats := make(map[string]int)
	for name, query := range map[string]string{
		"seen_items":   `SELECT COUNT(*) FROM seen_news`,
		"posted_items": `SELECT COUNT(*) FROM posted_news`,
		"summaries":    `SELECT COUNT(*) FROM summary_cache`,
	} {
		var n int
		if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", name, err)
		}
		stats[name] = n
	}
	return stats, nil
}

func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

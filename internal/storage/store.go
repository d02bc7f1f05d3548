// Package storage remembers which articles were already seen or posted so
// repeated runs do not pick the same story twice.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// SeenItem is a fetched article recorded for cross-run dedup.
type SeenItem struct {
	URL    string    `json:"url"`
	Hash   string    `json:"hash"`
	Title  string    `json:"title"`
	Source string    `json:"source"`
	SeenAt time.Time `json:"seen_at"`
}

// Post is one published selection.
type Post struct {
	URL      string    `json:"url"`
	Title    string    `json:"title"`
	Category string    `json:"category"`
	Source   string    `json:"source"`
	Score    float64   `json:"score"`
	Message  string    `json:"message"`
	PostedAt time.Time `json:"posted_at"`
}

// Store is the persistence contract of the pipeline.
type Store interface {
	// SeenURLs reports which of urls were recorded before.
	SeenURLs(ctx context.Context, urls []string) (map[string]bool, error)
	RecordSeen(ctx context.Context, items []SeenItem) error
	IsPosted(ctx context.Context, url string) (bool, error)
	RecordPost(ctx context.Context, p Post) error
	// RecentPosts returns the newest posts first.
	RecentPosts(ctx context.Context, limit int) ([]Post, error)
	// Cleanup drops seen records older than the cutoff and reports how many.
	Cleanup(ctx context.Context, olderThan time.Time) (int64, error)
	Close() error
}

// SummaryCache keeps generated summaries keyed by content hash.
type SummaryCache interface {
	GetSummary(ctx context.Context, contentHash string) (string, bool, error)
	PutSummary(ctx context.Context, contentHash, summary, provider string) error
}

// Options selects and configures a Store.
type Options struct {
	Driver   string // file | sqlite | postgres
	DSN      string
	FilePath string
	TTL      time.Duration
	Log      *slog.Logger
}

// Open returns the store for opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	switch opts.Driver {
	case "", "file":
		fs := NewFileStore(opts.FilePath, opts.TTL)
		if err := fs.Load(); err != nil {
			return nil, err
		}
		opts.Log.Info("file store loaded", "path", opts.FilePath, "items", fs.Len())
		return fs, nil
	case "sqlite":
		return OpenSQL(ctx, DialectSQLite, opts.DSN, opts.Log)
	case "postgres":
		return OpenSQL(ctx, DialectPostgres, opts.DSN, opts.Log)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

// GenerateNewsHash creates a stable hash for a news item from its
// normalized title and publisher domain.
func GenerateNewsHash(title, link string) string {
	normalizedTitle := strings.Join(strings.Fields(strings.ToLower(title)), " ")

	h := sha256.New()
	h.Write([]byte(normalizedTitle + "|" + extractDomain(link)))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// extractDomain extracts domain from URL without the www. prefix.
func extractDomain(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

// Command storecheck connects to the configured store and prints what it
// holds. Useful after changing STORE_DRIVER or the database URL.
package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"time"

	"github.com/deusflow/hrnews/internal/config"
	"github.com/deusflow/hrnews/internal/logger"
	"github.com/deusflow/hrnews/internal/storage"
)

type statser interface {
	GetStats(ctx context.Context) (map[string]int, error)
}

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := check(ctx, os.Stdout, cfg); err != nil {
		logger.Error("store check failed", "error", err)
		os.Exit(1)
	}
}

func check(ctx context.Context, w io.Writer, cfg *config.Config) error {
	target := cfg.CacheFilePath
	if cfg.StoreDriver != config.DriverFile {
		target = maskPassword(cfg.StoreDSN)
	}
	fmt.Fprintf(w, "Store: %s (%s)\n", cfg.StoreDriver, target)

	store, err := storage.Open(ctx, storage.Options{
		Driver:   cfg.StoreDriver,
		DSN:      cfg.StoreDSN,
		FilePath: cfg.CacheFilePath,
		TTL:      cfg.CacheTTL(),
		Log:      logger.Component("storage"),
	})
	if err != nil {
		return err
	}
	defer store.Close()
	fmt.Fprintln(w, "Connected.")

	if s, ok := store.(statser); ok {
		stats, err := s.GetStats(ctx)
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		keys := make([]string, 0, len(stats))
		for k := range stats {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(w, "\nStatistics:")
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %d\n", k, stats[k])
		}
	}

	posts, err := store.RecentPosts(ctx, 5)
	if err != nil {
		return fmt.Errorf("recent posts: %w", err)
	}
	fmt.Fprintln(w, "\nRecent posts (last 5):")
	if len(posts) == 0 {
		fmt.Fprintln(w, "  (nothing posted yet)")
	}
	for i, p := range posts {
		fmt.Fprintf(w, "  %d. %s\n", i+1, p.Title)
		fmt.Fprintf(w, "     Category: %s | Score: %.0f | Posted: %s\n", p.Category, p.Score, p.PostedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// maskPassword hides the password of a URL-style DSN.
func maskPassword(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		return u.Redacted()
	}
	if len(dsn) > 50 {
		return dsn[:30] + "***" + dsn[len(dsn)-20:]
	}
	return dsn
}

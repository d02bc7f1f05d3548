package rss

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"

	"github.com/deusflow/hrnews/internal/relevance"
	"github.com/deusflow/hrnews/internal/retry"
)

// Source is one configured news feed.
type Source struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	RSSFeed string `yaml:"rss_feed"`
	Active  bool   `yaml:"active"`
}

// FeedsConfig is the YAML config structure
//
//	feeds:
//	  - name: ...
//	    rss_feed: https://...
type FeedsConfig struct {
	Feeds []Source `yaml:"feeds"`
}

// LoadSources reads the feed list and returns the active entries.
func LoadSources(path string) ([]Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feeds config: %w", err)
	}
	defer f.Close()

	var cfg FeedsConfig
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode feeds config %s: %w", path, err)
	}

	active := make([]Source, 0, len(cfg.Feeds))
	for _, s := range cfg.Feeds {
		if !s.Active || strings.TrimSpace(s.RSSFeed) == "" {
			continue
		}
		if s.Name == "" {
			s.Name = s.RSSFeed
		}
		active = append(active, s)
	}
	if len(active) == 0 {
		return nil, fmt.Errorf("no active feeds in %s", path)
	}
	return active, nil
}

// Fetcher downloads feeds and turns their entries into candidates.
type Fetcher struct {
	parser *gofeed.Parser
	retry  retry.Config
	now    func() time.Time
	log    *slog.Logger
}

// NewFetcher builds a fetcher. A nil client uses http.DefaultClient.
func NewFetcher(client *http.Client, userAgent string, rc retry.Config, log *slog.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	p := gofeed.NewParser()
	p.Client = client
	p.UserAgent = userAgent
	return &Fetcher{parser: p, retry: rc, now: time.Now, log: log}
}

// Fetch parses one feed. Server errors are retried; client errors are not.
func (f *Fetcher) Fetch(ctx context.Context, src Source) ([]relevance.Candidate, error) {
	var feed *gofeed.Feed
	err := retry.Do(ctx, f.retry, func(ctx context.Context) error {
		parsed, err := f.parser.ParseURLWithContext(src.RSSFeed, ctx)
		if err != nil {
			var httpErr gofeed.HTTPError
			if errors.As(err, &httpErr) && httpErr.StatusCode < 500 && httpErr.StatusCode != http.StatusTooManyRequests {
				return retry.Permanent(err)
			}
			if errors.Is(err, gofeed.ErrFeedTypeNotDetected) {
				return retry.Permanent(err)
			}
			return err
		}
		feed = parsed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src.Name, err)
	}

	out := make([]relevance.Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		c, ok := f.candidate(src, item)
		if !ok {
			continue
		}
		out = append(out, c)
	}
	f.log.Info("feed loaded", "feed", src.Name, "items", len(out))
	return out, nil
}

func (f *Fetcher) candidate(src Source, item *gofeed.Item) (relevance.Candidate, bool) {
	if item == nil {
		return relevance.Candidate{}, false
	}
	title := PlainText(item.Title)
	link := strings.TrimSpace(item.Link)
	if title == "" || link == "" {
		return relevance.Candidate{}, false
	}

	body := item.Content
	if strings.TrimSpace(body) == "" {
		body = item.Description
	}

	published := f.now()
	switch {
	case item.PublishedParsed != nil:
		published = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		published = *item.UpdatedParsed
	}

	return relevance.Candidate{
		Title:       title,
		Body:        PlainText(body),
		PublishedAt: published.UTC(),
		SourceRef:   src.Name,
		URL:         link,
	}, true
}

// PlainText strips markup and collapses whitespace. Feed fields often carry
// escaped HTML, so the text is parsed as a fragment.
func PlainText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml(" ")
	doc.Find("p, div, li, h1, h2, h3").AppendHtml(" ")
	return strings.Join(strings.Fields(doc.Text()), " ")
}

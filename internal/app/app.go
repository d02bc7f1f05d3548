// Package app runs one fetch, select and publish cycle.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deusflow/hrnews/internal/config"
	"github.com/deusflow/hrnews/internal/logger"
	"github.com/deusflow/hrnews/internal/metrics"
	"github.com/deusflow/hrnews/internal/news"
	"github.com/deusflow/hrnews/internal/publish"
	"github.com/deusflow/hrnews/internal/ratelimit"
	"github.com/deusflow/hrnews/internal/relevance"
	"github.com/deusflow/hrnews/internal/retry"
	"github.com/deusflow/hrnews/internal/rss"
	"github.com/deusflow/hrnews/internal/scraper"
	"github.com/deusflow/hrnews/internal/storage"
	"github.com/deusflow/hrnews/internal/summarize"
	"github.com/deusflow/hrnews/internal/telegram"
)

// Publisher delivers one post.
type Publisher interface {
	SendMessage(ctx context.Context, text string) error
}

// Options carries collaborators that tests or the command may replace. Every
// field is optional.
type Options struct {
	// DryRun prints the selection and leaves the store and channel alone.
	DryRun bool
	Out    io.Writer

	HTTPClient *http.Client
	Publisher  Publisher
	Generator  summarize.Generator
	Metrics    *metrics.Metrics
	Now        func() time.Time
}

// Report summarises one run.
type Report struct {
	Feeds       int
	FeedErrors  int
	Fetched     int
	Stale       int
	SeenBefore  int
	Duplicates  int
	Enriched    int
	Considered  map[relevance.Verdict]int
	Selected    []relevance.Selection
	Posted      int
	PostFailed  int
	AlreadySent int
}

type runner struct {
	cfg   *config.Config
	opts  Options
	m     *metrics.Metrics
	log   *slog.Logger
	store storage.Store

	selector  *relevance.Selector
	fetcher   *rss.Fetcher
	extractor *scraper.Extractor
	deduper   *news.Deduper
	budgets   map[string]*ratelimit.Budget

	mu     sync.Mutex
	report Report
	seen   []relevance.Candidate
	picked []relevance.Selection
}

// Run executes one cycle. Feed and post failures are logged and counted;
// only set-up problems such as a broken config or store are returned.
func Run(ctx context.Context, cfg *config.Config, opts Options) (*Report, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: cfg.FetchTimeout}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Global
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	start := opts.Now()
	r := &runner{
		cfg:     cfg,
		opts:    opts,
		m:       opts.Metrics,
		log:     logger.Component("app"),
		report:  Report{Considered: make(map[relevance.Verdict]int)},
		budgets: make(map[string]*ratelimit.Budget),
	}
	defer func() { r.m.RecordRunDuration(time.Since(start)) }()

	report, err := r.run(ctx)
	for name, b := range r.budgets {
		r.m.SetBudgetStats(name, b.GetStats())
	}
	if err != nil {
		r.m.SetError(err.Error())
		return report, err
	}
	r.m.SetLastRun()
	return report, nil
}

func (r *runner) run(ctx context.Context) (*Report, error) {
	settings, err := relevance.LoadSettings(r.cfg.RelevanceConfigPath)
	if err != nil {
		return nil, err
	}
	r.log.Info("relevance settings loaded", "version", settings.Version, "region", settings.Region, "categories", settings.Catalog.Len())
	r.selector = settings.NewSelector(logger.Component("relevance"))

	sources, err := rss.LoadSources(r.cfg.FeedsConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load feeds: %w", err)
	}

	r.store, err = storage.Open(ctx, storage.Options{
		Driver:   r.cfg.StoreDriver,
		DSN:      r.cfg.StoreDSN,
		FilePath: r.cfg.CacheFilePath,
		TTL:      r.cfg.CacheTTL(),
		Log:      logger.Component("storage"),
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := r.store.Close(); err != nil {
			r.log.Error("failed to close store", "error", err)
		}
	}()

	rc := retry.Config{MaxAttempts: r.cfg.RetryAttempts, Delay: r.cfg.RetryDelay, Backoff: r.cfg.RetryBackoff}
	r.fetcher = rss.NewFetcher(r.opts.HTTPClient, r.cfg.UserAgent, rc, logger.Component("rss"))
	r.budgets[scraper.BudgetService] = ratelimit.NewBudget(map[string]int{scraper.BudgetService: r.cfg.ScrapeMaxArticles}, logger.Component("ratelimit"))
	r.extractor = scraper.NewExtractor(r.opts.HTTPClient, r.cfg.UserAgent, ratelimit.NewPacer(r.cfg.ScrapeInterval, 1), logger.Component("scraper")).
		WithBudget(r.budgets[scraper.BudgetService])
	r.deduper = news.NewDeduper(time.Duration(r.cfg.DuplicateWindow)*time.Hour, logger.Component("news"))

	r.report.Feeds = len(sources)
	r.collect(ctx, sources)

	r.report.Selected = r.selector.Merge(r.picked, r.cfg.TopK)
	r.m.AddSelected(len(r.report.Selected))
	r.log.Info("selection finished",
		"feeds", r.report.Feeds,
		"feed_errors", r.report.FeedErrors,
		"fetched", r.report.Fetched,
		"duplicates", r.report.Duplicates,
		"selected", len(r.report.Selected))

	summarizer, closeGen := r.newSummarizer(ctx)
	defer closeGen()

	if r.opts.DryRun {
		r.printSelection(ctx, summarizer)
		return &r.report, nil
	}

	failed := r.publish(ctx, summarizer)

	if err := r.store.RecordSeen(ctx, news.SeenItems(withoutURLs(r.seen, failed), r.opts.Now())); err != nil {
		r.log.Error("failed to record seen items", "error", err)
	}
	if removed, err := r.store.Cleanup(ctx, r.opts.Now().Add(-r.cfg.CacheTTL())); err != nil {
		r.log.Warn("store cleanup failed", "error", err)
	} else if removed > 0 {
		r.log.Info("store cleanup", "removed", removed)
	}

	return &r.report, nil
}

// collect fetches and selects every feed with bounded concurrency.
func (r *runner) collect(ctx context.Context, sources []rss.Source) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.cfg.FetchConcurrency, 1))

	for _, src := range sources {
		g.Go(func() error {
			feedCtx, cancel := context.WithTimeout(gctx, r.cfg.FetchTimeout)
			defer cancel()
			r.processFeed(feedCtx, src)
			return nil
		})
	}
	_ = g.Wait()
}

func (r *runner) processFeed(ctx context.Context, src rss.Source) {
	log := r.log.With("feed", src.Name)

	items, err := r.fetcher.Fetch(ctx, src)
	if err != nil {
		log.Warn("feed failed", "error", err)
		r.m.IncrementFeedErrors(src.Name)
		r.mu.Lock()
		r.report.FeedErrors++
		r.mu.Unlock()
		return
	}
	r.m.AddFetched(src.Name, len(items))

	fresh, stale := news.FilterFresh(items, r.cfg.NewsMaxAge, r.opts.Now())

	unseen, seenBefore, err := news.DropSeen(ctx, r.store, fresh)
	if err != nil {
		log.Warn("seen lookup failed, keeping all items", "error", err)
		unseen, seenBefore = fresh, 0
	}

	kept, dups := r.deduper.Filter(unseen)
	r.m.AddDuplicates(dups)

	enriched := r.extractor.Enrich(ctx, kept, r.cfg.MinBodyChars, r.cfg.ScrapeMaxArticles)

	outcome := r.selector.Run(kept, r.cfg.TopK)
	for verdict, n := range outcome.Considered {
		r.m.AddVerdict(string(verdict), n)
	}
	log.Debug("feed processed", "items", len(items), "stale", stale, "seen_before", seenBefore,
		"duplicates", dups, "enriched", enriched, "selected", len(outcome.Selected))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Fetched += len(items)
	r.report.Stale += stale
	r.report.SeenBefore += seenBefore
	r.report.Duplicates += dups
	r.report.Enriched += enriched
	for verdict, n := range outcome.Considered {
		r.report.Considered[verdict] += n
	}
	r.seen = append(r.seen, unseen...)
	r.picked = append(r.picked, outcome.Selected...)
}

// newSummarizer returns the run's summarizer and a func releasing the model
// client, if one was opened.
func (r *runner) newSummarizer(ctx context.Context) (*summarize.Service, func()) {
	closeGen := func() {}
	gen := r.opts.Generator
	if gen == nil && r.cfg.GeminiAPIKey != "" && len(r.report.Selected) > 0 {
		g, err := summarize.NewGemini(ctx, r.cfg.GeminiAPIKey, r.cfg.GeminiModel)
		if err != nil {
			r.log.Warn("gemini unavailable, using extractive summaries", "error", err)
		} else {
			gen = g
			closeGen = func() {
				if err := g.Close(); err != nil {
					r.log.Warn("failed to close gemini client", "error", err)
				}
			}
		}
	}

	var cache storage.SummaryCache
	if sc, ok := r.store.(storage.SummaryCache); ok && !r.opts.DryRun {
		cache = sc
	}

	budget := ratelimit.NewBudget(map[string]int{summarize.BudgetService: r.cfg.MaxGeminiRequests}, logger.Component("ratelimit"))
	r.budgets[summarize.BudgetService] = budget

	return summarize.NewService(summarize.Options{
		Generator: gen,
		Budget:    budget,
		Store:     cache,
		Region:    r.cfg.HashtagRegion,
		Log:       logger.Component("summarize"),
	}), closeGen
}

func (r *runner) formatPost(ctx context.Context, s *summarize.Service, sel relevance.Selection) string {
	summary := s.Summarize(ctx, sel.Candidate.Title, sel.Candidate.Body)
	return publish.Format(sel, summary.Text, publish.Options{
		MaxChars: r.cfg.MaxPostChars,
		Region:   r.cfg.HashtagRegion,
		URLChars: publish.ShortURLChars,
	})
}

// publish sends the selection and returns the URLs that failed.
func (r *runner) publish(ctx context.Context, s *summarize.Service) map[string]bool {
	failed := make(map[string]bool)

	pub := r.opts.Publisher
	if pub == nil && r.cfg.PublishEnabled {
		pub = telegram.NewClient(r.cfg.TelegramToken, r.cfg.TelegramChatID,
			telegram.WithHTTPClient(r.opts.HTTPClient),
			telegram.WithRetry(retry.Config{MaxAttempts: r.cfg.RetryAttempts, Delay: r.cfg.RetryDelay, Backoff: r.cfg.RetryBackoff}),
			telegram.WithPacer(ratelimit.NewPacer(r.cfg.PostInterval, 1)),
			telegram.WithLogger(logger.Component("telegram")),
		)
	}
	if pub == nil {
		r.log.Info("publishing disabled", "selected", len(r.report.Selected))
		return failed
	}

	for _, sel := range r.report.Selected {
		if ctx.Err() != nil {
			break
		}
		if r.cfg.MaxPostsPerRun > 0 && r.report.Posted >= r.cfg.MaxPostsPerRun {
			r.log.Info("post limit reached", "limit", r.cfg.MaxPostsPerRun)
			break
		}

		url := sel.Candidate.URL
		posted, err := r.store.IsPosted(ctx, url)
		if err != nil {
			r.log.Warn("posted lookup failed", "url", url, "error", err)
		}
		if posted {
			r.report.AlreadySent++
			continue
		}

		msg := r.formatPost(ctx, s, sel)
		if err := pub.SendMessage(ctx, msg); err != nil {
			r.log.Error("post failed", "url", url, "error", err)
			r.m.IncrementPostsFailed()
			r.report.PostFailed++
			failed[url] = true
			continue
		}
		r.m.IncrementPostsSent()
		r.report.Posted++

		err = r.store.RecordPost(ctx, storage.Post{
			URL:      url,
			Title:    sel.Candidate.Title,
			Category: sel.CategoryID,
			Source:   sel.Candidate.SourceRef,
			Score:    sel.Result.Score,
			Message:  msg,
			PostedAt: r.opts.Now(),
		})
		if err != nil {
			r.log.Error("failed to record post", "url", url, "error", err)
		}
		r.log.Info("posted", "title", sel.Candidate.Title, "category", sel.CategoryID, "score", sel.Result.Score)
	}
	return failed
}

func (r *runner) printSelection(ctx context.Context, s *summarize.Service) {
	w := r.opts.Out
	fmt.Fprintf(w, "Selected %d of %d fetched items\n", len(r.report.Selected), r.report.Fetched)
	for i, sel := range r.report.Selected {
		fmt.Fprintln(w, "---")
		fmt.Fprintf(w, "%d. [%s, score: %.0f, %s] %s\n", i+1, sel.CategoryID, sel.Result.Score, sel.Result.Sentiment, sel.Candidate.Title)
		fmt.Fprintf(w, "source: %s, published: %s\n", sel.Candidate.SourceRef, sel.Candidate.PublishedAt.Format(time.RFC3339))
		fmt.Fprintf(w, "keywords: %s\n", strings.Join(sel.Result.MatchedKeywords, ", "))
		fmt.Fprintf(w, "positive: %s\n", strings.Join(sel.Result.PositiveMatches, ", "))
		fmt.Fprintln(w)
		fmt.Fprintln(w, r.formatPost(ctx, s, sel))
	}
}

func withoutURLs(items []relevance.Candidate, drop map[string]bool) []relevance.Candidate {
	if len(drop) == 0 {
		return items
	}
	out := make([]relevance.Candidate, 0, len(items))
	for _, c := range items {
		if !drop[c.URL] {
			out = append(out, c)
		}
	}
	return out
}

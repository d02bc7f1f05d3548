package summarize

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/deusflow/hrnews/internal/cache"
	"github.com/deusflow/hrnews/internal/ratelimit"
	"github.com/deusflow/hrnews/internal/storage"
)

const (
	// BudgetService is the ratelimit.Budget key charged per model call.
	BudgetService = "gemini"

	ProviderGemini     = "gemini"
	ProviderExtractive = "extractive"

	memoTTL = 24 * time.Hour
)

// Summary is a blurb and where it came from.
type Summary struct {
	Text     string
	Provider string
}

// Options configures a Service. Every field is optional.
type Options struct {
	Generator    Generator // nil keeps the service extractive
	Budget       *ratelimit.Budget
	Store        storage.SummaryCache
	Region       string
	MaxChars     int
	MaxSentences int
	Log          *slog.Logger
}

// Service asks the model for a summary when it can and falls back to the
// extractive one otherwise. Model answers are cached in memory and, when a
// store is given, across runs.
type Service struct {
	gen          Generator
	budget       *ratelimit.Budget
	store        storage.SummaryCache
	memo         *cache.Cache[string]
	region       string
	maxChars     int
	maxSentences int
	log          *slog.Logger
}

func NewService(opts Options) *Service {
	s := &Service{
		gen:          opts.Generator,
		budget:       opts.Budget,
		store:        opts.Store,
		memo:         cache.New[string](),
		region:       opts.Region,
		maxChars:     opts.MaxChars,
		maxSentences: opts.MaxSentences,
		log:          opts.Log,
	}
	if s.region == "" {
		s.region = "Haryana"
	}
	if s.maxChars <= 0 {
		s.maxChars = 220
	}
	if s.maxSentences <= 0 {
		s.maxSentences = 2
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Summarize never fails: any model problem yields the extractive summary.
func (s *Service) Summarize(ctx context.Context, title, body string) Summary {
	fallback := Summary{Text: Extract(body, s.maxSentences), Provider: ProviderExtractive}
	if s.gen == nil || body == "" {
		return fallback
	}

	key := cache.Key(title, body)
	if text, ok := s.memo.Get(key); ok {
		s.recordHit()
		return Summary{Text: text, Provider: ProviderGemini}
	}
	if s.store != nil {
		text, ok, err := s.store.GetSummary(ctx, key)
		if err != nil {
			s.log.Warn("summary cache lookup failed", "error", err)
		} else if ok {
			s.memo.Set(key, text, memoTTL)
			s.recordHit()
			return Summary{Text: text, Provider: ProviderGemini}
		}
	}

	if s.budget != nil {
		if err := s.budget.Use(BudgetService); err != nil {
			if errors.Is(err, ratelimit.ErrExhausted) {
				s.log.Debug("model budget spent, using extractive summary", "title", title)
			}
			return fallback
		}
	}

	raw, err := s.gen.Generate(ctx, buildPrompt(s.region, title, body, s.maxChars))
	if err != nil {
		s.log.Warn("model summary failed, using extractive summary", "title", title, "error", err)
		return fallback
	}
	text, err := parseSummary(raw)
	if err != nil {
		s.log.Warn("model summary unusable, using extractive summary", "title", title, "error", err)
		return fallback
	}

	s.memo.Set(key, text, memoTTL)
	if s.store != nil {
		if err := s.store.PutSummary(ctx, key, text, ProviderGemini); err != nil {
			s.log.Warn("failed to cache summary", "error", err)
		}
	}
	return Summary{Text: text, Provider: ProviderGemini}
}

func (s *Service) recordHit() {
	if s.budget != nil {
		s.budget.RecordCacheHit()
	}
}

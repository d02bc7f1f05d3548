package relevance

import (
	"log/slog"
	"strings"
)

// Scorer rates a text against one category profile.
type Scorer struct {
	catalog *Catalog
	safety  *Safety
	weights Weights
	log     *slog.Logger
}

// NewScorer wires a scorer. A nil logger falls back to slog.Default.
func NewScorer(catalog *Catalog, safety *Safety, weights Weights, log *slog.Logger) *Scorer {
	if log == nil {
		log = slog.Default()
	}
	return &Scorer{catalog: catalog, safety: safety, weights: weights, log: log}
}

// Weights returns the calibration in use.
func (s *Scorer) Weights() Weights { return s.weights }

// Score rates text for categoryID. An unknown category yields a neutral zero
// result; callers iterate a fixed set, so that is logged rather than returned.
func (s *Scorer) Score(text, categoryID string) Result {
	cp, ok := s.catalog.compiled(categoryID)
	if !ok {
		s.log.Warn("score requested for unknown category", "category", categoryID)
		return Result{Sentiment: Neutral}
	}

	w := s.weights
	if s.safety != nil && s.safety.ContainsUnsafeContent(text) {
		return Result{Score: w.SafetyVeto, Sentiment: Negative}
	}

	lower := strings.ToLower(text)
	matched := cp.keywords.find(lower)

	// Without a category keyword the item is off-topic: only negative framing
	// counts, upbeat wording is ignored.
	if len(matched) == 0 {
		if neg := cp.negatives.find(lower); len(neg) > 0 {
			return Result{Score: w.OffTopicNegative, NegativeMatches: neg, Sentiment: Negative}
		}
		return Result{Sentiment: Neutral}
	}

	res := Result{
		MatchedKeywords: matched,
		PositiveMatches: cp.positives.find(lower),
		NegativeMatches: cp.negatives.find(lower),
	}
	res.KeywordScore = w.Keyword * float64(len(matched))
	res.SentimentScore = w.PositiveIndicator*float64(len(res.PositiveMatches)) +
		w.NegativeIndicator*float64(len(res.NegativeMatches))

	switch {
	case res.SentimentScore > w.PositiveThreshold:
		res.Sentiment = Positive
		res.Score = res.KeywordScore + w.PositiveMultiplier*res.SentimentScore + w.PositiveOffset
	case res.SentimentScore < w.NegativeThreshold:
		res.Sentiment = Negative
		res.Score = res.KeywordScore + w.NegativeMultiplier*res.SentimentScore + w.NegativeOffset
	default:
		res.Sentiment = Neutral
		res.Score = res.KeywordScore + w.NeutralMultiplier*res.SentimentScore + w.NeutralOffset
	}

	res.Score -= w.NegativeMatchPenalty * float64(len(res.NegativeMatches))
	if len(res.PositiveMatches) >= w.RichPositiveCount {
		res.Score += w.RichPositiveBonus
	}
	return res
}

// Package relevance decides which regional news items are worth keeping.
//
// It combines category keyword matching, indicator-based sentiment, a
// violent-content veto and location-centrality checks, then ranks the
// survivors of a batch. Everything here is pure computation over in-memory
// strings; fetching, persistence and publishing live elsewhere.
package relevance

import "time"

// Sentiment is the discrete label attached to a score.
type Sentiment string

const (
	Positive Sentiment = "positive"
	Negative Sentiment = "negative"
	Neutral  Sentiment = "neutral"
)

// Candidate is one scraped feed entry awaiting a verdict.
type Candidate struct {
	Title       string
	Body        string // markup already stripped
	PublishedAt time.Time
	SourceRef   string
	URL         string
}

// Text is the title and body joined for scoring.
func (c Candidate) Text() string { return composeText(c.Title, c.Body) }

// Result is the outcome of scoring one text against one category.
type Result struct {
	Score           float64
	KeywordScore    float64
	SentimentScore  float64
	MatchedKeywords []string
	PositiveMatches []string
	NegativeMatches []string
	Sentiment       Sentiment
}

// Selection is a candidate that survived the pipeline, with the category run
// that won it a place.
type Selection struct {
	Candidate  Candidate
	CategoryID string
	Result     Result
}

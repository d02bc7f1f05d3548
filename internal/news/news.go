// Package news prepares fetched candidates for scoring: it drops stale
// entries, repeats within a run and stories already seen in earlier runs.
package news

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/deusflow/hrnews/internal/relevance"
	"github.com/deusflow/hrnews/internal/storage"
)

// DupReason says which key caught a repeat.
type DupReason string

const (
	Unique     DupReason = ""
	DupLink    DupReason = "link"
	DupContent DupReason = "content"
	DupSimilar DupReason = "similar"
)

const (
	defaultWindow = 6 * time.Hour
	maxKeyWords   = 6
)

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "for": true, "of": true,
	"in": true, "on": true, "to": true, "at": true, "by": true, "with": true,
	"from": true, "is": true, "are": true, "was": true, "will": true, "be": true,
	"as": true, "its": true, "has": true, "new": true,
}

// Deduper remembers link, content and similarity keys of accepted items. It
// is shared by the feed workers of one run.
type Deduper struct {
	mu      sync.Mutex
	window  time.Duration
	links   map[string]struct{}
	content map[string]struct{}
	similar map[string]struct{}
	log     *slog.Logger
}

// NewDeduper groups similar titles from the same host within window. A
// non-positive window uses six hours.
func NewDeduper(window time.Duration, log *slog.Logger) *Deduper {
	if window <= 0 {
		window = defaultWindow
	}
	if log == nil {
		log = slog.Default()
	}
	return &Deduper{
		window:  window,
		links:   make(map[string]struct{}),
		content: make(map[string]struct{}),
		similar: make(map[string]struct{}),
		log:     log,
	}
}

// Add records c and reports Unique, or the reason it repeats an earlier item.
// Nothing is recorded for a repeat.
func (d *Deduper) Add(c relevance.Candidate) DupReason {
	link := strings.TrimSpace(c.URL)
	contentKey := makeNewsKey(c.Title, c.Body)
	similarKey := makeSimilarityKey(c, d.window)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, dup := d.links[link]; dup && link != "" {
		return DupLink
	}
	if _, dup := d.content[contentKey]; dup {
		return DupContent
	}
	if _, dup := d.similar[similarKey]; dup {
		return DupSimilar
	}

	if link != "" {
		d.links[link] = struct{}{}
	}
	d.content[contentKey] = struct{}{}
	d.similar[similarKey] = struct{}{}
	return Unique
}

// Filter keeps the first of every group of repeats, in input order.
func (d *Deduper) Filter(items []relevance.Candidate) ([]relevance.Candidate, int) {
	kept := make([]relevance.Candidate, 0, len(items))
	dropped := 0
	for _, c := range items {
		if reason := d.Add(c); reason != Unique {
			d.log.Debug("duplicate skipped", "reason", string(reason), "title", c.Title, "source", c.SourceRef)
			dropped++
			continue
		}
		kept = append(kept, c)
	}
	return kept, dropped
}

// FilterFresh drops items published more than maxAge before now. A
// non-positive maxAge keeps everything.
func FilterFresh(items []relevance.Candidate, maxAge time.Duration, now time.Time) ([]relevance.Candidate, int) {
	if maxAge <= 0 {
		return items, 0
	}
	cutoff := now.Add(-maxAge)
	kept := make([]relevance.Candidate, 0, len(items))
	for _, c := range items {
		if c.PublishedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, c)
	}
	return kept, len(items) - len(kept)
}

// DropSeen removes items whose URL the store recorded in an earlier run.
func DropSeen(ctx context.Context, store storage.Store, items []relevance.Candidate) ([]relevance.Candidate, int, error) {
	if len(items) == 0 {
		return items, 0, nil
	}
	urls := make([]string, len(items))
	for i, c := range items {
		urls[i] = c.URL
	}

	seen, err := store.SeenURLs(ctx, urls)
	if err != nil {
		return nil, 0, fmt.Errorf("check seen urls: %w", err)
	}

	kept := make([]relevance.Candidate, 0, len(items))
	for _, c := range items {
		if seen[c.URL] {
			continue
		}
		kept = append(kept, c)
	}
	return kept, len(items) - len(kept), nil
}

// SeenItems converts candidates into store records stamped with now.
func SeenItems(items []relevance.Candidate, now time.Time) []storage.SeenItem {
	out := make([]storage.SeenItem, 0, len(items))
	for _, c := range items {
		if c.URL == "" {
			continue
		}
		out = append(out, storage.SeenItem{
			URL:    c.URL,
			Hash:   storage.GenerateNewsHash(c.Title, c.URL),
			Title:  c.Title,
			Source: c.SourceRef,
			SeenAt: now,
		})
	}
	return out
}

func makeNewsKey(title, body string) string {
	h := sha1.New()
	h.Write([]byte(strings.ToLower(title + body)))
	return hex.EncodeToString(h.Sum(nil))
}

// makeSimilarityKey is host|first significant words|window start. Titles
// reworded after the first few words still collide, while the same words
// from another outlet or another day do not.
func makeSimilarityKey(c relevance.Candidate, window time.Duration) string {
	words := strings.Fields(normalize(c.Title + " " + c.Body))

	significant := make([]string, 0, maxKeyWords)
	for _, w := range words {
		if len(significant) >= maxKeyWords {
			break
		}
		if stopWords[w] || len([]rune(w)) <= 2 {
			continue
		}
		significant = append(significant, w)
	}
	if len(significant) == 0 {
		for i := 0; i < len(words) && i < maxKeyWords; i++ {
			significant = append(significant, words[i])
		}
	}

	t := c.PublishedAt
	if t.IsZero() {
		t = time.Now()
	}
	windowStart := t.Truncate(window).Unix()

	return fmt.Sprintf("%s|%s|%d", host(c.URL), strings.Join(significant, "_"), windowStart)
}

// normalize lowercases s and turns everything but letters and digits into
// single spaces.
func normalize(s string) string {
	b := make([]rune, 0, len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsNumber(r) {
			b = append(b, r)
		} else {
			b = append(b, ' ')
		}
	}
	return strings.Join(strings.Fields(string(b)), " ")
}

func host(link string) string {
	if link == "" {
		return "unknown"
	}
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return strings.ToLower(u.Host)
}

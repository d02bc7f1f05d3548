package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/hrnews/internal/ratelimit"
	"github.com/deusflow/hrnews/internal/relevance"
)

// ArticleContent is full article content
type ArticleContent struct {
	Title   string
	Content string
	URL     string
}

// siteRule lists the paragraph selectors that work for one publisher.
type siteRule struct {
	host      string
	selectors []string
	minChars  int
}

var siteRules = []siteRule{
	{
		host: "tribuneindia.com",
		selectors: []string{
			".story-desc p",
			"#story-detail p",
			".article-content p",
			"article p",
		},
		minChars: 10,
	},
	{
		host: "hindustantimes.com",
		selectors: []string{
			".storyDetails p",
			".detail p",
			".storyParagraph",
			"article p",
		},
		minChars: 10,
	},
	{
		host: "indianexpress.com",
		selectors: []string{
			"#pcl-full-content p",
			".full-details p",
			".story_details p",
			"article p",
		},
		minChars: 10,
	},
	{
		host: "timesofindia.indiatimes.com",
		selectors: []string{
			"[data-articlebody] p",
			"._s30J",
			".Normal",
			"article p",
		},
		minChars: 10,
	},
}

var genericRule = siteRule{
	selectors: []string{
		"article p",
		".article-content p",
		".post-content p",
		".entry-content p",
		".content p",
		"main p",
		"#content p",
		"p",
	},
	minChars: 20,
}

// Extractor downloads article pages and pulls out their body text.
type Extractor struct {
	client    *http.Client
	userAgent string
	pacer     *ratelimit.Pacer
	budget    *ratelimit.Budget
	log       *slog.Logger
}

// BudgetService is the ratelimit.Budget key charged per page download.
const BudgetService = "scrape"

// NewExtractor builds an extractor. pacer may be nil.
func NewExtractor(client *http.Client, userAgent string, pacer *ratelimit.Pacer, log *slog.Logger) *Extractor {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{client: client, userAgent: userAgent, pacer: pacer, log: log}
}

// WithBudget shares one page allowance between extractors working on
// different feeds of the same run.
func (e *Extractor) WithBudget(b *ratelimit.Budget) *Extractor {
	e.budget = b
	return e
}

// ExtractFullArticle gets full text of article by URL
func (e *Extractor) ExtractFullArticle(ctx context.Context, url string) (*ArticleContent, error) {
	if e.pacer != nil {
		if err := e.pacer.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}

	content := extractContentBySource(doc, url)
	if content == "" {
		return nil, fmt.Errorf("no article content at %s", url)
	}

	return &ArticleContent{
		Title:   extractTitle(doc),
		Content: content,
		URL:     url,
	}, nil
}

// Enrich replaces short feed bodies with the full article text, at most
// maxArticles pages per call. It returns how many bodies were replaced.
func (e *Extractor) Enrich(ctx context.Context, items []relevance.Candidate, minChars, maxArticles int) int {
	fetched, replaced := 0, 0
	for i := range items {
		if ctx.Err() != nil || fetched >= maxArticles {
			break
		}
		if utf8.RuneCountInString(items[i].Body) >= minChars {
			continue
		}

		if e.budget != nil && e.budget.Use(BudgetService) != nil {
			break
		}
		fetched++
		article, err := e.ExtractFullArticle(ctx, items[i].URL)
		if err != nil {
			e.log.Warn("full article unavailable", "url", items[i].URL, "error", err)
			continue
		}
		if utf8.RuneCountInString(article.Content) <= utf8.RuneCountInString(items[i].Body) {
			continue
		}
		items[i].Body = article.Content
		replaced++
		e.log.Debug("full article extracted", "url", items[i].URL, "chars", len(article.Content))
	}
	return replaced
}

func ruleFor(url string) siteRule {
	for _, r := range siteRules {
		if strings.Contains(url, r.host) {
			return r
		}
	}
	return genericRule
}

// extractContentBySource gets content by news site
func extractContentBySource(doc *goquery.Document, url string) string {
	doc.Find("script, style, noscript, figure, aside").Remove()

	rule := ruleFor(url)
	content := collectParagraphs(doc, rule)
	if content == "" && rule.host != "" {
		content = collectParagraphs(doc, genericRule)
	}
	return cleanContent(content)
}

// collectParagraphs uses the first selector that yields any text.
func collectParagraphs(doc *goquery.Document, rule siteRule) string {
	var paragraphs []string
	for _, selector := range rule.selectors {
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) > rule.minChars {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) > 0 {
			break
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

// extractTitle gets article title
func extractTitle(doc *goquery.Document) string {
	selectors := []string{
		"h1",
		".article-title",
		".headline",
		".entry-title",
		"title",
	}

	for _, selector := range selectors {
		title := strings.TrimSpace(doc.Find(selector).First().Text())
		if title != "" {
			return title
		}
	}

	return ""
}

// Inline fragments removed wherever they appear.
var junkPhrases = []string{
	"Story continues below this ad",
	"ADVERTISEMENT",
	"Advertisement",
}

// Lines containing any of these are dropped whole.
var junkIndicators = []string{
	"cookie", "subscribe", "sign in", "log in", "newsletter",
	"follow us", "download the", "click here", "copyright",
	"all rights reserved", "trending", "share this",
	"also read", "read more",
}

// cleanContent drops boilerplate lines and keeps whole paragraphs up to a
// length budget.
func cleanContent(content string) string {
	if content == "" {
		return ""
	}

	for _, phrase := range junkPhrases {
		content = strings.ReplaceAll(content, phrase, "")
	}

	lines := strings.Split(content, "\n")
	var cleanLines []string
	var currentParagraph strings.Builder

	flush := func() {
		paragraph := strings.TrimSpace(currentParagraph.String())
		if len(paragraph) > 30 {
			cleanLines = append(cleanLines, paragraph)
		}
		currentParagraph.Reset()
	}

	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")

		// Short lines end the paragraph in progress.
		if len(line) < 8 {
			if currentParagraph.Len() > 0 {
				flush()
			}
			continue
		}

		lower := strings.ToLower(line)
		isJunk := false
		for _, indicator := range junkIndicators {
			if strings.Contains(lower, indicator) {
				isJunk = true
				break
			}
		}
		if isJunk {
			continue
		}

		if currentParagraph.Len() > 0 {
			currentParagraph.WriteString(" ")
		}
		currentParagraph.WriteString(line)

		if strings.HasSuffix(line, ".") || strings.HasSuffix(line, "!") || strings.HasSuffix(line, "?") {
			flush()
		}
	}
	if currentParagraph.Len() > 0 {
		flush()
	}

	resultText := strings.Join(cleanLines, "\n\n")

	// Limit length, keep full paragraphs
	if len(resultText) > 1800 {
		var selected []string
		total := 0
		for _, paragraph := range cleanLines {
			if total+len(paragraph) >= 1600 {
				break
			}
			selected = append(selected, paragraph)
			total += len(paragraph) + 2
		}
		if len(selected) > 0 {
			resultText = strings.Join(selected, "\n\n")
		}
	}

	return resultText
}

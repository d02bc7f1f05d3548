// Package publish turns selections into post text.
package publish

import (
	"strings"
	"unicode/utf8"

	"github.com/deusflow/hrnews/internal/relevance"
)

const (
	// ShortURLChars is how many characters a link costs on platforms that
	// wrap every URL in a fixed-length short link.
	ShortURLChars = 23

	separator       = "\n\n"
	minSummaryChars = 40
)

type Options struct {
	// MaxChars caps the post length; 0 means no cap.
	MaxChars int
	// Region names the region hashtag family, e.g. "Haryana".
	Region string
	// URLChars is the cost of the link; 0 counts its real length.
	URLChars   int
	NoHashtags bool
}

// topicTags maps matched keywords to a topic suffix. The first rule whose
// term occurs in any matched keyword wins.
var topicTags = []struct {
	suffix string
	terms  []string
}{
	{"Tourism", []string{"tourism", "heritage", "tourist", "monument", "temple"}},
	{"Infrastructure", []string{"infrastructure", "metro", "highway", "road", "bridge", "construction"}},
	{"Business", []string{"business", "investment", "startup", "economy", "company"}},
	{"Education", []string{"education", "school", "university", "college"}},
	{"Agriculture", []string{"agriculture", "farmer", "crop"}},
	{"Sports", []string{"sports", "athlete", "medal"}},
	{"Environment", []string{"environment", "green", "tree"}},
	{"Governance", []string{"governance", "government", "policy"}},
}

// Hashtags returns the region tag followed by one topic tag.
func Hashtags(matchedKeywords []string, region string) []string {
	tag := strings.Join(strings.Fields(region), "")
	if tag == "" {
		return nil
	}

	lowered := make([]string, len(matchedKeywords))
	for i, kw := range matchedKeywords {
		lowered[i] = strings.ToLower(kw)
	}

	for _, rule := range topicTags {
		for _, kw := range lowered {
			for _, term := range rule.terms {
				if strings.Contains(kw, term) {
					return []string{"#" + tag, "#" + tag + rule.suffix}
				}
			}
		}
	}
	return []string{"#" + tag, "#" + tag + "News"}
}

// Format composes title, summary, hashtags and link, separated by blank
// lines. Under a length cap the link and hashtags are kept whole, the title
// is cut at a word boundary and the summary is shortened or left out.
func Format(sel relevance.Selection, summary string, opts Options) string {
	title := strings.Join(strings.Fields(sel.Candidate.Title), " ")
	link := strings.TrimSpace(sel.Candidate.URL)
	summary = strings.Join(strings.Fields(summary), " ")

	var tags string
	if !opts.NoHashtags {
		tags = strings.Join(Hashtags(sel.Result.MatchedKeywords, opts.Region), " ")
	}

	if opts.MaxChars > 0 {
		available := opts.MaxChars
		if link != "" {
			available -= linkCost(link, opts.URLChars) + len(separator)
		}
		if tags != "" {
			available -= utf8.RuneCountInString(tags) + len(separator)
		}

		title = truncateWords(title, available)
		remaining := available - utf8.RuneCountInString(title) - len(separator)
		if remaining < minSummaryChars {
			summary = ""
		} else {
			summary = truncateWords(summary, remaining)
		}
	}

	parts := make([]string, 0, 4)
	for _, p := range []string{title, summary, tags, link} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, separator)
}

// Length is the post length as a platform that shortens links would count it.
func Length(post, link string, urlChars int) int {
	n := utf8.RuneCountInString(post)
	if link != "" && urlChars > 0 && strings.Contains(post, link) {
		n += urlChars - utf8.RuneCountInString(link)
	}
	return n
}

func linkCost(link string, urlChars int) int {
	if urlChars > 0 {
		return urlChars
	}
	return utf8.RuneCountInString(link)
}

func truncateWords(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	if n <= 3 {
		if n <= 0 {
			return ""
		}
		return string([]rune(s)[:n])
	}

	cut := string([]rune(s)[:n-3])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:-") + "..."
}

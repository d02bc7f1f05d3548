// Package summarize produces the short blurb published under each headline.
package summarize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// Sentences that report progress read better than scene-setting ones.
var progressWords = []string{
	"inaugurat", "develop", "improve", "boost", "attract", "increase",
	"record", "success", "achieve", "milestone", "expand", "grow",
	"invest", "create", "approve", "complete", "benefit", "enhance",
	"modern", "advanced", "quality",
}

const (
	scanSentences   = 10
	minSentenceLen  = 20
	fillSentenceLen = 30
	fallbackRunes   = 160
)

// Extract builds a summary of up to maxSentences sentences from content.
// Sentences with figures or progress words come first; the rest of the quota
// is filled with the next long sentences in reading order.
func Extract(content string, maxSentences int) string {
	c := strings.Join(strings.Fields(content), " ")
	if c == "" {
		return ""
	}
	if maxSentences <= 0 {
		maxSentences = 3
	}

	var sentences []string
	for _, s := range sentenceSplit.Split(c, -1) {
		s = strings.TrimSpace(s)
		if len(s) > minSentenceLen {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return truncateRunes(c, fallbackRunes)
	}

	picked := make([]string, 0, maxSentences)
	used := make(map[int]bool)
	for i, s := range sentences {
		if i >= scanSentences || len(picked) >= maxSentences {
			break
		}
		if hasDigit(s) || hasProgressWord(s) {
			picked = append(picked, s)
			used[i] = true
		}
	}
	for i, s := range sentences {
		if len(picked) >= maxSentences {
			break
		}
		if !used[i] && len(s) > fillSentenceLen {
			picked = append(picked, s)
			used[i] = true
		}
	}
	if len(picked) == 0 {
		return truncateRunes(c, fallbackRunes)
	}

	return strings.Join(picked, ". ") + "."
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func hasProgressWord(s string) bool {
	lower := strings.ToLower(s)
	for _, w := range progressWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

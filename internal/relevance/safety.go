package relevance

import (
	"regexp"
	"strings"
)

const (
	// safetyLeadChars is how far into the text body hits are corroborated.
	safetyLeadChars = 300
	// safetyBodyHits is the number of distinct terms needed outside the title.
	safetyBodyHits = 2
)

// Safety vetoes violent and crime stories regardless of any other signal.
type Safety struct {
	terms    []string
	patterns []*regexp.Regexp
}

// NewSafety compiles word-start patterns for each term. A term matches at the
// start of a word, so "kill" catches "killed" and leaves "skill" alone.
func NewSafety(terms []string) *Safety {
	s := &Safety{}
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		s.terms = append(s.terms, t)
		s.patterns = append(s.patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(t)))
	}
	return s
}

// Terms returns the configured vocabulary.
func (s *Safety) Terms() []string { return append([]string(nil), s.terms...) }

// ContainsUnsafeContent reports whether text must be suppressed. One hit in
// the title is enough; the body needs two distinct terms near the top.
func (s *Safety) ContainsUnsafeContent(text string) bool {
	lower := strings.ToLower(text)
	if s.distinctHits(titleOf(lower), 1) >= 1 {
		return true
	}
	return s.distinctHits(leadingWindow(lower, safetyLeadChars), safetyBodyHits) >= safetyBodyHits
}

// distinctHits counts matching terms in text, stopping once enough is reached.
func (s *Safety) distinctHits(text string, enough int) int {
	if text == "" {
		return 0
	}
	hits := 0
	for _, re := range s.patterns {
		if re.MatchString(text) {
			hits++
			if hits >= enough {
				break
			}
		}
	}
	return hits
}

package relevance

import (
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// phraseSet finds configured phrases inside lowercased text in one pass.
// Results keep configuration order, and a phrase listed twice is reported
// twice, matching a plain loop over the list.
type phraseSet struct {
	phrases   []string // as configured
	uniqueIdx [][]int  // dictionary index -> positions in phrases
	matcher   *ahocorasick.Matcher
}

func newPhraseSet(phrases []string) phraseSet {
	ps := phraseSet{phrases: append([]string(nil), phrases...)}

	seen := make(map[string]int, len(phrases))
	dict := make([]string, 0, len(phrases))
	for pos, p := range phrases {
		norm := strings.ToLower(strings.TrimSpace(p))
		if norm == "" {
			continue
		}
		idx, ok := seen[norm]
		if !ok {
			idx = len(dict)
			seen[norm] = idx
			dict = append(dict, norm)
			ps.uniqueIdx = append(ps.uniqueIdx, nil)
		}
		ps.uniqueIdx[idx] = append(ps.uniqueIdx[idx], pos)
	}
	if len(dict) > 0 {
		ps.matcher = ahocorasick.NewStringMatcher(dict)
	}
	return ps
}

// find returns every configured phrase that occurs in lower.
// MatchThreadSafe keeps the shared automaton usable from many workers.
func (ps phraseSet) find(lower string) []string {
	if ps.matcher == nil || lower == "" {
		return nil
	}
	hits := ps.matcher.MatchThreadSafe([]byte(lower))
	if len(hits) == 0 {
		return nil
	}

	matched := make([]bool, len(ps.phrases))
	for _, h := range hits {
		if h < 0 || h >= len(ps.uniqueIdx) {
			continue
		}
		for _, pos := range ps.uniqueIdx[h] {
			matched[pos] = true
		}
	}

	out := make([]string, 0, len(hits))
	for pos, ok := range matched {
		if ok {
			out = append(out, ps.phrases[pos])
		}
	}
	return out
}

// contains reports whether any phrase occurs in lower.
func (ps phraseSet) contains(lower string) bool {
	if ps.matcher == nil || lower == "" {
		return false
	}
	return len(ps.matcher.MatchThreadSafe([]byte(lower))) > 0
}

func (ps phraseSet) len() int { return len(ps.phrases) }

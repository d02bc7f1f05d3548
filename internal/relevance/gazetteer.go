package relevance

import "strings"

// Window sizes used by the centrality check.
const primaryTopicLeadChars = 200

// Gazetteer is the fixed list of place names that define the region.
type Gazetteer struct {
	places phraseSet
}

// NewGazetteer compiles the place list. Matching is case-insensitive.
func NewGazetteer(places []string) *Gazetteer {
	return &Gazetteer{places: newPhraseSet(places)}
}

// Places returns the configured place names.
func (g *Gazetteer) Places() []string { return append([]string(nil), g.places.phrases...) }

// IsRegionRelevant reports whether any place name occurs in text.
func (g *Gazetteer) IsRegionRelevant(text string) bool {
	return g.places.contains(strings.ToLower(text))
}

// IsPrimaryTopic reports whether the region is what the story is about rather
// than a passing mention: a place in the title, a place repeated in the body,
// or a place in the body's lead.
func (g *Gazetteer) IsPrimaryTopic(title, body string) bool {
	if g.places.contains(strings.ToLower(title)) {
		return true
	}

	lower := strings.ToLower(body)
	if g.places.contains(leadingWindow(lower, primaryTopicLeadChars)) {
		return true
	}
	for _, place := range g.places.find(lower) {
		if strings.Count(lower, strings.ToLower(strings.TrimSpace(place))) > 1 {
			return true
		}
	}
	return false
}

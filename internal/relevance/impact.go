package relevance

import (
	"fmt"
	"regexp"
	"strings"
)

// ImpactSignal filters out items that are upbeat but say nothing concrete.
type ImpactSignal struct {
	terms      phraseSet
	quantities []*regexp.Regexp
}

// NewImpactSignal compiles the vocabulary and the numeric patterns. Patterns
// run against lowercased text.
func NewImpactSignal(terms, quantityPatterns []string) (*ImpactSignal, error) {
	is := &ImpactSignal{terms: newPhraseSet(terms)}
	for _, p := range quantityPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("quantity pattern %q: %w", p, err)
		}
		is.quantities = append(is.quantities, re)
	}
	return is, nil
}

// HasHighImpact reports whether text carries a concrete signal: a curated
// term or a quantity such as "Rs 500 crore" or "1,200 jobs".
func (is *ImpactSignal) HasHighImpact(text string) bool {
	lower := strings.ToLower(text)
	if is.terms.contains(lower) {
		return true
	}
	for _, re := range is.quantities {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

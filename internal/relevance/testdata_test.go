package relevance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// compactConfig is a tiny catalog whose numbers are easy to follow by hand.
const compactConfig = `
version: 1
region: Testland
selection:
  default_k: 2
  min_score: 50
  min_positive_matches: 2
  strong_score: 60
gazetteer: [Hisar, Rohtak]
unsafe_terms: [kill, murder, bomb]
high_impact:
  terms: [crore, jobs]
  quantity_patterns: ['\b\d+\s*km\b']
categories:
  - id: roads
    name: Roads
    keywords: [road, highway, bridge]
    positive_indicators: [open, new, fast, smooth, wide]
    negative_indicators: [delay, crack]
  - id: parks
    name: Parks
    keywords: [park, garden]
    positive_indicators: [green, new]
    negative_indicators: [litter]
`

func compactSettings(t *testing.T) *Settings {
	t.Helper()
	s, err := ParseSettings([]byte(compactConfig))
	require.NoError(t, err)
	return s
}

func defaultSettings(t *testing.T) *Settings {
	t.Helper()
	s, err := DefaultSettings()
	require.NoError(t, err)
	return s
}

package relevance

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func candidate(title, body string, age time.Duration) Candidate {
	return Candidate{
		Title:       title,
		Body:        body,
		PublishedAt: baseTime.Add(-age),
		SourceRef:   "test",
		URL:         "https://example.com/" + strings.ReplaceAll(strings.ToLower(title), " ", "-"),
	}
}

// Fixtures for the compact catalog.
var (
	openedHighway = candidate("New highway opens in Hisar",
		"The new highway and bridge near Hisar open with Rs 200 crore funding. Smooth and fast travel.", time.Hour)
	delayedHighway = candidate("New highway opens in Hisar",
		"The new wide highway near Hisar opens fast and smooth with Rs 200 crore, despite a delay.", time.Hour)
	newSigns = candidate("Hisar road gets new signs",
		"A new sign board on the road in Hisar covers a 5 km stretch.", time.Hour)
	bridgeLights = candidate("Hisar highway bridge gets new lights",
		"New lights on the highway bridge near Hisar cost Rs 2 crore.", time.Hour)
	smallHighway = candidate("New highway opens in Hisar",
		"The new highway and bridge near Hisar open. Smooth and fast travel.", time.Hour)
	puneHighway = candidate("New highway opens in Pune",
		"The new highway and bridge near Pune open with Rs 200 crore funding. Smooth and fast travel.", time.Hour)
	passingMention = candidate("New highway opens",
		"The new highway and bridge open with Rs 200 crore funding. Smooth and fast travel. "+
			strings.Repeat("Traffic police expect fewer jams. ", 6)+
			"Officials from Rohtak attended.", time.Hour)
	highwayKilling = candidate("Man killed on Hisar highway",
		"Police said the highway was busy.", time.Hour)
	weather = candidate("Hisar weather update", "Clear skies expected.", time.Hour)
)

func TestSelector_Evaluate(t *testing.T) {
	selector := compactSettings(t).NewSelector(nil)

	tests := []struct {
		name     string
		in       Candidate
		verdict  Verdict
		category string
		score    float64
	}{
		{"accepted", openedHighway, Accepted, "roads", 161},
		{"strong score with one positive", bridgeLights, Accepted, "roads", 64},
		{"negative indicator in winning run", delayedHighway, RejectNegative, "", 0},
		{"weak score", newSigns, RejectWeak, "", 0},
		{"no impact signal", smallHighway, RejectLowImpact, "", 0},
		{"outside region", puneHighway, RejectOffRegion, "", 0},
		{"region only mentioned in passing", passingMention, RejectIncidental, "", 0},
		{"violent title", highwayKilling, RejectUnsafe, "", 0},
		{"no positive category", weather, RejectNotPositive, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, verdict := selector.Evaluate(tt.in)

			assert.Equal(t, tt.verdict, verdict)
			if tt.verdict != Accepted {
				assert.Equal(t, Selection{}, sel)
				return
			}
			assert.Equal(t, tt.category, sel.CategoryID)
			assert.Equal(t, tt.score, sel.Result.Score)
			assert.Equal(t, tt.in, sel.Candidate)
		})
	}
}

func TestSelector_Run(t *testing.T) {
	selector := compactSettings(t).NewSelector(nil)
	batch := []Candidate{
		weather, bridgeLights, delayedHighway, newSigns, openedHighway,
		smallHighway, puneHighway, passingMention, highwayKilling,
	}

	out := selector.Run(batch, 0)

	require.Len(t, out.Selected, 2)
	assert.Equal(t, openedHighway.URL, out.Selected[0].Candidate.URL)
	assert.Equal(t, bridgeLights.URL, out.Selected[1].Candidate.URL)
	assert.Equal(t, map[Verdict]int{
		Accepted:          2,
		RejectNegative:    1,
		RejectWeak:        1,
		RejectLowImpact:   1,
		RejectOffRegion:   1,
		RejectIncidental:  1,
		RejectUnsafe:      1,
		RejectNotPositive: 1,
	}, out.Considered)

	for _, sel := range out.Selected {
		assert.Equal(t, Positive, sel.Result.Sentiment)
		assert.Empty(t, sel.Result.NegativeMatches)
	}
}

func TestSelector_SelectTopRespectsK(t *testing.T) {
	selector := compactSettings(t).NewSelector(nil)
	batch := []Candidate{bridgeLights, openedHighway}

	got := selector.SelectTop(batch, 1)
	require.Len(t, got, 1)
	assert.Equal(t, openedHighway.URL, got[0].Candidate.URL)

	assert.Len(t, selector.SelectTop(batch, 10), 2)
}

func TestSelector_EmptyBatch(t *testing.T) {
	selector := compactSettings(t).NewSelector(nil)

	assert.Empty(t, selector.SelectTop(nil, 3))
	assert.Empty(t, selector.SelectTop([]Candidate{weather, highwayKilling}, 3))
}

func TestSelector_EqualScoresPreferNewest(t *testing.T) {
	selector := compactSettings(t).NewSelector(nil)
	newer := openedHighway
	newer.URL = "https://example.com/newer"
	newer.PublishedAt = openedHighway.PublishedAt.Add(30 * time.Minute)

	got := selector.SelectTop([]Candidate{openedHighway, bridgeLights, newer}, 3)

	require.Len(t, got, 3)
	assert.Equal(t, "https://example.com/newer", got[0].Candidate.URL)
	assert.Equal(t, openedHighway.URL, got[1].Candidate.URL)
	assert.Equal(t, bridgeLights.URL, got[2].Candidate.URL)
}

func TestSelector_ConcurrentUse(t *testing.T) {
	selector := compactSettings(t).NewSelector(nil)
	batch := []Candidate{openedHighway, bridgeLights, weather, highwayKilling}

	var wg sync.WaitGroup
	results := make([][]Selection, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = selector.SelectTop(append([]Candidate(nil), batch...), 3)
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		assert.Equal(t, results[0], results[i])
	}
}

func TestRankTop(t *testing.T) {
	scores := []float64{50, 200, 150, 30, 90, 300, 10, 80, 60, 40}
	sel := make([]Selection, len(scores))
	for i, s := range scores {
		// Lower scores are newer, so recency alone would invert the order.
		sel[i] = Selection{
			Candidate: Candidate{URL: fmt.Sprintf("u%d", i), PublishedAt: baseTime.Add(-time.Duration(s) * time.Minute)},
			Result:    Result{Score: s},
		}
	}

	got := rankTop(sel, 3)

	require.Len(t, got, 3)
	assert.Equal(t, 300.0, got[0].Result.Score)
	assert.Equal(t, 200.0, got[1].Result.Score)
	assert.Equal(t, 150.0, got[2].Result.Score)
	assert.Equal(t, []string{"u5", "u1", "u2"}, []string{got[0].Candidate.URL, got[1].Candidate.URL, got[2].Candidate.URL})
}

func TestRankTop_EqualScoresPreferNewer(t *testing.T) {
	sel := []Selection{
		{Candidate: Candidate{URL: "old", PublishedAt: baseTime.Add(-3 * time.Hour)}, Result: Result{Score: 120}},
		{Candidate: Candidate{URL: "low-new", PublishedAt: baseTime.Add(time.Hour)}, Result: Result{Score: 90}},
		{Candidate: Candidate{URL: "new", PublishedAt: baseTime}, Result: Result{Score: 120}},
	}

	got := rankTop(sel, 2)

	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].Candidate.URL)
	assert.Equal(t, "old", got[1].Candidate.URL)
}

func TestSelector_Merge(t *testing.T) {
	selector := defaultSettings(t).NewSelector(nil)
	feedA := []Selection{
		{Candidate: Candidate{URL: "a1", PublishedAt: baseTime}, Result: Result{Score: 180}},
		{Candidate: Candidate{URL: "a2", PublishedAt: baseTime}, Result: Result{Score: 120}},
	}
	feedB := []Selection{
		{Candidate: Candidate{URL: "b1", PublishedAt: baseTime.Add(time.Hour)}, Result: Result{Score: 180}},
		{Candidate: Candidate{URL: "b2", PublishedAt: baseTime}, Result: Result{Score: 110}},
	}
	merged := append(append([]Selection(nil), feedA...), feedB...)

	got := selector.Merge(merged, 0)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"b1", "a1", "a2"}, []string{got[0].Candidate.URL, got[1].Candidate.URL, got[2].Candidate.URL})
	assert.Equal(t, "a1", merged[0].Candidate.URL, "input order is left alone")
	assert.Len(t, selector.Merge(merged, 1), 1)
}

func TestBestPositive(t *testing.T) {
	runs := []categoryRun{
		{categoryID: "a", result: Result{Score: 500, Sentiment: Neutral}},
		{categoryID: "b", result: Result{Score: 120, Sentiment: Positive}},
		{categoryID: "c", result: Result{Score: 120, Sentiment: Positive}},
		{categoryID: "d", result: Result{Score: 90, Sentiment: Positive}},
	}

	best, ok := bestPositive(runs)
	require.True(t, ok)
	assert.Equal(t, "b", best.categoryID)

	_, ok = bestPositive(runs[:1])
	assert.False(t, ok)
}

func TestSelector_DefaultCatalogScenarios(t *testing.T) {
	selector := defaultSettings(t).NewSelector(nil)

	metro := Candidate{
		Title: "Gurugram Metro Expansion Inaugurated",
		Body: "The Haryana government inaugurated the metro expansion in Gurugram with an investment of Rs 5,000 crore. " +
			"The metro line will improve connectivity and expand the metro network across the city.",
		PublishedAt: baseTime,
		URL:         "https://example.com/metro",
	}
	roadRage := Candidate{
		Title:       "Man Killed in Hisar Road Rage Incident",
		Body:        "Police have registered a case and launched a new investigation in Hisar.",
		PublishedAt: baseTime,
		URL:         "https://example.com/road-rage",
	}
	festival := Candidate{
		Title: "Panchkula heritage festival attracts visitors",
		Body: "The new heritage festival in Panchkula is growing popular with tourists. " +
			"Organisers promote cultural events to boost tourism and improve visitor experience at the museum.",
		PublishedAt: baseTime,
		URL:         "https://example.com/festival",
	}

	sel, verdict := selector.Evaluate(metro)
	assert.Equal(t, Accepted, verdict)
	assert.Equal(t, "infrastructure", sel.CategoryID)
	assert.Contains(t, sel.Result.MatchedKeywords, "metro")
	assert.Greater(t, sel.Result.Score, 100.0)

	_, verdict = selector.Evaluate(roadRage)
	assert.Equal(t, RejectUnsafe, verdict)

	_, verdict = selector.Evaluate(festival)
	assert.Equal(t, RejectLowImpact, verdict)

	got := selector.SelectTop([]Candidate{roadRage, festival, metro}, 0)
	require.Len(t, got, 1)
	assert.Equal(t, metro.URL, got[0].Candidate.URL)
}

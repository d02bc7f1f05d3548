package relevance

import (
	"log/slog"
	"math"
	"sort"
)

// Verdict explains why a candidate was kept or dropped.
type Verdict string

const (
	Accepted          Verdict = "accepted"
	RejectUnsafe      Verdict = "unsafe"
	RejectNotPositive Verdict = "not_positive"
	RejectNegative    Verdict = "negative_signal"
	RejectWeak        Verdict = "weak_score"
	RejectLowImpact   Verdict = "low_impact"
	RejectOffRegion   Verdict = "off_region"
	RejectIncidental  Verdict = "incidental_mention"
)

// Outcome is the full result of one selection pass.
type Outcome struct {
	Selected []Selection
	// Considered counts every candidate by verdict, accepted ones included
	// even when they fell below the top k.
	Considered map[Verdict]int
}

// Selector runs the whole pipeline over a batch of candidates.
type Selector struct {
	scorer    *Scorer
	catalog   *Catalog
	gazetteer *Gazetteer
	impact    *ImpactSignal
	rules     SelectionRules
	log       *slog.Logger
}

// NewSelector wires a selector from its read-only parts.
func NewSelector(scorer *Scorer, gazetteer *Gazetteer, impact *ImpactSignal, rules SelectionRules, log *slog.Logger) *Selector {
	if log == nil {
		log = slog.Default()
	}
	return &Selector{
		scorer:    scorer,
		catalog:   scorer.catalog,
		gazetteer: gazetteer,
		impact:    impact,
		rules:     rules,
		log:       log,
	}
}

type categoryRun struct {
	categoryID string
	result     Result
}

// SelectTop returns at most k of the best candidates. k <= 0 uses the
// configured default. An empty result is a normal outcome.
func (s *Selector) SelectTop(candidates []Candidate, k int) []Selection {
	return s.Run(candidates, k).Selected
}

// Run is SelectTop with per-verdict counts.
func (s *Selector) Run(candidates []Candidate, k int) Outcome {
	if k <= 0 {
		k = s.rules.DefaultK
	}
	out := Outcome{Considered: make(map[Verdict]int)}

	kept := make([]Selection, 0, len(candidates))
	for _, c := range candidates {
		sel, verdict := s.Evaluate(c)
		out.Considered[verdict]++
		if verdict != Accepted {
			s.log.Debug("candidate dropped", "verdict", verdict, "title", c.Title, "url", c.URL)
			continue
		}
		kept = append(kept, sel)
	}

	out.Selected = rankTop(kept, k)
	return out
}

// Merge ranks selections coming from several Run calls, such as one per
// feed, and keeps the best k. k <= 0 uses the configured default.
func (s *Selector) Merge(sel []Selection, k int) []Selection {
	if k <= 0 {
		k = s.rules.DefaultK
	}
	return rankTop(append([]Selection(nil), sel...), k)
}

// Evaluate scores one candidate and applies every gate.
func (s *Selector) Evaluate(c Candidate) (Selection, Verdict) {
	text := c.Text()

	runs := s.scoreAll(text)
	best, ok := bestPositive(runs)
	if !ok {
		if len(runs) > 0 && runs[0].result.Score == s.scorer.weights.SafetyVeto {
			return Selection{}, RejectUnsafe
		}
		return Selection{}, RejectNotPositive
	}

	r := best.result
	switch {
	case len(r.NegativeMatches) > 0:
		return Selection{}, RejectNegative
	case r.Score < s.rules.MinScore:
		return Selection{}, RejectWeak
	case len(r.PositiveMatches) < s.rules.MinPositiveMatches && r.Score < s.rules.StrongScore:
		return Selection{}, RejectWeak
	}

	if s.impact != nil && !s.impact.HasHighImpact(text) {
		return Selection{}, RejectLowImpact
	}
	if !s.gazetteer.IsRegionRelevant(text) {
		return Selection{}, RejectOffRegion
	}
	if !s.gazetteer.IsPrimaryTopic(c.Title, c.Body) {
		return Selection{}, RejectIncidental
	}

	return Selection{Candidate: c, CategoryID: best.categoryID, Result: r}, Accepted
}

// scoreAll maps text over every category. Runs are independent.
func (s *Selector) scoreAll(text string) []categoryRun {
	ids := s.catalog.order
	runs := make([]categoryRun, len(ids))
	for i, id := range ids {
		runs[i] = categoryRun{categoryID: id, result: s.scorer.Score(text, id)}
	}
	return runs
}

// bestPositive reduces runs to the highest-scoring positive one. Ties keep
// the earlier category.
func bestPositive(runs []categoryRun) (categoryRun, bool) {
	best := categoryRun{result: Result{Score: math.Inf(-1)}}
	found := false
	for _, r := range runs {
		if r.result.Sentiment != Positive {
			continue
		}
		if !found || r.result.Score > best.result.Score {
			best = r
			found = true
		}
	}
	return best, found
}

// rankTop orders by score then recency, newest first, and keeps k.
func rankTop(sel []Selection, k int) []Selection {
	sort.SliceStable(sel, func(i, j int) bool {
		if sel[i].Result.Score != sel[j].Result.Score {
			return sel[i].Result.Score > sel[j].Result.Score
		}
		return sel[i].Candidate.PublishedAt.After(sel[j].Candidate.PublishedAt)
	})
	if len(sel) > k {
		sel = sel[:k]
	}
	return sel
}

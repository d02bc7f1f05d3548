package relevance

// Weights holds every tunable number of the scorer. The defaults were tuned
// by hand against real feeds; keep them bit-for-bit unless recalibrating.
type Weights struct {
	SafetyVeto       float64 `yaml:"safety_veto"`
	OffTopicNegative float64 `yaml:"off_topic_negative"`

	Keyword           float64 `yaml:"keyword"`
	PositiveIndicator float64 `yaml:"positive_indicator"`
	NegativeIndicator float64 `yaml:"negative_indicator"`

	// Sentiment is positive above PositiveThreshold, negative below
	// NegativeThreshold, neutral in between (inclusive).
	PositiveThreshold float64 `yaml:"positive_threshold"`
	NegativeThreshold float64 `yaml:"negative_threshold"`

	NegativeMultiplier float64 `yaml:"negative_multiplier"`
	NegativeOffset     float64 `yaml:"negative_offset"`
	NeutralMultiplier  float64 `yaml:"neutral_multiplier"`
	NeutralOffset      float64 `yaml:"neutral_offset"`
	PositiveMultiplier float64 `yaml:"positive_multiplier"`
	PositiveOffset     float64 `yaml:"positive_offset"`

	NegativeMatchPenalty float64 `yaml:"negative_match_penalty"`
	RichPositiveCount    int     `yaml:"rich_positive_count"`
	RichPositiveBonus    float64 `yaml:"rich_positive_bonus"`
}

// DefaultWeights returns the production calibration.
func DefaultWeights() Weights {
	return Weights{
		SafetyVeto:           -10000,
		OffTopicNegative:     -100,
		Keyword:              10,
		PositiveIndicator:    3.0,
		NegativeIndicator:    -10.0,
		PositiveThreshold:    2,
		NegativeThreshold:    -1,
		NegativeMultiplier:   10,
		NegativeOffset:       -100,
		NeutralMultiplier:    5,
		NeutralOffset:        -20,
		PositiveMultiplier:   8,
		PositiveOffset:       20,
		NegativeMatchPenalty: 30,
		RichPositiveCount:    3,
		RichPositiveBonus:    25,
	}
}

// SelectionRules are the thresholds applied to a candidate's winning run.
type SelectionRules struct {
	DefaultK           int     `yaml:"default_k"`
	MinScore           float64 `yaml:"min_score"`
	MinPositiveMatches int     `yaml:"min_positive_matches"`
	// StrongScore lets a run with fewer positive matches through.
	StrongScore float64 `yaml:"strong_score"`
}

// DefaultSelectionRules returns the production thresholds.
func DefaultSelectionRules() SelectionRules {
	return SelectionRules{
		DefaultK:           3,
		MinScore:           100,
		MinPositiveMatches: 2,
		StrongScore:        140,
	}
}

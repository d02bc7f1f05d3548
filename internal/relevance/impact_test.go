package relevance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImpactSignal_HasHighImpact(t *testing.T) {
	s := defaultSettings(t)

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"vocabulary term", "New Metro line for the city", true},
		{"inflected vocabulary", "Minister inaugurates stadium", true},
		{"currency figure", "Grant of Rs. 45 for each family", true},
		{"rupee sign", "Project worth ₹1,200 approved", true},
		{"count of villages", "Piped water reaches 120 villages", true},
		{"megawatts", "Panel farm adds 50 MW", true},
		{"bare number", "Festival enters its 3rd day", false},
		{"no signal", "Festival draws happy visitors", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Impact.HasHighImpact(tt.text))
		})
	}
}

func TestNewImpactSignal_BadPattern(t *testing.T) {
	_, err := NewImpactSignal(nil, []string{"("})
	require.Error(t, err)
}

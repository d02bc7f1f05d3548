package relevance

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGazetteer_IsRegionRelevant(t *testing.T) {
	g := NewGazetteer([]string{"Haryana", "Gurugram", "Charkhi Dadri"})

	assert.True(t, g.IsRegionRelevant("New office opens in GURUGRAM"))
	assert.True(t, g.IsRegionRelevant("charkhi dadri fair"))
	assert.False(t, g.IsRegionRelevant("New office opens in Pune"))
	assert.False(t, g.IsRegionRelevant(""))
}

func TestGazetteer_IsPrimaryTopic(t *testing.T) {
	g := NewGazetteer([]string{"Hisar", "Rohtak"})
	filler := func(n int) string { return strings.Repeat("x", n) }

	tests := []struct {
		name  string
		title string
		body  string
		want  bool
	}{
		{"title mention", "Hisar gets new park", "Nothing else here.", true},
		{"lead mention", "New park opens", "The Hisar park opened today.", true},
		{"single deep mention", "New park opens", filler(5000) + "Hisar" + filler(995), false},
		{"repeated deep mention", "New park opens", filler(3000) + "Hisar" + filler(2000) + "hisar" + filler(990), true},
		{"two different places once each", "New park opens", filler(3000) + "Hisar" + filler(2000) + "Rohtak", false},
		{"mention right after lead window", "New park opens", filler(200) + "Hisar", false},
		{"mention ending inside lead window", "New park opens", filler(195) + "Hisar", true},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.IsPrimaryTopic(tt.title, tt.body))
		})
	}
}

func TestGazetteer_DeepSingleMentionStillRelevant(t *testing.T) {
	g := NewGazetteer([]string{"Hisar"})
	body := strings.Repeat("y", 5000) + "Hisar" + strings.Repeat("y", 995)

	assert.Len(t, body, 6000)
	assert.True(t, g.IsRegionRelevant(body))
	assert.False(t, g.IsPrimaryTopic("Unrelated headline", body))
}

package summarize

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/hrnews/internal/ratelimit"
	"github.com/deusflow/hrnews/internal/storage"
)

type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	reply   string
	err     error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

const metroBody = "The Chief Minister inaugurated the new metro line in Gurugram on Monday. " +
	"The 28 km corridor cost Rs 5,000 crore and has 21 stations. " +
	"Officials said the line was built by local contractors over several years."

func TestExtract(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		maxSentences int
		want         string
	}{
		{
			name:    "empty",
			content: "   ",
			want:    "",
		},
		{
			name:         "prefers figures and progress",
			content:      "It was a sunny morning across the whole district. The plant will create 500 jobs in Karnal. Farmers welcomed the move at a village meeting. Yields improved sharply after the new irrigation scheme.",
			maxSentences: 2,
			want:         "The plant will create 500 jobs in Karnal. Yields improved sharply after the new irrigation scheme.",
		},
		{
			name:         "fills with long sentences",
			content:      "It was a sunny morning across the whole district. Residents gathered near the old bus stand early.",
			maxSentences: 2,
			want:         "It was a sunny morning across the whole district. Residents gathered near the old bus stand early.",
		},
		{
			name:    "short fragments fall back to a prefix",
			content: strings.Repeat("Good work! ", 20),
			want:    strings.Repeat("Good work! ", 20)[:160] + "...",
		},
		{
			name:    "default sentence count",
			content: metroBody,
			want:    "The Chief Minister inaugurated the new metro line in Gurugram on Monday. The 28 km corridor cost Rs 5,000 crore and has 21 stations. Officials said the line was built by local contractors over several years.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.content, tt.maxSentences))
		})
	}
}

func TestParseSummary(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"labelled", "SUMMARY: Metro opens in Gurugram.", "Metro opens in Gurugram.", false},
		{"bold label", "**Summary**: Metro opens.", "Metro opens.", false},
		{"preamble dropped", "Sure, here it is.\nSUMMARY: Metro opens.\nIt has 21 stations.", "Metro opens. It has 21 stations.", false},
		{"unlabelled", "Metro opens in Gurugram.", "Metro opens in Gurugram.", false},
		{"quoted", `SUMMARY: "Metro opens."`, "Metro opens.", false},
		{"empty", "\n  \n", "", true},
		{"label only", "SUMMARY:", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSummary(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	long := strings.Repeat("Sentence about Haryana roads. ", 400)
	p := buildPrompt("Haryana", "Roads", long, 200)

	assert.Contains(t, p, "Summarize this Haryana news article")
	assert.Contains(t, p, "Title: Roads")
	assert.Contains(t, p, "200 characters")
	assert.Contains(t, p, "[TRUNCATED]")
	assert.Less(t, len(p), 7000)
}

func TestService_WithoutGenerator(t *testing.T) {
	s := NewService(Options{})
	got := s.Summarize(context.Background(), "Metro opens", metroBody)

	assert.Equal(t, ProviderExtractive, got.Provider)
	assert.Equal(t, Extract(metroBody, 2), got.Text)
}

func TestService_UsesModelAndCaches(t *testing.T) {
	gen := &fakeGenerator{reply: "SUMMARY: Gurugram gets a 28 km metro line."}
	budget := ratelimit.NewBudget(map[string]int{BudgetService: 5}, nil)
	s := NewService(Options{Generator: gen, Budget: budget})
	ctx := context.Background()

	first := s.Summarize(ctx, "Metro opens", metroBody)
	second := s.Summarize(ctx, "Metro opens", metroBody)

	assert.Equal(t, Summary{Text: "Gurugram gets a 28 km metro line.", Provider: ProviderGemini}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, gen.calls)
	assert.Contains(t, gen.prompts[0], "Title: Metro opens")

	stats := budget.GetStats()
	assert.Equal(t, 1, stats["gemini_used"])
	assert.Equal(t, 1, stats["cache_hits"])
}

func TestService_BudgetExhausted(t *testing.T) {
	gen := &fakeGenerator{reply: "SUMMARY: model text."}
	budget := ratelimit.NewBudget(map[string]int{BudgetService: 1}, nil)
	s := NewService(Options{Generator: gen, Budget: budget})
	ctx := context.Background()

	assert.Equal(t, ProviderGemini, s.Summarize(ctx, "a", metroBody).Provider)
	got := s.Summarize(ctx, "b", metroBody)

	assert.Equal(t, ProviderExtractive, got.Provider)
	assert.Equal(t, 1, gen.calls)
}

func TestService_FallsBackOnError(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"generate error", &fakeGenerator{err: errors.New("quota exceeded")}},
		{"empty reply", &fakeGenerator{reply: "  "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(Options{Generator: tt.gen})
			got := s.Summarize(context.Background(), "Metro opens", metroBody)

			assert.Equal(t, ProviderExtractive, got.Provider)
			assert.NotEmpty(t, got.Text)
		})
	}
}

func TestService_EmptyBodySkipsModel(t *testing.T) {
	gen := &fakeGenerator{reply: "SUMMARY: x."}
	s := NewService(Options{Generator: gen})

	got := s.Summarize(context.Background(), "Title only", "")
	assert.Equal(t, Summary{Provider: ProviderExtractive}, got)
	assert.Zero(t, gen.calls)
}

func TestService_PersistentCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	store := storage.NewFileStore(path, 0)
	ctx := context.Background()

	gen := &fakeGenerator{reply: "SUMMARY: Stored summary."}
	NewService(Options{Generator: gen, Store: store}).Summarize(ctx, "Metro opens", metroBody)
	require.Equal(t, 1, gen.calls)

	// A fresh service has an empty memo but finds the stored answer.
	other := &fakeGenerator{reply: "SUMMARY: should not be used."}
	got := NewService(Options{Generator: other, Store: store}).Summarize(ctx, "Metro opens", metroBody)

	assert.Equal(t, "Stored summary.", got.Text)
	assert.Zero(t, other.calls)
}

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudget_PerServiceLimit(t *testing.T) {
	b := NewBudget(map[string]int{"gemini": 2}, nil)

	require.NoError(t, b.Use("gemini"))
	require.NoError(t, b.Use("gemini"))

	err := b.Use("gemini")
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 2, b.GetStats()["gemini_used"])

	// Services without a limit are unlimited.
	for i := 0; i < 10; i++ {
		require.NoError(t, b.Use("telegram"))
	}
}

func TestBudget_ZeroLimitIsUnlimited(t *testing.T) {
	b := NewBudget(map[string]int{"scrape": 0}, nil)
	for i := 0; i < 50; i++ {
		require.NoError(t, b.Use("scrape"))
	}
	assert.Equal(t, 50, b.GetStats()["scrape_used"])
}

func TestBudget_Stats(t *testing.T) {
	b := NewBudget(map[string]int{"gemini": 3}, nil)
	require.NoError(t, b.Use("gemini"))
	b.RecordCacheHit()

	stats := b.GetStats()
	assert.Equal(t, 1, stats["gemini_used"])
	assert.Equal(t, 3, stats["gemini_limit"])
	assert.Equal(t, 1, stats["total_used"])
	assert.Equal(t, 1, stats["cache_hits"])
	assert.Equal(t, 1, stats["cache_misses"])
	assert.InDelta(t, 50.0, stats["cache_hit_rate"], 0.001)
}

func TestBudget_StatsEmpty(t *testing.T) {
	stats := NewBudget(nil, nil).GetStats()
	assert.Equal(t, 0, stats["total_used"])
	assert.InDelta(t, 0.0, stats["cache_hit_rate"], 0.001)
}

func TestPacer(t *testing.T) {
	p := NewPacer(time.Hour, 1)
	require.NoError(t, p.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, p.Wait(ctx))
}

func TestPacer_Unpaced(t *testing.T) {
	p := NewPacer(0, 1)
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Wait(context.Background()))
	}
}

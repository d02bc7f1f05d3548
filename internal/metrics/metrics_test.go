package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			if labelsMatch(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s %v not found", name, labels)
	return 0
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	if len(m.GetLabel()) != len(want) {
		return false
	}
	for _, l := range m.GetLabel() {
		if want[l.GetName()] != l.GetValue() {
			return false
		}
	}
	return true
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.AddFetched("tribune", 12)
	m.AddFetched("tribune", 3)
	m.IncrementFeedErrors("news18")
	m.AddDuplicates(4)
	m.AddVerdict("unsafe", 2)
	m.AddSelected(3)
	m.IncrementPostsSent()
	m.IncrementPostsFailed()

	reg := m.Registry()
	assert.Equal(t, 15.0, counterValue(t, reg, "hrnews_items_fetched_total", map[string]string{"feed": "tribune"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "hrnews_feed_errors_total", map[string]string{"feed": "news18"}))
	assert.Equal(t, 4.0, counterValue(t, reg, "hrnews_duplicates_skipped_total", nil))
	assert.Equal(t, 2.0, counterValue(t, reg, "hrnews_candidates_total", map[string]string{"verdict": "unsafe"}))
	assert.Equal(t, 3.0, counterValue(t, reg, "hrnews_items_selected_total", nil))
	assert.Equal(t, 1.0, counterValue(t, reg, "hrnews_posts_sent_total", nil))
	assert.Equal(t, 1.0, counterValue(t, reg, "hrnews_posts_failed_total", nil))
}

func TestHealthSnapshot(t *testing.T) {
	m := New(prometheus.NewRegistry())
	assert.True(t, m.IsHealthy())

	m.SetError("feed config missing")
	assert.False(t, m.IsHealthy())
	stats := m.GetStats()
	assert.Equal(t, "feed config missing", stats["last_error"])
	assert.Contains(t, stats, "last_error_time")

	m.RecordRunDuration(1500 * time.Millisecond)
	m.SetLastRun()
	stats = m.GetStats()
	assert.Equal(t, true, stats["is_healthy"])
	assert.Equal(t, int64(1), stats["runs"])
	assert.Equal(t, int64(1500), stats["last_run_duration_ms"])
	assert.Contains(t, stats, "last_run_time")
}

func TestBudgetStats(t *testing.T) {
	m := New(prometheus.NewRegistry())
	assert.NotContains(t, m.GetStats(), "budgets")

	m.SetBudgetStats("gemini", map[string]interface{}{"gemini_used": 2, "gemini_limit": 10})
	m.SetBudgetStats("gemini", map[string]interface{}{"gemini_used": 4, "gemini_limit": 10})
	m.SetBudgetStats("scrape", map[string]interface{}{"scrape_used": 7})

	budgets, ok := m.GetStats()["budgets"].(map[string]map[string]interface{})
	require.True(t, ok)
	assert.Len(t, budgets, 2)
	assert.Equal(t, 4, budgets["gemini"]["gemini_used"])
	assert.Equal(t, 7, budgets["scrape"]["scrape_used"])
}

func TestHandler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.IncrementPostsSent()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "hrnews_posts_sent_total 1")
}

package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hrnews"

// Metrics keeps the Prometheus collectors of the pipeline and a small health
// snapshot for /health.
type Metrics struct {
	mu sync.RWMutex

	registry *prometheus.Registry

	// Counters
	itemsFetched *prometheus.CounterVec
	feedErrors   *prometheus.CounterVec
	duplicates   prometheus.Counter
	verdicts     *prometheus.CounterVec
	selected     prometheus.Counter
	postsSent    prometheus.Counter
	postsFailed  prometheus.Counter

	// Timings
	runDuration prometheus.Histogram

	// Status
	runs          int64
	lastSelected  int
	lastRunTime   time.Time
	lastDuration  time.Duration
	lastErrorTime time.Time
	lastError     string
	healthy       bool
	budgets       map[string]map[string]interface{}
}

var Global = New(prometheus.NewRegistry())

// New registers a fresh set of collectors on reg.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		healthy:  true,
		itemsFetched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_fetched_total",
			Help:      "Feed items fetched, by feed.",
		}, []string{"feed"}),
		feedErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_errors_total",
			Help:      "Feed fetches that failed, by feed.",
		}, []string{"feed"}),
		duplicates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_skipped_total",
			Help:      "Items dropped as duplicates or already seen.",
		}),
		verdicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Candidates evaluated, by selection verdict.",
		}, []string{"verdict"}),
		selected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_selected_total",
			Help:      "Items that made the final top-k.",
		}),
		postsSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_sent_total",
			Help:      "Posts delivered to the channel.",
		}),
		postsFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_failed_total",
			Help:      "Posts that could not be delivered.",
		}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of one pipeline run.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) AddFetched(feed string, n int) {
	m.itemsFetched.WithLabelValues(feed).Add(float64(n))
}

func (m *Metrics) IncrementFeedErrors(feed string) {
	m.feedErrors.WithLabelValues(feed).Inc()
}

func (m *Metrics) AddDuplicates(n int) {
	m.duplicates.Add(float64(n))
}

func (m *Metrics) AddVerdict(verdict string, n int) {
	m.verdicts.WithLabelValues(verdict).Add(float64(n))
}

func (m *Metrics) AddSelected(n int) {
	m.selected.Add(float64(n))
	m.mu.Lock()
	m.lastSelected = n
	m.mu.Unlock()
}

func (m *Metrics) IncrementPostsSent() {
	m.postsSent.Inc()
}

func (m *Metrics) IncrementPostsFailed() {
	m.postsFailed.Inc()
}

func (m *Metrics) RecordRunDuration(duration time.Duration) {
	m.runDuration.Observe(duration.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastDuration = duration
	m.runs++
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRunTime = time.Now()
	m.healthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError = err
	m.lastErrorTime = time.Now()
	m.healthy = false
}

// SetBudgetStats keeps the last run's request budget figures for /stats.
func (m *Metrics) SetBudgetStats(name string, stats map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.budgets == nil {
		m.budgets = make(map[string]map[string]interface{})
	}
	m.budgets[name] = stats
}

func (m *Metrics) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := map[string]interface{}{
		"runs":                 m.runs,
		"last_selected":        m.lastSelected,
		"last_run_duration_ms": m.lastDuration.Milliseconds(),
		"last_error":           m.lastError,
		"is_healthy":           m.healthy,
	}
	if !m.lastRunTime.IsZero() {
		stats["last_run_time"] = m.lastRunTime.Format(time.RFC3339)
	}
	if !m.lastErrorTime.IsZero() {
		stats["last_error_time"] = m.lastErrorTime.Format(time.RFC3339)
	}
	if len(m.budgets) > 0 {
		budgets := make(map[string]map[string]interface{}, len(m.budgets))
		for name, b := range m.budgets {
			budgets[name] = b
		}
		stats["budgets"] = budgets
	}
	return stats
}

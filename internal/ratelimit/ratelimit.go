package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrExhausted is returned by Use once a budget is spent.
var ErrExhausted = errors.New("request budget exhausted")

// Budget caps how many calls each external service may receive during one
// run. A limit of 0 means unlimited.
type Budget struct {
	mu     sync.Mutex
	limits map[string]int
	used   map[string]int
	total  int
	log    *slog.Logger

	cacheHits   int
	cacheMisses int
}

// NewBudget creates a budget with per-service limits.
func NewBudget(limits map[string]int, log *slog.Logger) *Budget {
	if log == nil {
		log = slog.Default()
	}
	b := &Budget{
		limits: make(map[string]int, len(limits)),
		used:   make(map[string]int),
		log:    log,
	}
	for k, v := range limits {
		b.limits[k] = v
	}
	return b
}

// Use spends one unit of service's budget.
func (b *Budget) Use(service string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if limit := b.limits[service]; limit > 0 && b.used[service] >= limit {
		b.log.Warn("request budget reached", "service", service, "used", b.used[service], "limit", limit)
		return fmt.Errorf("%s: %w (%d/%d)", service, ErrExhausted, b.used[service], limit)
	}

	b.used[service]++
	b.total++
	b.cacheMisses++
	b.log.Debug("request budget used", "service", service, "used", b.used[service], "limit", b.limits[service], "total", b.total)
	return nil
}

// RecordCacheHit notes a call avoided thanks to a cached answer.
func (b *Budget) RecordCacheHit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheHits++
}

func (b *Budget) cacheHitRate() float64 {
	total := b.cacheHits + b.cacheMisses
	if total == 0 {
		return 0
	}
	return float64(b.cacheHits) / float64(total) * 100
}

// GetStats returns current budget statistics.
func (b *Budget) GetStats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := map[string]interface{}{
		"total_used":     b.total,
		"cache_hits":     b.cacheHits,
		"cache_misses":   b.cacheMisses,
		"cache_hit_rate": b.cacheHitRate(),
	}
	for service, limit := range b.limits {
		stats[service+"_used"] = b.used[service]
		stats[service+"_limit"] = limit
	}
	return stats
}

// Pacer spaces out calls to one host or API.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer allows one call every interval with the given burst. A
// non-positive interval disables pacing.
func NewPacer(interval time.Duration, burst int) *Pacer {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until the next call may go out or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Package observability tracks engine counters and filter column usage for
// monitoring and index tuning.
package observability

import (
	"sort"
	"sync"
	"time"
)

// FilterStats tracks how often columns appear in where clauses, per table.
type FilterStats struct {
	mu     sync.RWMutex
	freq   map[string]*ColumnStats
	window time.Duration
}

// ColumnStats holds usage statistics for one filter column.
type ColumnStats struct {
	Table      string         `json:"table"`
	Column     string         `json:"column"`
	Frequency  int64          `json:"frequency"`
	LastSeen   time.Time      `json:"last_seen"`
	Operations map[string]int `json:"operations"` // operation → count (e.g., "select" → 5, "update" → 2)
}

// NewFilterStats creates a filter usage tracker.
// window: time duration for pruning old entries (e.g., 1 hour)
func NewFilterStats(window time.Duration) *FilterStats {
	return &FilterStats{
		freq:   make(map[string]*ColumnStats),
		window: window,
	}
}

// RecordFilter records that column was used to filter rows of table by the
// given operation. This method is O(1) and thread-safe.
func (f *FilterStats) RecordFilter(table, column, operation string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := table + "." + column
	stats, exists := f.freq[key]
	if !exists {
		stats = &ColumnStats{
			Table:      table,
			Column:     column,
			Operations: make(map[string]int),
		}
		f.freq[key] = stats
	}

	stats.Frequency++
	stats.LastSeen = time.Now()
	stats.Operations[operation]++
}

// Top returns the n most used filter columns, sorted by frequency
// (descending). The result is a copy.
func (f *FilterStats) Top(n int) []ColumnStats {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if n <= 0 || len(f.freq) == 0 {
		return []ColumnStats{}
	}

	stats := make([]ColumnStats, 0, len(f.freq))
	for _, s := range f.freq {
		statsCopy := *s
		statsCopy.Operations = make(map[string]int, len(s.Operations))
		for op, count := range s.Operations {
			statsCopy.Operations[op] = count
		}
		stats = append(stats, statsCopy)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Frequency != stats[j].Frequency {
			return stats[i].Frequency > stats[j].Frequency
		}
		return stats[i].Table+"."+stats[i].Column < stats[j].Table+"."+stats[j].Column
	})

	if n > len(stats) {
		n = len(stats)
	}
	return stats[:n]
}

// Prune removes entries where time.Since(LastSeen) > window.
// This should be called periodically (e.g., every 5 minutes).
func (f *FilterStats) Prune() {
	f.mu.Lock()
	defer f.mu.Unlock()

	threshold := time.Now().Add(-f.window)
	for key, stats := range f.freq {
		if stats.LastSeen.Before(threshold) {
			delete(f.freq, key)
		}
	}
}

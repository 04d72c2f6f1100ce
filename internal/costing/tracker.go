package costing

import (
	"sync"
	"time"
)

// Tracker accumulates token usage for a single run and maintains a running
// cost total. Safe for concurrent use; the agent driver records usage while
// the status server reads snapshots.
type Tracker struct {
	table *Table

	mu          sync.RWMutex
	model       string
	usage       Usage
	cost        float64
	updates     int
	lastUpdated time.Time
}

// NewTracker creates a tracker pricing against the given table.
func NewTracker(table *Table) *Tracker {
	return &Tracker{table: table}
}

// Record accumulates a usage report priced under model's rates.
// An empty model prices as the fallback entry.
func (t *Tracker) Record(model string, u Usage) {
	cost := t.table.Cost(model, u)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.usage.Add(u)
	t.cost += cost
	t.updates++
	t.lastUpdated = time.Now()
	if model != "" {
		t.model = model
	}
}

// Cost returns the accumulated cost in USD.
func (t *Tracker) Cost() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cost
}

// Snapshot returns a read-only copy of the accumulated state.
func (t *Tracker) Snapshot() CostSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return CostSnapshot{
		Model:       t.model,
		Usage:       t.usage,
		Cost:        t.cost,
		Updates:     t.updates,
		LastUpdated: t.lastUpdated,
	}
}

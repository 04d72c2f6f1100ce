package costing_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harforge/harforge/internal/costing"
)

func TestTracker_Accumulates(t *testing.T) {
	tr := costing.NewTracker(costing.DefaultTable())

	tr.Record("claude-haiku-4-5", costing.Usage{InputTokens: 1_000_000})
	tr.Record("claude-haiku-4-5", costing.Usage{OutputTokens: 1_000_000})

	snap := tr.Snapshot()
	assert.Equal(t, int64(1_000_000), snap.Usage.InputTokens)
	assert.Equal(t, int64(1_000_000), snap.Usage.OutputTokens)
	assert.Equal(t, 2, snap.Updates)
	assert.Equal(t, "claude-haiku-4-5", snap.Model)
	assert.InDelta(t, 6.0, tr.Cost(), 1e-9) // 1M in @ $1 + 1M out @ $5
	assert.False(t, snap.LastUpdated.IsZero())
}

func TestTracker_EmptyModelKeepsLastSeen(t *testing.T) {
	tr := costing.NewTracker(costing.DefaultTable())

	tr.Record("claude-opus-4-5", costing.Usage{InputTokens: 100})
	tr.Record("", costing.Usage{InputTokens: 100})

	assert.Equal(t, "claude-opus-4-5", tr.Snapshot().Model)
}

func TestTracker_ConcurrentRecords(t *testing.T) {
	tr := costing.NewTracker(costing.DefaultTable())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				tr.Record("claude-sonnet-4-5", costing.Usage{InputTokens: 10})
			}
		}()
	}
	wg.Wait()

	snap := tr.Snapshot()
	assert.Equal(t, int64(10_000), snap.Usage.InputTokens)
	assert.Equal(t, 1000, snap.Updates)
}

// Package costing implements usage-based cost accounting for agent runs.
//
// DESIGN: A run accumulates token usage as the external agent reports it.
// Costs derive from an immutable per-model rate table built at startup;
// unknown models price as the designated fallback entry so a pricing-table
// gap never interrupts a long-running session.
package costing

import (
	"fmt"
	"time"
)

// ModelRates holds per-million-token USD rates for one model.
// A zero-valued category costs nothing for that model.
type ModelRates struct {
	Input         float64 `yaml:"input"`
	Output        float64 `yaml:"output"`
	CacheCreation float64 `yaml:"cache_creation"`
	CacheRead     float64 `yaml:"cache_read"`
	Reasoning     float64 `yaml:"reasoning"`
}

// Validate checks that no rate is negative.
func (r ModelRates) Validate() error {
	for _, v := range []float64{r.Input, r.Output, r.CacheCreation, r.CacheRead, r.Reasoning} {
		if v < 0 {
			return fmt.Errorf("model rates must be >= 0, got %f", v)
		}
	}
	return nil
}

// Usage is a breakdown of token counts reported for one or more agent turns.
type Usage struct {
	InputTokens         int64 `json:"input_tokens"`
	OutputTokens        int64 `json:"output_tokens"`
	CacheCreationTokens int64 `json:"cache_creation_tokens"`
	CacheReadTokens     int64 `json:"cache_read_tokens"`
	ReasoningTokens     int64 `json:"reasoning_tokens"`
}

// Add accumulates another usage record into u.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationTokens += other.CacheCreationTokens
	u.CacheReadTokens += other.CacheReadTokens
	u.ReasoningTokens += other.ReasoningTokens
}

// TotalTokens returns the sum across all categories.
func (u Usage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens + u.CacheCreationTokens + u.CacheReadTokens + u.ReasoningTokens
}

// CostSnapshot is a read-only copy of a run's accumulated cost state.
type CostSnapshot struct {
	Model       string
	Usage       Usage
	Cost        float64
	Updates     int
	LastUpdated time.Time
}

package costing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FallbackModel is the rate entry used when a model id is unknown or empty.
// Sonnet is the most common model, so it gives the least-wrong estimate.
const FallbackModel = "claude-sonnet-4-5"

// builtinRates is the shipped rate card, USD per million tokens.
var builtinRates = map[string]ModelRates{
	"claude-sonnet-4-5": {Input: 3.00, Output: 15.00, CacheCreation: 3.75, CacheRead: 0.30, Reasoning: 15.00},
	"claude-opus-4-5":   {Input: 15.00, Output: 75.00, CacheCreation: 18.75, CacheRead: 1.50, Reasoning: 75.00},
	"claude-haiku-4-5":  {Input: 1.00, Output: 5.00, CacheCreation: 1.25, CacheRead: 0.10, Reasoning: 5.00},

	"google-gemini-3-flash": {Input: 0.00015, Output: 0.0006},
	"google-gemini-3-pro":   {Input: 0.0003, Output: 0.0012},
}

// Table is an immutable model-to-rates mapping with a designated fallback
// entry. Build one at startup and share it; reads need no synchronization.
type Table struct {
	rates    map[string]ModelRates
	fallback string
}

// NewTable builds a Table from the given rates. The fallback model must be
// present and must define every category with a positive rate, since it
// prices every unknown model.
func NewTable(rates map[string]ModelRates, fallback string) (*Table, error) {
	fb, ok := rates[fallback]
	if !ok {
		return nil, fmt.Errorf("fallback model %q missing from rate table", fallback)
	}
	if fb.Input <= 0 || fb.Output <= 0 || fb.CacheCreation <= 0 || fb.CacheRead <= 0 || fb.Reasoning <= 0 {
		return nil, fmt.Errorf("fallback model %q must define all rate categories", fallback)
	}
	copied := make(map[string]ModelRates, len(rates))
	for model, r := range rates {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("model %q: %w", model, err)
		}
		copied[model] = r
	}
	return &Table{rates: copied, fallback: fallback}, nil
}

// DefaultTable returns the shipped rate table.
func DefaultTable() *Table {
	t, err := NewTable(builtinRates, FallbackModel)
	if err != nil {
		// Builtin table is compiled in; a bad entry is a programming error.
		panic(err)
	}
	return t
}

// LoadTable returns the builtin table overlaid with entries from a YAML file
// mapping model id to rates. Adding a model is a data change, not a behavior
// change.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- trusted config paths
	if err != nil {
		return nil, fmt.Errorf("read rates %s: %w", path, err)
	}
	var overlay map[string]ModelRates
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse rates %s: %w", path, err)
	}
	merged := make(map[string]ModelRates, len(builtinRates)+len(overlay))
	for model, r := range builtinRates {
		merged[model] = r
	}
	for model, r := range overlay {
		merged[model] = r
	}
	return NewTable(merged, FallbackModel)
}

// Rates resolves a model id to its rate entry. Unknown or empty model ids
// resolve to the fallback entry; this lookup never fails.
func (t *Table) Rates(model string) ModelRates {
	if r, ok := t.rates[model]; ok {
		return r
	}
	return t.rates[t.fallback]
}

// Fallback returns the designated fallback model id.
func (t *Table) Fallback() string {
	return t.fallback
}

// Models returns the ids in the table, in no particular order.
func (t *Table) Models() []string {
	out := make([]string, 0, len(t.rates))
	for model := range t.rates {
		out = append(out, model)
	}
	return out
}

// Cost computes the USD cost of a usage record under the given model's rates.
// Pure: no state, no I/O. Token counts must be non-negative.
func (t *Table) Cost(model string, u Usage) float64 {
	r := t.Rates(model)
	return float64(u.InputTokens)/1_000_000*r.Input +
		float64(u.OutputTokens)/1_000_000*r.Output +
		float64(u.CacheCreationTokens)/1_000_000*r.CacheCreation +
		float64(u.CacheReadTokens)/1_000_000*r.CacheRead +
		float64(u.ReasoningTokens)/1_000_000*r.Reasoning
}

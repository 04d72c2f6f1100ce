package costing

import (
	"fmt"
	"strings"
)

// RenderHTML writes the cost summary fragment for the status dashboard.
func (t *Tracker) RenderHTML(b *strings.Builder) {
	snap := t.Snapshot()

	model := snap.Model
	if model == "" {
		model = "(default)"
	}

	b.WriteString(`<div class="summary">
  <div class="stat">
    <div class="stat-label">Cost</div>
    <div class="stat-value cost">`)
	fmt.Fprintf(b, "$%.4f", snap.Cost)
	b.WriteString(`</div>
  </div>
  <div class="stat">
    <div class="stat-label">Model</div>
    <div class="stat-value model">`)
	b.WriteString(htmlEscape(model))
	b.WriteString(`</div>
  </div>
  <div class="stat">
    <div class="stat-label">Tokens</div>
    <div class="stat-value">`)
	fmt.Fprintf(b, "%d", snap.Usage.TotalTokens())
	b.WriteString(`</div>
  </div>
  <div class="stat">
    <div class="stat-label">Updates</div>
    <div class="stat-value">`)
	fmt.Fprintf(b, "%d", snap.Updates)
	b.WriteString(`</div>
  </div>
</div>
<table>
<tr><th>Input</th><th>Output</th><th>Cache write</th><th>Cache read</th><th>Reasoning</th></tr>
`)
	fmt.Fprintf(b, "<tr><td>%d</td><td>%d</td><td>%d</td><td>%d</td><td>%d</td></tr>\n",
		snap.Usage.InputTokens, snap.Usage.OutputTokens,
		snap.Usage.CacheCreationTokens, snap.Usage.CacheReadTokens,
		snap.Usage.ReasoningTokens)
	b.WriteString("</table>\n")
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}

// Package agent drives the external AI coding agent as a subprocess.
//
// DESIGN: The agent is an opaque collaborator. harforge hands it one large
// instruction prompt, consumes its stream-json transcript line by line,
// persists every message, and forwards reported token usage to the cost
// tracker. The transcript format is parsed loosely with gjson - unknown
// message shapes are stored and otherwise ignored.
package agent

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/harforge/harforge/internal/config"
	"github.com/harforge/harforge/internal/costing"
	"github.com/harforge/harforge/internal/run"
)

// maxLineBytes bounds a single transcript line; agent messages carrying
// whole files can be large.
const maxLineBytes = 8 * 1024 * 1024

// Recorder persists raw agent messages. *messages.Store satisfies it.
type Recorder interface {
	Append(kind string, raw []byte) error
}

// UsageFunc receives token usage as the agent reports it.
type UsageFunc func(model string, u costing.Usage)

// CLI runs the claude CLI in stream-json mode and implements run.Engineer.
type CLI struct {
	Binary     string // "" = config.DefaultAgentBinary
	Model      string // optional model override
	ScriptsDir string // ensured before launch
	Recorder   Recorder
	OnUsage    UsageFunc
}

// AnalyzeAndGenerate launches the agent with the prompt and consumes its
// transcript until the process exits.
func (c *CLI) AnalyzeAndGenerate(ctx context.Context, promptText string) (*run.Result, error) {
	binary := c.Binary
	if binary == "" {
		binary = config.DefaultAgentBinary
	}
	if err := os.MkdirAll(c.ScriptsDir, config.DirPerm); err != nil {
		return nil, fmt.Errorf("agent: create scripts dir: %w", err)
	}

	args := []string{"-p", promptText, "--output-format", "stream-json", "--verbose"}
	if c.Model != "" {
		args = append(args, "--model", c.Model)
	}

	cmd := exec.CommandContext(ctx, binary, args...) // #nosec G204 -- binary from trusted config
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("agent: stdout pipe: %w", err)
	}
	var stderr tailBuffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("agent: start %s: %w", binary, err)
	}
	log.Info().Str("binary", binary).Str("model", c.Model).Msg("agent launched")

	result := &run.Result{}
	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		c.consumeLine(sc.Bytes(), result)
	}
	scanErr := sc.Err()

	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("agent: %s failed: %w (stderr: %s)", binary, err, stderr.Tail())
	}
	if scanErr != nil {
		return nil, fmt.Errorf("agent: read transcript: %w", scanErr)
	}
	return result, nil
}

// consumeLine persists one transcript line and extracts usage and the final
// result from it.
func (c *CLI) consumeLine(line []byte, result *run.Result) {
	if len(line) == 0 {
		return
	}

	kind := gjson.GetBytes(line, "type").String()
	if kind == "" {
		kind = "raw"
	}
	if c.Recorder != nil {
		if err := c.Recorder.Append(kind, line); err != nil {
			log.Warn().Err(err).Msg("persist agent message")
		}
	}

	switch kind {
	case "assistant":
		model := gjson.GetBytes(line, "message.model").String()
		u := usageAt(line, "message.usage")
		if u.TotalTokens() > 0 {
			result.Usage.Add(u)
			if c.OnUsage != nil {
				c.OnUsage(model, u)
			}
		}
	case "result":
		result.FinalText = gjson.GetBytes(line, "result").String()
		result.NumTurns = int(gjson.GetBytes(line, "num_turns").Int())
	}
}

// usageAt reads a usage object at the given gjson path. Missing fields
// default to zero.
func usageAt(line []byte, path string) costing.Usage {
	u := gjson.GetBytes(line, path)
	if !u.Exists() {
		return costing.Usage{}
	}
	return costing.Usage{
		InputTokens:         u.Get("input_tokens").Int(),
		OutputTokens:        u.Get("output_tokens").Int(),
		CacheCreationTokens: u.Get("cache_creation_input_tokens").Int(),
		CacheReadTokens:     u.Get("cache_read_input_tokens").Int(),
		ReasoningTokens:     u.Get("reasoning_tokens").Int(),
	}
}

// tailBuffer keeps the last config.AgentStderrTail bytes written to it.
type tailBuffer struct {
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - config.AgentStderrTail; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

// Tail returns the retained stderr tail as a trimmed string.
func (t *tailBuffer) Tail() string {
	return strings.TrimSpace(string(t.buf))
}

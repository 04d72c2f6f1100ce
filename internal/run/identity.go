// Package run orchestrates one analysis run: identity and paths, the sync
// session lifecycle, and cost aggregation. The AI agent performing the
// actual analysis is an external collaborator behind the Engineer interface.
package run

import (
	"context"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/harforge/harforge/internal/config"
	"github.com/harforge/harforge/internal/costing"
)

// Identity is the immutable identity of one run. Created once per
// invocation; owns the run's derived paths.
type Identity struct {
	ID           string
	HARPath      string
	Goal         string
	Model        string // optional override, "" = agent default
	Instructions string // optional extra instructions
	OutputRoot   string
	Fresh        bool
}

// NewIdentity creates an identity, minting a run id when none is supplied
// (resuming an earlier run passes its existing id).
func NewIdentity(id, harPath, goal string) Identity {
	if id == "" {
		id = uuid.NewString()
	}
	return Identity{
		ID:         id,
		HARPath:    harPath,
		Goal:       goal,
		OutputRoot: config.DefaultOutputRoot,
	}
}

// RunDir is the root of this run's artifacts.
func (id Identity) RunDir() string {
	return filepath.Join(id.OutputRoot, "runs", id.ID)
}

// ScriptsDir is where the agent writes generated scripts. It is the
// authoritative output; the sync mirror is a convenience copy.
func (id Identity) ScriptsDir() string {
	return filepath.Join(id.RunDir(), "scripts")
}

// DBPath is the run's conversation database.
func (id Identity) DBPath() string {
	return filepath.Join(id.RunDir(), config.MessagesDBName)
}

// EventsPath is the run's JSONL event log.
func (id Identity) EventsPath() string {
	return filepath.Join(id.RunDir(), config.EventsLogName)
}

// Result is what the Engineer produces for a completed run.
type Result struct {
	FinalText string
	Usage     costing.Usage
	NumTurns  int
}

// Engineer is the analyze-and-generate capability implemented by concrete
// agent drivers.
type Engineer interface {
	AnalyzeAndGenerate(ctx context.Context, prompt string) (*Result, error)
}

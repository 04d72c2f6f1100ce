package run_test

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harforge/harforge/internal/run"
)

func TestNewIdentity_MintsRunID(t *testing.T) {
	id := run.NewIdentity("", "/tmp/x.har", "goal")
	_, err := uuid.Parse(id.ID)
	require.NoError(t, err)

	other := run.NewIdentity("", "/tmp/x.har", "goal")
	assert.NotEqual(t, id.ID, other.ID)
}

func TestNewIdentity_KeepsSuppliedID(t *testing.T) {
	id := run.NewIdentity("run-7", "/tmp/x.har", "goal")
	assert.Equal(t, "run-7", id.ID)
}

func TestIdentity_DerivedPaths(t *testing.T) {
	id := run.NewIdentity("r1", "/tmp/x.har", "goal")
	id.OutputRoot = "/data"

	assert.Equal(t, filepath.Join("/data", "runs", "r1"), id.RunDir())
	assert.Equal(t, filepath.Join("/data", "runs", "r1", "scripts"), id.ScriptsDir())
	assert.Equal(t, filepath.Join("/data", "runs", "r1", "messages.db"), id.DBPath())
	assert.Equal(t, filepath.Join("/data", "runs", "r1", "events.jsonl"), id.EventsPath())
}

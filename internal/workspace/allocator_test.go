package workspace_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harforge/harforge/internal/workspace"
)

func TestAllocate_CreatesMissingBase(t *testing.T) {
	parent := t.TempDir()

	got, err := workspace.Allocate(parent, "run")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(parent, "run"), got)

	info, err := os.Stat(got)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestAllocate_ReusesEmptyBase(t *testing.T) {
	parent := t.TempDir()

	first, err := workspace.Allocate(parent, "run")
	require.NoError(t, err)

	second, err := workspace.Allocate(parent, "run")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAllocate_ProbesPastPopulatedDirs(t *testing.T) {
	parent := t.TempDir()

	base, err := workspace.Allocate(parent, "run")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(base, "api_client.py"), []byte("x"), 0o600))

	next, err := workspace.Allocate(parent, "run")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(parent, "run-2"), next)

	// Original contents untouched.
	data, err := os.ReadFile(filepath.Join(base, "api_client.py"))
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)

	// Populate run-2 as well; the third call probes to run-3.
	require.NoError(t, os.WriteFile(filepath.Join(next, "f"), nil, 0o600))
	third, err := workspace.Allocate(parent, "run")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(parent, "run-3"), third)
}

func TestAllocate_SkipsFileCollision(t *testing.T) {
	parent := t.TempDir()

	// A plain file occupying the base candidate is skipped, not clobbered.
	require.NoError(t, os.WriteFile(filepath.Join(parent, "run"), []byte("file"), 0o600))

	got, err := workspace.Allocate(parent, "run")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(parent, "run-2"), got)

	data, err := os.ReadFile(filepath.Join(parent, "run"))
	require.NoError(t, err)
	assert.Equal(t, []byte("file"), data)
}

func TestAllocate_EmptyBaseName(t *testing.T) {
	_, err := workspace.Allocate(t.TempDir(), "")
	assert.Error(t, err)
}

func TestAllocate_CreatesParent(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "nested", "scripts")

	got, err := workspace.Allocate(parent, "run")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(parent, "run"), got)
}

func TestFolderName(t *testing.T) {
	tests := []struct {
		name string
		goal string
		want string
	}{
		{"simple", "Scrape product listings", "scrape-product-listings"},
		{"punctuation", "Fetch /api/v2 orders!", "fetch-api-v2-orders"},
		{"word cap", "one two three four five six seven eight", "one-two-three-four-five-six"},
		{"empty", "", "api-scripts"},
		{"symbols only", "!!! ???", "api-scripts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, workspace.FolderName(tt.goal))
		})
	}
}

func TestFolderName_BoundedLength(t *testing.T) {
	got := workspace.FolderName("supercalifragilistic expialidocious antidisestablishmentarianism")
	assert.LessOrEqual(t, len(got), 48)
	assert.NotEmpty(t, got)
}

// Package config - defaults.go centralizes magic numbers and default values.
//
// DESIGN: All default values that appear in multiple places should be defined here.
// This makes configuration more maintainable and auditable.
package config

import "time"

// =============================================================================
// TOKEN ESTIMATION
// =============================================================================

// TokenEstimateRatio is the approximate number of characters per token.
// Used for rough token counting when the tiktoken encoding isn't available.
const TokenEstimateRatio = 4

// =============================================================================
// SYNC DEFAULTS
// =============================================================================

// DefaultDebounce is the quiet period after the last filesystem event before
// a mirror pass runs.
const DefaultDebounce = 500 * time.Millisecond

// DefaultWorkspaceRoot is the directory (relative to the working directory)
// under which mirrored script workspaces are allocated.
const DefaultWorkspaceRoot = "scripts"

// =============================================================================
// WORKSPACE ALLOCATOR
// =============================================================================

// MaxSlotProbes bounds the suffix search when allocating a workspace directory.
// Beyond this the allocator reports resource exhaustion rather than looping.
const MaxSlotProbes = 500

// =============================================================================
// FILESYSTEM PERMISSIONS
// =============================================================================

// DirPerm is the permission mode for directories created by harforge.
const DirPerm = 0o750

// FilePerm is the permission mode for files created by harforge.
const FilePerm = 0o600

// =============================================================================
// RUN LAYOUT
// =============================================================================

// DefaultOutputRoot is where run artifacts land when no override is given.
const DefaultOutputRoot = ".harforge"

// MessagesDBName is the per-run conversation database filename.
const MessagesDBName = "messages.db"

// EventsLogName is the per-run JSONL event log filename.
const EventsLogName = "events.jsonl"

// =============================================================================
// AGENT
// =============================================================================

// DefaultAgentBinary is the external coding agent invoked for analysis.
const DefaultAgentBinary = "claude"

// AgentStderrTail is how many trailing stderr bytes to keep for error reports.
const AgentStderrTail = 2048

// =============================================================================
// STATUS SERVER
// =============================================================================

// StatusRefreshInterval is how often the websocket feed pushes a snapshot.
const StatusRefreshInterval = 1 * time.Second

/*
Package learning tracks which source files are read through the MCP tools
and turns that history into popularity scores.

Tracking is asynchronous and never blocks a tool call. Popularity combines how
often a file was read in the last week with how recently it was read, and is
used as a small boost when fusing search results.
*/
package learning

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/khanglvm/ifs-cloud-mcp/internal/storage"
)

// UsageEvent represents a file read with context for learning.
type UsageEvent struct {
	// Path is the source-relative path of the file that was read.
	Path string

	// Tool is the MCP tool that read the file.
	Tool string

	// ContextHash is the SHA256 hash of the query that led to the read.
	ContextHash string

	// Timestamp is when the file was read.
	Timestamp time.Time
}

// NewUsageEvent creates a new usage event for tracking.
func NewUsageEvent(path, tool, context string) UsageEvent {
	return UsageEvent{
		Path:        path,
		Tool:        tool,
		ContextHash: hashContext(context),
		Timestamp:   time.Now(),
	}
}

// ToStorage converts learning event to storage model.
func (e UsageEvent) ToStorage() storage.UsageEvent {
	return storage.UsageEvent{
		Path:        e.Path,
		Tool:        e.Tool,
		ContextHash: e.ContextHash,
		Timestamp:   e.Timestamp,
	}
}

// hashContext creates a SHA256 hash of context for privacy.
func hashContext(context string) string {
	if context == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(context))
	return hex.EncodeToString(hash[:])
}

// Package compliance re-exports the workspace registry for host modules
// that should not import components/ directly.
package compliance

import (
	"time"

	core "github.com/goliatone/go-compliance-dashboard/components/compliance"
)

// Workspaces exposes the underlying components/compliance.Workspaces type.
type Workspaces = core.Workspaces

// WorkspaceOptions re-export for convenience.
type WorkspaceOptions = core.WorkspaceOptions

// NewWorkspaces proxies to the internal constructor.
func NewWorkspaces(opts WorkspaceOptions, idleTTL time.Duration) *Workspaces {
	return core.NewWorkspaces(opts, idleTTL)
}

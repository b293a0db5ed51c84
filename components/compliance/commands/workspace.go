// Package commands exposes the dashboard interactions as go-command
// commanders so HTTP, router and CLI transports share one code path.
package commands

import (
	"errors"

	"github.com/goliatone/go-compliance-dashboard/components/compliance"
)

var errMissingWorkspaces = errors.New("commands: workspace registry not configured")

// WorkspaceResolver returns the session workspace for an id, creating it
// when missing.
type WorkspaceResolver interface {
	Ensure(id string) (*compliance.Workspace, error)
}

func resolveController(resolver WorkspaceResolver, workspaceID string, kind compliance.SurfaceKind) (*compliance.Controller, error) {
	if resolver == nil {
		return nil, errMissingWorkspaces
	}
	ws, err := resolver.Ensure(workspaceID)
	if err != nil {
		return nil, err
	}
	return ws.Controller(kind)
}

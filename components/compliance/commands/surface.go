package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-compliance-dashboard/components/compliance"
)

// ChangeFilterInput is a user edit of one filter control.
type ChangeFilterInput struct {
	WorkspaceID string                     `json:"workspace_id"`
	Surface     compliance.SurfaceKind     `json:"surface"`
	Dimension   compliance.FilterDimension `json:"dimension"`
	Value       string                     `json:"value"`
}

// ChangeFilterCommand applies a filter edit and refreshes the surface.
type ChangeFilterCommand struct {
	workspaces WorkspaceResolver
	telemetry  Telemetry
}

// NewChangeFilterCommand creates the command.
func NewChangeFilterCommand(workspaces WorkspaceResolver, telemetry Telemetry) *ChangeFilterCommand {
	return &ChangeFilterCommand{workspaces: workspaces, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ChangeFilterInput] = (*ChangeFilterCommand)(nil)

// Execute routes the edit to the surface controller.
func (c *ChangeFilterCommand) Execute(ctx context.Context, msg ChangeFilterInput) error {
	ctrl, err := resolveController(c.workspaces, msg.WorkspaceID, msg.Surface)
	if err != nil {
		return err
	}
	outcome, err := ctrl.ChangeFilter(ctx, msg.Dimension, msg.Value)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "compliance.command.filter", map[string]any{
		"workspace_id": msg.WorkspaceID,
		"surface":      string(msg.Surface),
		"dimension":    string(msg.Dimension),
		"outcome":      string(outcome),
	})
	return nil
}

// RefreshSurfaceInput asks a surface to reload its current selection.
type RefreshSurfaceInput struct {
	WorkspaceID string                 `json:"workspace_id"`
	Surface     compliance.SurfaceKind `json:"surface"`
}

// RefreshSurfaceCommand runs one refresh cycle.
type RefreshSurfaceCommand struct {
	workspaces WorkspaceResolver
	telemetry  Telemetry
}

// NewRefreshSurfaceCommand creates the command.
func NewRefreshSurfaceCommand(workspaces WorkspaceResolver, telemetry Telemetry) *RefreshSurfaceCommand {
	return &RefreshSurfaceCommand{workspaces: workspaces, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RefreshSurfaceInput] = (*RefreshSurfaceCommand)(nil)

// Execute refreshes the surface. Dropped and failed refreshes are not
// errors; the view already reflects them.
func (c *RefreshSurfaceCommand) Execute(ctx context.Context, msg RefreshSurfaceInput) error {
	ctrl, err := resolveController(c.workspaces, msg.WorkspaceID, msg.Surface)
	if err != nil {
		return err
	}
	outcome := ctrl.Refresh(ctx)
	c.telemetry.Record(ctx, "compliance.command.refresh", map[string]any{
		"workspace_id": msg.WorkspaceID,
		"surface":      string(msg.Surface),
		"outcome":      string(outcome),
	})
	return nil
}

// ActivateSurfaceInput shows or hides a surface. Params carries the route
// when the surface is shown.
type ActivateSurfaceInput struct {
	WorkspaceID string                 `json:"workspace_id"`
	Surface     compliance.SurfaceKind `json:"surface"`
	Params      compliance.RouteParams `json:"-"`
	Deactivate  bool                   `json:"deactivate,omitempty"`
}

// ActivateSurfaceCommand forwards visibility changes to the controller.
type ActivateSurfaceCommand struct {
	workspaces WorkspaceResolver
	telemetry  Telemetry
}

// NewActivateSurfaceCommand creates the command.
func NewActivateSurfaceCommand(workspaces WorkspaceResolver, telemetry Telemetry) *ActivateSurfaceCommand {
	return &ActivateSurfaceCommand{workspaces: workspaces, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ActivateSurfaceInput] = (*ActivateSurfaceCommand)(nil)

// Execute activates or deactivates the surface.
func (c *ActivateSurfaceCommand) Execute(ctx context.Context, msg ActivateSurfaceInput) error {
	ctrl, err := resolveController(c.workspaces, msg.WorkspaceID, msg.Surface)
	if err != nil {
		return err
	}
	fields := map[string]any{
		"workspace_id": msg.WorkspaceID,
		"surface":      string(msg.Surface),
	}
	if msg.Deactivate {
		ctrl.OnDeactivate(ctx)
		c.telemetry.Record(ctx, "compliance.command.deactivate", fields)
		return nil
	}
	fields["outcome"] = string(ctrl.OnActivate(ctx, msg.Params))
	c.telemetry.Record(ctx, "compliance.command.activate", fields)
	return nil
}

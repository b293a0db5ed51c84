package commands

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-compliance-dashboard/components/compliance"
)

// SelectCustomerInput announces the customer picked by the user or loaded by
// the host.
type SelectCustomerInput struct {
	WorkspaceID string                       `json:"workspace_id"`
	CustomerID  string                       `json:"customer"`
	Kind        compliance.CustomerEventKind `json:"kind,omitempty"`
}

// SelectCustomerCommand publishes the customer to every surface of the
// workspace.
type SelectCustomerCommand struct {
	workspaces WorkspaceResolver
	telemetry  Telemetry
}

// NewSelectCustomerCommand creates the command.
func NewSelectCustomerCommand(workspaces WorkspaceResolver, telemetry Telemetry) *SelectCustomerCommand {
	return &SelectCustomerCommand{workspaces: workspaces, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SelectCustomerInput] = (*SelectCustomerCommand)(nil)

// Execute publishes the customer event.
func (c *SelectCustomerCommand) Execute(ctx context.Context, msg SelectCustomerInput) error {
	if c.workspaces == nil {
		return errMissingWorkspaces
	}
	ws, err := c.workspaces.Ensure(msg.WorkspaceID)
	if err != nil {
		return err
	}
	kind := msg.Kind
	if kind == "" || kind == compliance.CustomerSaved {
		kind = compliance.CustomerLoaded
	}
	customer := strings.TrimSpace(msg.CustomerID)
	ws.Signal.Publish(ctx, compliance.CustomerEvent{Kind: kind, CustomerID: customer})
	c.telemetry.Record(ctx, "compliance.command.customer", map[string]any{
		"workspace_id": ws.ID,
		"customer":     customer,
		"kind":         string(kind),
	})
	return nil
}

// EntitySavedInput reports that the host saved a customer record.
type EntitySavedInput struct {
	WorkspaceID string `json:"workspace_id"`
	CustomerID  string `json:"customer"`
	IsNew       bool   `json:"is_new"`
}

// EntitySavedCommand fans the save out to every surface of the workspace.
type EntitySavedCommand struct {
	workspaces WorkspaceResolver
	telemetry  Telemetry
}

// NewEntitySavedCommand creates the command.
func NewEntitySavedCommand(workspaces WorkspaceResolver, telemetry Telemetry) *EntitySavedCommand {
	return &EntitySavedCommand{workspaces: workspaces, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[EntitySavedInput] = (*EntitySavedCommand)(nil)

// Execute publishes a saved event.
func (c *EntitySavedCommand) Execute(ctx context.Context, msg EntitySavedInput) error {
	if c.workspaces == nil {
		return errMissingWorkspaces
	}
	ws, err := c.workspaces.Ensure(msg.WorkspaceID)
	if err != nil {
		return err
	}
	customer := strings.TrimSpace(msg.CustomerID)
	ws.Signal.Publish(ctx, compliance.CustomerEvent{
		Kind:       compliance.CustomerSaved,
		CustomerID: customer,
		IsNew:      msg.IsNew,
	})
	c.telemetry.Record(ctx, "compliance.command.saved", map[string]any{
		"workspace_id": ws.ID,
		"customer":     customer,
		"is_new":       msg.IsNew,
	})
	return nil
}

package httpapi

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-compliance-dashboard/components/compliance/commands"
)

// Executor is the transport-neutral command surface used by router
// adapters.
type Executor interface {
	SelectCustomer(ctx context.Context, input commands.SelectCustomerInput) error
	ChangeFilter(ctx context.Context, input commands.ChangeFilterInput) error
	Refresh(ctx context.Context, input commands.RefreshSurfaceInput) error
	EntitySaved(ctx context.Context, input commands.EntitySavedInput) error
	Activate(ctx context.Context, input commands.ActivateSurfaceInput) error
}

// CommandExecutor adapts go-command commanders to Executor.
type CommandExecutor struct {
	SelectCustomerCommander gocommand.Commander[commands.SelectCustomerInput]
	ChangeFilterCommander   gocommand.Commander[commands.ChangeFilterInput]
	RefreshCommander        gocommand.Commander[commands.RefreshSurfaceInput]
	EntitySavedCommander    gocommand.Commander[commands.EntitySavedInput]
	ActivateCommander       gocommand.Commander[commands.ActivateSurfaceInput]
}

var errCommandNotConfigured = errors.New("httpapi: command not configured")

func (e *CommandExecutor) SelectCustomer(ctx context.Context, input commands.SelectCustomerInput) error {
	return execute(ctx, e.SelectCustomerCommander, input)
}

func (e *CommandExecutor) ChangeFilter(ctx context.Context, input commands.ChangeFilterInput) error {
	return execute(ctx, e.ChangeFilterCommander, input)
}

func (e *CommandExecutor) Refresh(ctx context.Context, input commands.RefreshSurfaceInput) error {
	return execute(ctx, e.RefreshCommander, input)
}

func (e *CommandExecutor) EntitySaved(ctx context.Context, input commands.EntitySavedInput) error {
	return execute(ctx, e.EntitySavedCommander, input)
}

func (e *CommandExecutor) Activate(ctx context.Context, input commands.ActivateSurfaceInput) error {
	return execute(ctx, e.ActivateCommander, input)
}

func execute[T any](ctx context.Context, cmd gocommand.Commander[T], input T) error {
	if cmd == nil {
		return errCommandNotConfigured
	}
	return cmd.Execute(ctx, input)
}

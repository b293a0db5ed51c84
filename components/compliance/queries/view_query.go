// Package queries holds the read side of the compliance dashboard.
package queries

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-compliance-dashboard/components/compliance"
)

type workspaceResolver interface {
	Ensure(id string) (*compliance.Workspace, error)
}

// ViewInput addresses one surface of a workspace.
type ViewInput struct {
	WorkspaceID string                 `json:"workspace_id"`
	Surface     compliance.SurfaceKind `json:"surface"`
}

// ViewQuery returns the current view of a surface without fetching.
type ViewQuery struct {
	workspaces workspaceResolver
}

// NewViewQuery builds the query.
func NewViewQuery(workspaces workspaceResolver) *ViewQuery {
	return &ViewQuery{workspaces: workspaces}
}

var _ gocommand.Querier[ViewInput, compliance.View] = (*ViewQuery)(nil)

// Query resolves the surface view.
func (q *ViewQuery) Query(ctx context.Context, input ViewInput) (compliance.View, error) {
	if q.workspaces == nil {
		return compliance.View{}, errors.New("queries: workspace registry not configured")
	}
	ws, err := q.workspaces.Ensure(input.WorkspaceID)
	if err != nil {
		return compliance.View{}, err
	}
	ctrl, err := ws.Controller(input.Surface)
	if err != nil {
		return compliance.View{}, err
	}
	return ctrl.View(), nil
}

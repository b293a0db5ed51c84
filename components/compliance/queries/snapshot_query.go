package queries

import (
	"context"
	"fmt"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-compliance-dashboard/components/compliance"
)

// SnapshotInput selects what a one-shot render should show.
type SnapshotInput struct {
	Surface    compliance.SurfaceKind                `json:"surface"`
	CustomerID string                                `json:"customer"`
	Filters    map[compliance.FilterDimension]string `json:"filters,omitempty"`
}

// SnapshotOptions configures the throwaway controller used per snapshot.
type SnapshotOptions struct {
	Surfaces   map[compliance.SurfaceKind]compliance.Surface
	Fetcher    compliance.Fetcher
	Charts     compliance.ChartFactory
	Telemetry  compliance.Telemetry
	Translator compliance.TranslationService
}

// SnapshotQuery mounts a fresh surface, runs one refresh and returns the
// painted view. It backs CLI and report exports.
type SnapshotQuery struct {
	opts SnapshotOptions
}

// NewSnapshotQuery builds the query.
func NewSnapshotQuery(opts SnapshotOptions) *SnapshotQuery {
	if opts.Surfaces == nil {
		opts.Surfaces = compliance.DefaultSurfaces()
	}
	return &SnapshotQuery{opts: opts}
}

var _ gocommand.Querier[SnapshotInput, compliance.View] = (*SnapshotQuery)(nil)

// Query renders the snapshot. A failed fetch is reported as an error even
// though the view shows the empty state.
func (q *SnapshotQuery) Query(ctx context.Context, input SnapshotInput) (compliance.View, error) {
	kind := input.Surface
	if kind == "" {
		kind = compliance.SurfacePage
	}
	surface, ok := q.opts.Surfaces[kind]
	if !ok {
		return compliance.View{}, fmt.Errorf("%w: %s", compliance.ErrUnknownSurface, kind)
	}
	ctrl, err := compliance.NewController(compliance.Options{
		Surface:    surface,
		Fetcher:    q.opts.Fetcher,
		Charts:     q.opts.Charts,
		Telemetry:  q.opts.Telemetry,
		Translator: q.opts.Translator,
	})
	if err != nil {
		return compliance.View{}, err
	}
	for dim, value := range input.Filters {
		if dim == compliance.FilterCustomer {
			continue
		}
		control, ok := ctrl.Control(dim)
		if !ok {
			return compliance.View{}, fmt.Errorf("%w: %s", compliance.ErrFilterNotMounted, dim)
		}
		control.SetValue(value)
	}
	switch outcome := ctrl.SetCustomer(ctx, input.CustomerID); outcome {
	case compliance.OutcomeRendered, compliance.OutcomeSkipped:
		return ctrl.View(), nil
	default:
		return ctrl.View(), fmt.Errorf("queries: snapshot %s: %s", kind, outcome)
	}
}

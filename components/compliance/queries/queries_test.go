package queries

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-compliance-dashboard/components/compliance"
)

func fetcher(calls *int, fail error) compliance.Fetcher {
	return compliance.FetcherFunc(func(_ context.Context, req compliance.Request) (compliance.Payload, error) {
		*calls++
		if fail != nil {
			return compliance.Payload{}, fail
		}
		return compliance.ParsePayload(map[string]any{
			"summary": map[string]any{"total_documents": 12},
			"profile": map[string]any{"customer_id": req.CustomerID},
		}), nil
	})
}

func TestViewQueryDoesNotFetch(t *testing.T) {
	calls := 0
	reg := compliance.NewWorkspaces(compliance.WorkspaceOptions{Fetcher: fetcher(&calls, nil)}, 0)
	query := NewViewQuery(reg)
	view, err := query.Query(context.Background(), ViewInput{WorkspaceID: "ws-1", Surface: compliance.SurfaceIndicator})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no fetch, got %d", calls)
	}
	if view.Surface != compliance.SurfaceIndicator {
		t.Fatalf("unexpected surface %q", view.Surface)
	}
	if _, err := query.Query(context.Background(), ViewInput{WorkspaceID: "ws-1", Surface: "nope"}); !errors.Is(err, compliance.ErrUnknownSurface) {
		t.Fatalf("expected unknown surface, got %v", err)
	}
}

func TestSnapshotQuery(t *testing.T) {
	calls := 0
	query := NewSnapshotQuery(SnapshotOptions{Fetcher: fetcher(&calls, nil)})
	view, err := query.Query(context.Background(), SnapshotInput{
		CustomerID: "CUST-001",
		Filters:    map[compliance.FilterDimension]string{compliance.FilterStatus: ""},
	})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one fetch, got %d", calls)
	}
	if view.CustomerID != "CUST-001" || view.Surface != compliance.SurfacePage {
		t.Fatalf("unexpected view %#v", view)
	}
}

func TestSnapshotQueryErrors(t *testing.T) {
	calls := 0
	query := NewSnapshotQuery(SnapshotOptions{Fetcher: fetcher(&calls, errors.New("down"))})
	if _, err := query.Query(context.Background(), SnapshotInput{CustomerID: "CUST-001"}); err == nil {
		t.Fatalf("expected failed fetch to surface as error")
	}
	_, err := query.Query(context.Background(), SnapshotInput{
		Surface:    compliance.SurfaceFormTab,
		CustomerID: "CUST-001",
		Filters:    map[compliance.FilterDimension]string{"region": "x"},
	})
	if !errors.Is(err, compliance.ErrFilterNotMounted) {
		t.Fatalf("expected unmounted filter error, got %v", err)
	}
	view, err := query.Query(context.Background(), SnapshotInput{})
	if err != nil || view.CustomerID != "" {
		t.Fatalf("empty customer should render the empty state, got %v", err)
	}
}

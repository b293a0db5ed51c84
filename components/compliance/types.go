package compliance

import (
	"context"
)

// FilterDimension names one filter control of a dashboard surface.
type FilterDimension string

const (
	FilterCustomer     FilterDimension = "customer"
	FilterYear         FilterDimension = "year"
	FilterDocumentType FilterDimension = "document_type"
	FilterStatus       FilterDimension = "status"
)

// Fetcher issues the aggregate dashboard request against the host RPC layer.
// A nil error means the payload is authoritative for the request's selection.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (Payload, error)
}

// FetcherFunc adapts ordinary functions to Fetcher.
type FetcherFunc func(ctx context.Context, req Request) (Payload, error)

// Fetch calls f(ctx, req).
func (f FetcherFunc) Fetch(ctx context.Context, req Request) (Payload, error) {
	return f(ctx, req)
}

// Request is the single fetch issued by a refresh.
type Request struct {
	RequestID  string  `json:"request_id"`
	CustomerID string  `json:"customer"`
	Filters    Filters `json:"filters"`
}

// Filters holds the value of each filter dimension. A nil pointer means the
// surface has no control mounted for that dimension; an empty string is the
// blank "any" option.
type Filters struct {
	Year         *string `json:"year"`
	DocumentType *string `json:"doctype"`
	Status       *string `json:"status"`
}

// Value returns the filter value for a dimension and whether it is set.
func (f Filters) Value(dim FilterDimension) (string, bool) {
	var ptr *string
	switch dim {
	case FilterYear:
		ptr = f.Year
	case FilterDocumentType:
		ptr = f.DocumentType
	case FilterStatus:
		ptr = f.Status
	}
	if ptr == nil {
		return "", false
	}
	return *ptr, true
}

// With returns a copy of f with the dimension set to value.
func (f Filters) With(dim FilterDimension, value string) Filters {
	v := value
	switch dim {
	case FilterYear:
		f.Year = &v
	case FilterDocumentType:
		f.DocumentType = &v
	case FilterStatus:
		f.Status = &v
	}
	return f
}

// Equal compares two filter sets treating nil and nil as equal.
func (f Filters) Equal(other Filters) bool {
	return equalOptional(f.Year, other.Year) &&
		equalOptional(f.DocumentType, other.DocumentType) &&
		equalOptional(f.Status, other.Status)
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Selection is the (customer, filters) tuple driving a surface.
type Selection struct {
	CustomerID string
	Filters    Filters
}

// Equal reports whether both selections would fetch the same data.
func (s Selection) Equal(other Selection) bool {
	return s.CustomerID == other.CustomerID && s.Filters.Equal(other.Filters)
}

// Payload is the aggregate returned for one selection.
type Payload struct {
	Customer      string                        `json:"customer,omitempty"`
	Summary       map[string]any                `json:"summary"`
	Charts        map[string]ChartData          `json:"charts"`
	AuditTimeline []TimelineEntry               `json:"audit_timeline"`
	Profile       map[string]any                `json:"profile"`
	FilterOptions map[FilterDimension][]string `json:"available_filter_options"`
}

// ChartData is the labels/datasets series structure fed to chart widgets.
type ChartData struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Dataset is one named value sequence of a chart.
type Dataset struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// EmptyChartData is the series a chart is reset to.
func EmptyChartData() ChartData {
	return ChartData{
		Labels:   []string{},
		Datasets: []Dataset{{Values: []float64{}}},
	}
}

// IsEmpty reports whether the chart carries no plottable values.
func (d ChartData) IsEmpty() bool {
	for _, ds := range d.Datasets {
		if len(ds.Values) > 0 {
			return false
		}
	}
	return true
}

func (d ChartData) clone() ChartData {
	out := ChartData{
		Labels:   append([]string{}, d.Labels...),
		Datasets: make([]Dataset, len(d.Datasets)),
	}
	for i, ds := range d.Datasets {
		out.Datasets[i] = Dataset{Name: ds.Name, Values: append([]float64{}, ds.Values...)}
	}
	return out
}

// TimelineEntry is one audit log row, newest first.
type TimelineEntry struct {
	Timestamp string         `json:"timestamp"`
	User      string         `json:"user"`
	Action    string         `json:"action"`
	Entity    string         `json:"entity,omitempty"`
	Remarks   string         `json:"remarks,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// RefreshOutcome describes what a Refresh call did.
type RefreshOutcome string

const (
	OutcomeSkipped  RefreshOutcome = "skipped"
	OutcomeInactive RefreshOutcome = "inactive"
	OutcomeDropped  RefreshOutcome = "dropped"
	OutcomeRendered RefreshOutcome = "rendered"
	OutcomeFailed   RefreshOutcome = "failed"
	OutcomeStale    RefreshOutcome = "stale"
)

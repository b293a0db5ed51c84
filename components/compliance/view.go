package compliance

import (
	"context"
	"time"
)

// View is a point-in-time snapshot of every region on a surface.
type View struct {
	Surface    SurfaceKind   `json:"surface"`
	Title      string        `json:"title"`
	CustomerID string        `json:"customer_id"`
	Loading    bool          `json:"loading"`
	Status     Status        `json:"status"`
	Filters    []FilterView  `json:"filters,omitempty"`
	Metrics    []MetricView  `json:"metrics,omitempty"`
	Charts     []ChartView   `json:"charts,omitempty"`
	Timeline   *TimelineView `json:"timeline,omitempty"`
	Profile    *ProfileView  `json:"profile,omitempty"`
	Indicators []Indicator   `json:"indicators,omitempty"`
	Revision   uint64        `json:"revision"`
	RenderedAt time.Time     `json:"rendered_at"`
}

// FilterView mirrors one mounted filter control.
type FilterView struct {
	Dimension FilterDimension `json:"dimension"`
	Label     string          `json:"label"`
	Options   []string        `json:"options"`
	Value     string          `json:"value"`
}

// MetricView is one summary card.
type MetricView struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// ChartView is one chart region.
type ChartView struct {
	Key   string    `json:"key"`
	Title string    `json:"title"`
	Type  string    `json:"type"`
	Data  ChartData `json:"data"`
	HTML  string    `json:"html,omitempty"`
}

// TimelineView is the audit timeline region. Empty is set exactly when
// there are no rows.
type TimelineView struct {
	Rows  []TimelineRow `json:"rows"`
	Empty string        `json:"empty,omitempty"`
}

// TimelineRow is one rendered audit entry.
type TimelineRow struct {
	Timestamp string `json:"timestamp"`
	User      string `json:"user"`
	Action    string `json:"action"`
	Entity    string `json:"entity,omitempty"`
	Remarks   string `json:"remarks,omitempty"`
	Payload   string `json:"payload,omitempty"`
}

// ProfileView is the profile panel region.
type ProfileView struct {
	Rows  []ProfileRow `json:"rows"`
	Empty string       `json:"empty,omitempty"`
}

// ProfileRow is one label/value pair of the profile panel.
type ProfileRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Indicator is one pill of the indicator strip.
type Indicator struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// ViewSink is told about every repaint.
type ViewSink interface {
	ViewUpdated(ctx context.Context, workspaceID string, view View)
}

// ViewSinks fans a repaint out to several sinks.
type ViewSinks []ViewSink

// ViewUpdated forwards to every non-nil sink.
func (s ViewSinks) ViewUpdated(ctx context.Context, workspaceID string, view View) {
	for _, sink := range s {
		if sink != nil {
			sink.ViewUpdated(ctx, workspaceID, view)
		}
	}
}

type noopViewSink struct{}

func (noopViewSink) ViewUpdated(context.Context, string, View) {}

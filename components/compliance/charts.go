package compliance

import (
	"context"
	"fmt"
)

// ChartRegion identifies the container a chart widget is mounted in.
type ChartRegion struct {
	Surface SurfaceKind
	Key     string
	Title   string
}

// ChartConfig is handed to the chart factory when a widget is created.
type ChartConfig struct {
	Type   string
	Data   ChartData
	Height int
	Colors []string
}

// ChartWidget is a live chart inside a region.
type ChartWidget interface {
	Update(data ChartData) error
}

// ChartMarkup is implemented by widgets that render server-side markup.
type ChartMarkup interface {
	HTML() string
}

// ChartFactory creates chart widgets.
type ChartFactory interface {
	NewChart(region ChartRegion, cfg ChartConfig) (ChartWidget, error)
}

// ChartFactoryFunc adapts a function to ChartFactory.
type ChartFactoryFunc func(region ChartRegion, cfg ChartConfig) (ChartWidget, error)

// NewChart calls f(region, cfg).
func (f ChartFactoryFunc) NewChart(region ChartRegion, cfg ChartConfig) (ChartWidget, error) {
	return f(region, cfg)
}

// chartSlot owns the widget of one region and recovers from failed updates
// by recreating it.
type chartSlot struct {
	spec    ChartSpec
	region  ChartRegion
	widget  ChartWidget
	data    ChartData
	created int
}

func (s *chartSlot) config(data ChartData) ChartConfig {
	return ChartConfig{
		Type:   s.spec.Type,
		Data:   data,
		Height: s.spec.Height,
		Colors: append([]string{}, DefaultChartColors...),
	}
}

// apply pushes data into the widget. A missing widget is created; a failing
// Update discards the widget and creates a fresh one with the same data.
func (s *chartSlot) apply(ctx context.Context, factory ChartFactory, telemetry Telemetry, data ChartData) error {
	s.data = data.clone()
	if factory == nil {
		return nil
	}
	if s.widget == nil {
		return s.create(factory, data)
	}
	err := s.widget.Update(data)
	if err == nil {
		return nil
	}
	telemetry.Record(ctx, "compliance.chart.recreate", map[string]any{
		"surface": string(s.region.Surface),
		"chart":   s.region.Key,
		"error":   err.Error(),
	})
	s.widget = nil
	return s.create(factory, data)
}

// reset empties an existing widget; regions never drawn stay untouched.
func (s *chartSlot) reset(ctx context.Context, factory ChartFactory, telemetry Telemetry) error {
	empty := EmptyChartData()
	if s.widget == nil {
		s.data = empty
		return nil
	}
	return s.apply(ctx, factory, telemetry, empty)
}

func (s *chartSlot) create(factory ChartFactory, data ChartData) error {
	widget, err := factory.NewChart(s.region, s.config(data))
	if err != nil {
		return fmt.Errorf("compliance: create chart %s: %w", s.region.Key, err)
	}
	s.widget = widget
	s.created++
	return nil
}

func (s *chartSlot) markup() string {
	if s.widget == nil {
		return ""
	}
	if m, ok := s.widget.(ChartMarkup); ok {
		return m.HTML()
	}
	return ""
}

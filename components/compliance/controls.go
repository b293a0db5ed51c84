package compliance

import (
	"context"
	"sync"
)

// FilterControl is a select/link input mounted by the host. SetValue and
// SetOptions never invoke change callbacks; only user input does.
type FilterControl interface {
	Value() string
	SetValue(value string)
	Options() []string
	SetOptions(options []string)
	Refresh()
	OnChange(fn func(ctx context.Context, value string))
}

// ControlSpec configures a new filter control.
type ControlSpec struct {
	Dimension FilterDimension
	Label     string
	Options   []string
}

// ControlFactory creates filter controls for a surface.
type ControlFactory interface {
	NewControl(spec ControlSpec) (FilterControl, error)
}

// ControlFactoryFunc adapts a function to ControlFactory.
type ControlFactoryFunc func(spec ControlSpec) (FilterControl, error)

// NewControl calls f(spec).
func (f ControlFactoryFunc) NewControl(spec ControlSpec) (FilterControl, error) {
	return f(spec)
}

// SelectControlFactory builds in-memory SelectControls.
type SelectControlFactory struct{}

// NewControl returns a SelectControl seeded with spec.Options.
func (SelectControlFactory) NewControl(spec ControlSpec) (FilterControl, error) {
	return NewSelectControl(spec), nil
}

// SelectControl is the default concurrency-safe FilterControl used when the
// dashboard is served by this module rather than a client-side toolkit.
type SelectControl struct {
	mu        sync.RWMutex
	dimension FilterDimension
	label     string
	options   []string
	value     string
	refreshes int
	listeners []func(context.Context, string)
}

// NewSelectControl creates a control holding spec's options.
func NewSelectControl(spec ControlSpec) *SelectControl {
	return &SelectControl{
		dimension: spec.Dimension,
		label:     spec.Label,
		options:   append([]string{}, spec.Options...),
	}
}

// Dimension returns the filter dimension the control is bound to.
func (c *SelectControl) Dimension() FilterDimension { return c.dimension }

// Label returns the control label.
func (c *SelectControl) Label() string { return c.label }

// Value returns the current selection.
func (c *SelectControl) Value() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// SetValue replaces the selection without notifying listeners.
func (c *SelectControl) SetValue(value string) {
	c.mu.Lock()
	c.value = value
	c.mu.Unlock()
}

// Options returns a copy of the option list.
func (c *SelectControl) Options() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string{}, c.options...)
}

// SetOptions replaces the option list. Callers follow with Refresh.
func (c *SelectControl) SetOptions(options []string) {
	c.mu.Lock()
	c.options = append([]string{}, options...)
	c.mu.Unlock()
}

// Refresh re-binds the selection to the option list: a value that is no
// longer offered falls back to the blank option. Link controls (customer)
// carry no option list and keep any value.
func (c *SelectControl) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshes++
	if len(c.options) == 0 {
		return
	}
	for _, opt := range c.options {
		if opt == c.value {
			return
		}
	}
	c.value = ""
}

// Refreshes reports how many times Refresh ran.
func (c *SelectControl) Refreshes() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshes
}

// OnChange subscribes fn to user changes.
func (c *SelectControl) OnChange(fn func(ctx context.Context, value string)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Change simulates user input: it stores value and notifies listeners.
func (c *SelectControl) Change(ctx context.Context, value string) {
	c.mu.Lock()
	c.value = value
	listeners := append([]func(context.Context, string){}, c.listeners...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(ctx, value)
	}
}

package compliance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Renderer describes the template renderer contract used by the presenter.
type Renderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
}

// DefaultTemplate is the embedded surface template name.
const DefaultTemplate = "dashboard"

// Presenter renders View snapshots to HTML.
type Presenter struct {
	renderer Renderer
	template string
}

// NewPresenter wraps renderer. An empty template name uses DefaultTemplate.
func NewPresenter(renderer Renderer, template string) *Presenter {
	if template == "" {
		template = DefaultTemplate
	}
	return &Presenter{renderer: renderer, template: template}
}

// Present writes the HTML of view to out.
func (p *Presenter) Present(view View, out io.Writer) error {
	if p == nil || p.renderer == nil {
		return fmt.Errorf("compliance: renderer not configured")
	}
	data, err := ViewData(view)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := p.renderer.Render(p.template, data, &buf); err != nil {
		return fmt.Errorf("compliance: render %s: %w", p.template, err)
	}
	_, err = io.Copy(out, &buf)
	return err
}

// ViewData flattens a view into the snake_case map templates consume.
func ViewData(view View) (map[string]any, error) {
	raw, err := json.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("compliance: marshal view: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("compliance: normalize view: %w", err)
	}
	data["is_page"] = view.Surface == SurfacePage
	data["is_indicator"] = view.Surface == SurfaceIndicator
	return data, nil
}

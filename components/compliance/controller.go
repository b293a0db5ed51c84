package compliance

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-compliance-dashboard/pkg/activity"
	"github.com/google/uuid"
)

// Options configures a Controller. Only Fetcher is required.
type Options struct {
	Surface         Surface
	Fetcher         Fetcher
	Controls        ControlFactory
	Charts          ChartFactory
	Status          StatusIndicator
	Sink            ViewSink
	WorkspaceID     string
	InitialCustomer string
	Telemetry       Telemetry
	Translator      TranslationService
	ActivityHooks   activity.Hooks
	ActivityConfig  activity.Config
	Now             func() time.Time
	RequestID       func() string
}

// Controller keeps one dashboard surface in sync with the selected customer
// and filters. At most one fetch is outstanding per controller and a
// response only paints when its selection is still current.
type Controller struct {
	surface     Surface
	fetcher     Fetcher
	charts      ChartFactory
	status      StatusIndicator
	sink        ViewSink
	telemetry   Telemetry
	translator  TranslationService
	activity    *activity.Emitter
	workspaceID string
	now         func() time.Time
	requestID   func() string

	controls map[FilterDimension]FilterControl
	order    []FilterDimension

	renderMu sync.Mutex
	slots    []*chartSlot

	mu         sync.Mutex
	customerID string
	inFlight   bool
	active     bool
	view       View
	revision   uint64
	generation uint64
}

// NewController mounts the surface's filter controls and paints the empty
// state.
func NewController(opts Options) (*Controller, error) {
	if opts.Fetcher == nil {
		return nil, ErrMissingFetcher
	}
	surface := opts.Surface
	if surface.Kind == "" && len(surface.Metrics) == 0 && len(surface.Charts) == 0 && !surface.Indicators {
		surface = PageSurface()
	}
	surface = surface.normalized()

	c := &Controller{
		surface:     surface,
		fetcher:     opts.Fetcher,
		charts:      opts.Charts,
		status:      opts.Status,
		sink:        opts.Sink,
		telemetry:   normalizeTelemetry(opts.Telemetry),
		translator:  opts.Translator,
		activity:    activity.NewEmitter(opts.ActivityHooks, opts.ActivityConfig),
		workspaceID: opts.WorkspaceID,
		now:         opts.Now,
		requestID:   opts.RequestID,
		controls:    make(map[FilterDimension]FilterControl, len(surface.Filters)),
		active:      true,
		customerID:  strings.TrimSpace(opts.InitialCustomer),
	}
	if c.status == nil {
		c.status = noopStatusIndicator{}
	}
	if c.sink == nil {
		c.sink = noopViewSink{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.requestID == nil {
		c.requestID = uuid.NewString
	}
	factory := opts.Controls
	if factory == nil {
		factory = SelectControlFactory{}
	}
	if err := c.mountControls(factory); err != nil {
		return nil, err
	}
	for _, spec := range surface.Charts {
		c.slots = append(c.slots, &chartSlot{
			spec:   spec,
			region: ChartRegion{Surface: surface.Kind, Key: spec.Key, Title: spec.Title},
		})
	}
	c.view.Status = defaultStatus(StatusIdle)
	c.paint(context.Background(), nil, false, false)
	return c, nil
}

func (c *Controller) mountControls(factory ControlFactory) error {
	for _, spec := range c.surface.Filters {
		var options []string
		switch spec.Dimension {
		case FilterCustomer:
		case FilterYear:
			options = yearOptions(c.now())
		case FilterDocumentType, FilterStatus:
			options = []string{""}
		default:
			return ErrUnknownDimension
		}
		control, err := factory.NewControl(ControlSpec{Dimension: spec.Dimension, Label: spec.Label, Options: options})
		if err != nil {
			return err
		}
		if spec.Dimension == FilterCustomer {
			control.SetValue(c.customerID)
			control.OnChange(func(ctx context.Context, value string) {
				c.SetCustomer(ctx, value)
			})
		} else {
			control.OnChange(func(ctx context.Context, _ string) {
				c.bumpGeneration()
				c.Refresh(ctx)
			})
		}
		c.controls[spec.Dimension] = control
		c.order = append(c.order, spec.Dimension)
	}
	return nil
}

// Surface returns the normalized surface definition.
func (c *Controller) Surface() Surface { return c.surface }

// Control returns the mounted control for dim.
func (c *Controller) Control(dim FilterDimension) (FilterControl, bool) {
	control, ok := c.controls[dim]
	return control, ok
}

// CustomerID returns the current customer.
func (c *Controller) CustomerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.customerID
}

// InFlight reports whether a fetch is outstanding.
func (c *Controller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// View returns the last painted snapshot.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// GetFilterValues reads the mounted controls. Dimensions without a control
// are left nil.
func (c *Controller) GetFilterValues() Filters {
	var filters Filters
	for _, dim := range []FilterDimension{FilterYear, FilterDocumentType, FilterStatus} {
		if control, ok := c.controls[dim]; ok {
			filters = filters.With(dim, control.Value())
		}
	}
	return filters
}

// Selection returns the (customer, filters) tuple the next fetch would use.
func (c *Controller) Selection() Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectionLocked()
}

func (c *Controller) selectionLocked() Selection {
	return Selection{CustomerID: c.customerID, Filters: c.GetFilterValues()}
}

// SetCustomer switches the customer while keeping filters and refreshes. An
// empty id clears the customer and paints the empty state.
func (c *Controller) SetCustomer(ctx context.Context, id string) RefreshOutcome {
	id = strings.TrimSpace(id)
	c.mu.Lock()
	changed := id != c.customerID
	c.customerID = id
	if changed {
		c.generation++
	}
	c.mu.Unlock()

	if control, ok := c.controls[FilterCustomer]; ok && control.Value() != id {
		control.SetValue(id)
	}
	if id == "" {
		c.Render(ctx, nil)
		c.setStatus(ctx, StatusIdle)
		return OutcomeSkipped
	}
	if changed {
		c.emit(ctx, "compliance.customer.view", id, nil)
	}
	return c.Refresh(ctx)
}

// ChangeFilter applies a user change to a mounted filter and refreshes.
func (c *Controller) ChangeFilter(ctx context.Context, dim FilterDimension, value string) (RefreshOutcome, error) {
	control, ok := c.controls[dim]
	if !ok {
		return "", ErrFilterNotMounted
	}
	if dim == FilterCustomer {
		return c.SetCustomer(ctx, value), nil
	}
	if control.Value() != value {
		c.bumpGeneration()
	}
	control.SetValue(value)
	return c.Refresh(ctx), nil
}

// bumpGeneration marks every outstanding selection as superseded.
func (c *Controller) bumpGeneration() {
	c.mu.Lock()
	c.generation++
	c.mu.Unlock()
}

// Refresh fetches the current selection and paints the result. It blocks
// until the painting finishes. Calls made while a fetch is outstanding are
// dropped, not queued.
func (c *Controller) Refresh(ctx context.Context) RefreshOutcome {
	c.mu.Lock()
	switch {
	case !c.active:
		c.mu.Unlock()
		return OutcomeInactive
	case c.customerID == "":
		c.mu.Unlock()
		return OutcomeSkipped
	case c.inFlight:
		customer := c.customerID
		c.mu.Unlock()
		c.record(ctx, "compliance.refresh.dropped", map[string]any{"customer": customer})
		return OutcomeDropped
	}
	c.inFlight = true
	guard := paintGuard{sel: c.selectionLocked(), generation: c.generation}
	c.mu.Unlock()

	c.setLoading(ctx, true)
	outcome := c.run(ctx, guard)

	c.mu.Lock()
	c.inFlight = false
	c.mu.Unlock()
	c.setLoading(ctx, false)
	return outcome
}

// run issues fetches until a response matches the selection at arrival.
// A response superseded while in flight is discarded and the now-current
// selection is fetched once more.
func (c *Controller) run(ctx context.Context, guard paintGuard) RefreshOutcome {
	for {
		sel := guard.sel
		req := Request{RequestID: c.requestID(), CustomerID: sel.CustomerID, Filters: sel.Filters}
		c.record(ctx, "compliance.refresh.issue", requestFields(req))
		started := c.now()
		payload, err := c.fetcher.Fetch(ctx, req)

		fields := requestFields(req)
		fields["duration_ms"] = c.now().Sub(started).Milliseconds()
		var committed bool
		if err == nil {
			committed = c.paintGuarded(ctx, &payload, false, true, &guard)
		} else {
			committed = c.paintGuarded(ctx, nil, true, true, &guard)
		}

		c.mu.Lock()
		next := paintGuard{sel: c.selectionLocked(), generation: c.generation}
		active := c.active
		c.mu.Unlock()

		if !committed {
			fields["current_customer"] = next.sel.CustomerID
			c.record(ctx, "compliance.refresh.stale", fields)
			if next.sel.CustomerID == "" || !active {
				return OutcomeStale
			}
			guard = next
			continue
		}

		if err != nil {
			fields["error"] = err.Error()
			c.record(ctx, "compliance.refresh.failed", fields)
			c.setStatus(ctx, StatusError)
			return OutcomeFailed
		}
		c.setStatus(ctx, StatusReady)
		c.record(ctx, "compliance.refresh.rendered", fields)

		if next.sel.Equal(sel) || next.sel.CustomerID == "" || !active {
			return OutcomeRendered
		}
		// Painting reverted a filter that is no longer offered.
		guard = next
	}
}

// paintGuard pins a paint to the selection its payload was fetched for.
type paintGuard struct {
	sel        Selection
	generation uint64
}

func (c *Controller) currentLocked(g *paintGuard) bool {
	return c.generation == g.generation && c.customerID == g.sel.CustomerID
}

func requestFields(req Request) map[string]any {
	fields := map[string]any{
		"request_id": req.RequestID,
		"customer":   req.CustomerID,
	}
	for _, dim := range []FilterDimension{FilterYear, FilterDocumentType, FilterStatus} {
		if value, ok := req.Filters.Value(dim); ok {
			fields[string(dim)] = value
		}
	}
	return fields
}

// Render paints every region from payload. A nil payload resets the
// surface to its empty state.
func (c *Controller) Render(ctx context.Context, payload *Payload) {
	c.paint(ctx, payload, false, true)
}

// ShowPending paints the empty state used while a record has no id yet.
func (c *Controller) ShowPending(ctx context.Context) {
	c.paint(ctx, nil, false, true)
	c.setStatus(ctx, StatusIdle)
}

func (c *Controller) paint(ctx context.Context, payload *Payload, failed, notify bool) {
	c.paintGuarded(ctx, payload, failed, notify, nil)
}

// paintGuarded paints like paint. With a guard, nothing is touched or
// published unless the guarded selection is still current when the view is
// committed; it reports whether the view was committed.
func (c *Controller) paintGuarded(ctx context.Context, payload *Payload, failed, notify bool, guard *paintGuard) bool {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()

	if guard != nil {
		c.mu.Lock()
		current := c.currentLocked(guard) && c.selectionLocked().Equal(guard.sel)
		c.mu.Unlock()
		if !current {
			return false
		}
	}

	label := newLabeler(ctx, c.translator)
	view := View{
		Surface: c.surface.Kind,
		Title:   label("compliance.surface."+string(c.surface.Kind), c.surface.Title, nil),
	}

	summary := map[string]any{}
	if payload != nil && payload.Summary != nil {
		summary = payload.Summary
	}
	for _, spec := range c.surface.Metrics {
		view.Metrics = append(view.Metrics, MetricView{
			Key:   spec.Key,
			Label: label("compliance.metric."+spec.Key, spec.Label, nil),
			Value: FormatMetric(spec, summary),
		})
	}

	for _, slot := range c.slots {
		var err error
		if payload == nil {
			err = slot.reset(ctx, c.charts, c.telemetry)
		} else {
			data, ok := payload.Charts[slot.spec.Key]
			if !ok {
				data = EmptyChartData()
			}
			err = slot.apply(ctx, c.charts, c.telemetry, data)
		}
		chart := ChartView{
			Key:   slot.spec.Key,
			Title: label("compliance.chart."+slot.spec.Key, slot.spec.Title, nil),
			Type:  slot.spec.Type,
			Data:  slot.data.clone(),
			HTML:  slot.markup(),
		}
		if err != nil {
			c.record(ctx, "compliance.chart.failed", map[string]any{"chart": slot.spec.Key, "error": err.Error()})
			slot.data = EmptyChartData()
			chart.Data = EmptyChartData()
			chart.HTML = ""
		}
		view.Charts = append(view.Charts, chart)
	}

	if c.surface.Timeline {
		timeline := &TimelineView{Rows: []TimelineRow{}}
		if payload != nil {
			timeline.Rows = buildTimeline(payload.AuditTimeline)
		}
		if len(timeline.Rows) == 0 {
			timeline.Empty = label("compliance.timeline.empty", TimelineEmptyMessage, nil)
		}
		view.Timeline = timeline
	}

	if c.surface.ShowsProfile() {
		profile := &ProfileView{Rows: []ProfileRow{}}
		if payload != nil && len(payload.Profile) > 0 {
			profile.Rows = buildProfile(c.surface.Profile, payload.Profile, label)
		} else {
			profile.Empty = label("compliance.profile.empty", ProfileEmptyMessage, nil)
		}
		view.Profile = profile
	}

	if c.surface.Indicators {
		switch {
		case failed:
			view.Indicators = errorIndicators(label)
		case payload != nil:
			view.Indicators = buildIndicators(summary, label)
		}
	}

	if payload != nil {
		c.updateFilterOptions(payload.FilterOptions)
	}
	view.Filters = c.filterViews(label)
	painted := c.GetFilterValues()

	c.mu.Lock()
	if guard != nil && (!c.currentLocked(guard) || !c.GetFilterValues().Equal(painted)) {
		c.mu.Unlock()
		return false
	}
	c.revision++
	view.CustomerID = c.customerID
	view.Loading = c.inFlight
	view.Status = c.view.Status
	view.Revision = c.revision
	view.RenderedAt = c.now()
	c.view = view
	c.mu.Unlock()

	if notify {
		c.sink.ViewUpdated(ctx, c.workspaceID, view)
	}
	return true
}

// UpdateFilterOptions replaces the option lists of the reported
// dimensions and keeps each selection only while it is still offered.
func (c *Controller) UpdateFilterOptions(payload Payload) {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	c.updateFilterOptions(payload.FilterOptions)
}

func (c *Controller) updateFilterOptions(reported map[FilterDimension][]string) {
	for _, dim := range c.order {
		if dim == FilterCustomer {
			continue
		}
		values, ok := reported[dim]
		if !ok {
			continue
		}
		control := c.controls[dim]
		options := withBlank(values)
		previous := control.Value()
		control.SetOptions(options)
		control.Refresh()
		if contains(options, previous) {
			control.SetValue(previous)
		} else {
			control.SetValue("")
		}
	}
}

// withBlank prepends the blank option and drops repeats in first-seen order.
func withBlank(values []string) []string {
	out := make([]string, 0, len(values)+1)
	out = append(out, "")
	seen := map[string]struct{}{"": {}}
	for _, value := range values {
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func (c *Controller) filterViews(label labeler) []FilterView {
	if len(c.order) == 0 {
		return nil
	}
	out := make([]FilterView, 0, len(c.order))
	for _, spec := range c.surface.Filters {
		control, ok := c.controls[spec.Dimension]
		if !ok {
			continue
		}
		out = append(out, FilterView{
			Dimension: spec.Dimension,
			Label:     label("compliance.filter."+string(spec.Dimension), spec.Label, nil),
			Options:   control.Options(),
			Value:     control.Value(),
		})
	}
	return out
}

func (c *Controller) setLoading(ctx context.Context, loading bool) {
	if loading {
		c.setStatus(ctx, StatusLoading)
	}
	c.mu.Lock()
	c.view.Loading = loading
	view := c.view
	c.mu.Unlock()
	c.sink.ViewUpdated(ctx, c.workspaceID, view)
}

func (c *Controller) setStatus(ctx context.Context, state StatusState) {
	status := defaultStatus(state)
	if status.Label != "" {
		status.Label = translateOrFallback(ctx, c.translator, "compliance.status."+string(state), activityContextFrom(ctx).Locale, status.Label, nil)
	}
	c.mu.Lock()
	c.view.Status = status
	c.mu.Unlock()
	c.status.SetStatus(ctx, status)
}

func (c *Controller) record(ctx context.Context, event string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["surface"] = string(c.surface.Kind)
	if c.workspaceID != "" {
		fields["workspace"] = c.workspaceID
	}
	c.telemetry.Record(ctx, event, fields)
}

func (c *Controller) emit(ctx context.Context, verb, customerID string, meta map[string]any) {
	if !c.activity.Enabled() {
		return
	}
	actor := activityContextFrom(ctx)
	metadata := map[string]any{"surface": string(c.surface.Kind)}
	for k, v := range meta {
		metadata[k] = v
	}
	err := c.activity.Emit(ctx, activity.Event{
		Verb:       verb,
		ActorID:    actor.ActorID,
		UserID:     actor.UserID,
		TenantID:   actor.TenantID,
		ObjectType: "customer",
		ObjectID:   customerID,
		Metadata:   metadata,
	})
	if err != nil {
		c.record(ctx, "compliance.activity.failed", map[string]any{"verb": verb, "error": err.Error()})
	}
}

package compliance

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-compliance-dashboard/pkg/activity"
	"github.com/google/uuid"
)

// CustomerEventKind names why the host announces a customer.
type CustomerEventKind string

const (
	CustomerRouted CustomerEventKind = "routed"
	CustomerLoaded CustomerEventKind = "loaded"
	CustomerSaved  CustomerEventKind = "saved"
)

// CustomerEvent is published when the host learns about a customer change.
type CustomerEvent struct {
	Kind       CustomerEventKind `json:"kind"`
	CustomerID string            `json:"customer"`
	IsNew      bool              `json:"is_new,omitempty"`
}

// CustomerSignal broadcasts customer events to every surface of a session.
// Each subscriber handles the event independently; Publish waits for all of
// them.
type CustomerSignal struct {
	mu   sync.RWMutex
	subs map[int]func(context.Context, CustomerEvent)
	next int
}

// NewCustomerSignal creates an empty signal.
func NewCustomerSignal() *CustomerSignal {
	return &CustomerSignal{subs: make(map[int]func(context.Context, CustomerEvent))}
}

// Subscribe registers fn and returns its cancel func.
func (s *CustomerSignal) Subscribe(fn func(context.Context, CustomerEvent)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Publish delivers evt to every subscriber concurrently.
func (s *CustomerSignal) Publish(ctx context.Context, evt CustomerEvent) {
	s.mu.RLock()
	subs := make([]func(context.Context, CustomerEvent), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()

	var wg sync.WaitGroup
	for _, fn := range subs {
		wg.Add(1)
		go func(fn func(context.Context, CustomerEvent)) {
			defer wg.Done()
			fn(ctx, evt)
		}(fn)
	}
	wg.Wait()
}

// WorkspaceOptions configures the controllers of new workspaces.
type WorkspaceOptions struct {
	Surfaces       map[SurfaceKind]Surface
	Kinds          []SurfaceKind
	Fetcher        Fetcher
	Controls       ControlFactory
	Charts         ChartFactory
	Status         func(workspaceID string, kind SurfaceKind) StatusIndicator
	Sink           ViewSink
	Telemetry      Telemetry
	Translator     TranslationService
	ActivityHooks  activity.Hooks
	ActivityConfig activity.Config
	Now            func() time.Time
}

// Workspace holds the independent surfaces of one browser session.
type Workspace struct {
	ID          string
	Signal      *CustomerSignal
	controllers map[SurfaceKind]*Controller
	cancels     []func()
}

// NewWorkspace mounts one controller per requested surface kind and
// subscribes them to a fresh customer signal.
func NewWorkspace(id string, opts WorkspaceOptions) (*Workspace, error) {
	if id == "" {
		return nil, ErrMissingWorkspaceID
	}
	surfaces := opts.Surfaces
	if surfaces == nil {
		surfaces = DefaultSurfaces()
	}
	kinds := opts.Kinds
	if len(kinds) == 0 {
		kinds = []SurfaceKind{SurfacePage, SurfaceFormTab, SurfaceIndicator}
	}
	ws := &Workspace{
		ID:          id,
		Signal:      NewCustomerSignal(),
		controllers: make(map[SurfaceKind]*Controller, len(kinds)),
	}
	for _, kind := range kinds {
		surface, ok := surfaces[kind]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSurface, kind)
		}
		var status StatusIndicator
		if opts.Status != nil {
			status = opts.Status(id, kind)
		}
		ctrl, err := NewController(Options{
			Surface:        surface,
			Fetcher:        opts.Fetcher,
			Controls:       opts.Controls,
			Charts:         opts.Charts,
			Status:         status,
			Sink:           opts.Sink,
			WorkspaceID:    id,
			Telemetry:      opts.Telemetry,
			Translator:     opts.Translator,
			ActivityHooks:  opts.ActivityHooks,
			ActivityConfig: opts.ActivityConfig,
			Now:            opts.Now,
		})
		if err != nil {
			return nil, fmt.Errorf("compliance: mount %s surface: %w", kind, err)
		}
		ws.controllers[kind] = ctrl
		ws.cancels = append(ws.cancels, ws.Signal.Subscribe(func(ctx context.Context, evt CustomerEvent) {
			switch evt.Kind {
			case CustomerSaved:
				ctrl.OnEntitySaved(ctx, EntityRef{ID: evt.CustomerID, IsNew: evt.IsNew})
			default:
				ctrl.SetCustomer(ctx, evt.CustomerID)
			}
		}))
	}
	return ws, nil
}

// Controller returns the controller mounted for kind.
func (w *Workspace) Controller(kind SurfaceKind) (*Controller, error) {
	ctrl, ok := w.controllers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSurface, kind)
	}
	return ctrl, nil
}

// Kinds lists the mounted surfaces in a stable order.
func (w *Workspace) Kinds() []SurfaceKind {
	out := make([]SurfaceKind, 0, len(w.controllers))
	for kind := range w.controllers {
		out = append(out, kind)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Close unsubscribes every controller from the signal.
func (w *Workspace) Close() {
	for _, cancel := range w.cancels {
		cancel()
	}
	w.cancels = nil
}

// Workspaces is a registry of sessions keyed by id with idle eviction.
type Workspaces struct {
	opts WorkspaceOptions
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]*workspaceEntry
}

type workspaceEntry struct {
	ws       *Workspace
	lastSeen time.Time
}

// NewWorkspaces builds a registry. A non-positive idle TTL disables
// eviction.
func NewWorkspaces(opts WorkspaceOptions, idleTTL time.Duration) *Workspaces {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Workspaces{
		opts:    opts,
		ttl:     idleTTL,
		now:     now,
		entries: make(map[string]*workspaceEntry),
	}
}

// Open creates a workspace with a fresh id.
func (r *Workspaces) Open() (*Workspace, error) {
	return r.Ensure(uuid.NewString())
}

// Ensure returns the workspace for id, creating it when missing.
func (r *Workspaces) Ensure(id string) (*Workspace, error) {
	if id == "" {
		return nil, ErrMissingWorkspaceID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[id]; ok {
		entry.lastSeen = r.now()
		return entry.ws, nil
	}
	ws, err := NewWorkspace(id, r.opts)
	if err != nil {
		return nil, err
	}
	r.entries[id] = &workspaceEntry{ws: ws, lastSeen: r.now()}
	return ws, nil
}

// Get returns an existing workspace and marks it as seen.
func (r *Workspaces) Get(id string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	entry.lastSeen = r.now()
	return entry.ws, true
}

// Remove closes and forgets a workspace.
func (r *Workspaces) Remove(id string) {
	r.mu.Lock()
	entry, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()
	if ok {
		entry.ws.Close()
	}
}

// Len reports the number of open workspaces.
func (r *Workspaces) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Evict closes workspaces idle for longer than the TTL and returns their ids.
func (r *Workspaces) Evict() []string {
	if r.ttl <= 0 {
		return nil
	}
	cutoff := r.now().Add(-r.ttl)
	r.mu.Lock()
	var evicted []*workspaceEntry
	var ids []string
	for id, entry := range r.entries {
		if entry.lastSeen.Before(cutoff) {
			evicted = append(evicted, entry)
			ids = append(ids, id)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()
	for _, entry := range evicted {
		entry.ws.Close()
	}
	sort.Strings(ids)
	return ids
}

// RunEviction evicts idle workspaces every interval until ctx is done.
func (r *Workspaces) RunEviction(ctx context.Context, interval time.Duration) {
	if r.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Evict()
		}
	}
}

package compliance

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var fixedNow = func() time.Time { return time.Date(2022, 6, 1, 9, 0, 0, 0, time.UTC) }

func customerPayload(customer string, total int) Payload {
	return ParsePayload(map[string]any{
		"customer": customer,
		"summary": map[string]any{
			"total_documents":         total,
			"total_filed_forms":       4,
			"compliance_health_score": 87,
			"expiring_documents":      2,
			"next_compliance_due":     "2022-07-15",
		},
		"charts": map[string]any{
			"document_types": map[string]any{
				"labels":   []any{"Tax", "Registration"},
				"datasets": []any{map[string]any{"name": "Documents", "values": []any{3, 5}}},
			},
			"filing_trends": map[string]any{
				"labels":   []any{"Jan", "Feb"},
				"datasets": []any{map[string]any{"name": "Filings", "values": []any{1, 2}}},
			},
		},
		"audit_timeline": []any{
			map[string]any{"timestamp": "2022-05-30 10:00", "user": "clerk@example.com", "action": "Uploaded", "entity": "TIN Certificate"},
		},
		"profile": map[string]any{
			"customer_name": customer + " Ltd",
			"customer_id":   customer,
			"tin":           "123-456",
		},
	})
}

type fetchReply struct {
	payload Payload
	err     error
}

// gatedFetcher hands every request to the test and waits for its reply.
type gatedFetcher struct {
	calls   chan Request
	replies chan fetchReply
	active  int32
	maxSeen int32
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{
		calls:   make(chan Request, 8),
		replies: make(chan fetchReply),
	}
}

func (f *gatedFetcher) Fetch(ctx context.Context, req Request) (Payload, error) {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		seen := atomic.LoadInt32(&f.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&f.maxSeen, seen, n) {
			break
		}
	}
	f.calls <- req
	select {
	case reply := <-f.replies:
		return reply.payload, reply.err
	case <-ctx.Done():
		return Payload{}, ctx.Err()
	}
}

func awaitRequest(t *testing.T, ch <-chan Request) Request {
	t.Helper()
	select {
	case req := <-ch:
		return req
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for fetch")
		return Request{}
	}
}

func awaitOutcome(t *testing.T, ch <-chan RefreshOutcome) RefreshOutcome {
	t.Helper()
	select {
	case outcome := <-ch:
		return outcome
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for refresh")
		return ""
	}
}

// countingFetcher answers immediately from a function and counts calls.
type countingFetcher struct {
	mu       sync.Mutex
	requests []Request
	respond  func(Request) (Payload, error)
}

func (f *countingFetcher) Fetch(_ context.Context, req Request) (Payload, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.respond == nil {
		return customerPayload(req.CustomerID, 10), nil
	}
	return f.respond(req)
}

func (f *countingFetcher) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

type recordingSink struct {
	mu    sync.Mutex
	views []View
}

func (s *recordingSink) ViewUpdated(_ context.Context, _ string, view View) {
	s.mu.Lock()
	s.views = append(s.views, view)
	s.mu.Unlock()
}

func (s *recordingSink) Views() []View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]View(nil), s.views...)
}

type recordingStatus struct {
	mu       sync.Mutex
	statuses []Status
}

func (s *recordingStatus) SetStatus(_ context.Context, status Status) {
	s.mu.Lock()
	s.statuses = append(s.statuses, status)
	s.mu.Unlock()
}

func (s *recordingStatus) Last() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.statuses) == 0 {
		return Status{}
	}
	return s.statuses[len(s.statuses)-1]
}

type fakeChart struct {
	cfg     ChartConfig
	updates []ChartData
	fail    bool
}

func (c *fakeChart) Update(data ChartData) error {
	if c.fail {
		return errors.New("chart detached")
	}
	c.updates = append(c.updates, data)
	return nil
}

type fakeChartFactory struct {
	mu         sync.Mutex
	created    map[string][]*fakeChart
	failCreate bool
}

func newFakeChartFactory() *fakeChartFactory {
	return &fakeChartFactory{created: map[string][]*fakeChart{}}
}

func (f *fakeChartFactory) NewChart(region ChartRegion, cfg ChartConfig) (ChartWidget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return nil, errors.New("container missing")
	}
	chart := &fakeChart{cfg: cfg}
	f.created[region.Key] = append(f.created[region.Key], chart)
	return chart, nil
}

func (f *fakeChartFactory) Created(key string) []*fakeChart {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeChart(nil), f.created[key]...)
}

func (f *fakeChartFactory) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, charts := range f.created {
		total += len(charts)
	}
	return total
}

func newTestController(t *testing.T, opts Options) *Controller {
	t.Helper()
	if opts.Now == nil {
		opts.Now = fixedNow
	}
	ctrl, err := NewController(opts)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return ctrl
}

func metricValue(view View, key string) string {
	for _, metric := range view.Metrics {
		if metric.Key == key {
			return metric.Value
		}
	}
	return ""
}

func chartView(view View, key string) ChartView {
	for _, chart := range view.Charts {
		if chart.Key == key {
			return chart
		}
	}
	return ChartView{}
}

// hookTranslator runs hook once, on the first label lookup after arm.
type hookTranslator struct {
	mu    sync.Mutex
	hook  func()
	armed bool
}

func (h *hookTranslator) arm(hook func()) {
	h.mu.Lock()
	h.hook = hook
	h.armed = true
	h.mu.Unlock()
}

func (h *hookTranslator) Translate(context.Context, string, string, map[string]any) (string, error) {
	h.mu.Lock()
	hook := h.hook
	fire := h.armed
	h.armed = false
	h.mu.Unlock()
	if fire && hook != nil {
		hook()
	}
	return "", nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for condition")
		}
		time.Sleep(time.Millisecond)
	}
}

package compliance

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewControllerRequiresFetcher(t *testing.T) {
	_, err := NewController(Options{})
	require.ErrorIs(t, err, ErrMissingFetcher)
}

func TestNewControllerPaintsEmptyState(t *testing.T) {
	ctrl := newTestController(t, Options{Fetcher: &countingFetcher{}})
	view := ctrl.View()

	assert.Equal(t, SurfacePage, view.Surface)
	assert.Equal(t, StatusIdle, view.Status.State)
	require.Len(t, view.Metrics, 6)
	for _, metric := range view.Metrics {
		assert.Equal(t, MetricPlaceholder, metric.Value, metric.Key)
	}
	require.NotNil(t, view.Timeline)
	assert.Equal(t, TimelineEmptyMessage, view.Timeline.Empty)
	require.NotNil(t, view.Profile)
	assert.Equal(t, ProfileEmptyMessage, view.Profile.Empty)

	require.Len(t, view.Filters, 4)
	assert.Equal(t, []string{"", "2022", "2021", "2020", "2019", "2018", "2017"}, view.Filters[1].Options)
}

func TestRefreshSkipsWithoutCustomer(t *testing.T) {
	fetcher := &countingFetcher{}
	ctrl := newTestController(t, Options{Fetcher: fetcher})

	assert.Equal(t, OutcomeSkipped, ctrl.Refresh(context.Background()))
	assert.Empty(t, fetcher.Requests())
}

func TestOnlyLastSelectionIsRendered(t *testing.T) {
	ctx := context.Background()
	fetcher := newGatedFetcher()
	sink := &recordingSink{}
	ctrl := newTestController(t, Options{Fetcher: fetcher, Sink: sink})

	done := make(chan RefreshOutcome, 1)
	go func() { done <- ctrl.SetCustomer(ctx, "CUST-A") }()

	first := awaitRequest(t, fetcher.calls)
	assert.Equal(t, "CUST-A", first.CustomerID)
	assert.NotEmpty(t, first.RequestID)

	assert.Equal(t, OutcomeDropped, ctrl.SetCustomer(ctx, "CUST-B"))

	fetcher.replies <- fetchReply{payload: customerPayload("CUST-A", 11)}
	second := awaitRequest(t, fetcher.calls)
	assert.Equal(t, "CUST-B", second.CustomerID)
	assert.NotEqual(t, first.RequestID, second.RequestID)

	fetcher.replies <- fetchReply{payload: customerPayload("CUST-B", 22)}
	assert.Equal(t, OutcomeRendered, awaitOutcome(t, done))

	view := ctrl.View()
	assert.Equal(t, "CUST-B", view.CustomerID)
	assert.Equal(t, "22", metricValue(view, "total_documents"))
	assert.False(t, view.Loading)
	for _, painted := range sink.Views() {
		assert.NotEqual(t, "11", metricValue(painted, "total_documents"))
	}
}

func TestStaleResponseForClearedCustomerIsDiscarded(t *testing.T) {
	ctx := context.Background()
	fetcher := newGatedFetcher()
	ctrl := newTestController(t, Options{Fetcher: fetcher})

	done := make(chan RefreshOutcome, 1)
	go func() { done <- ctrl.SetCustomer(ctx, "CUST-A") }()
	awaitRequest(t, fetcher.calls)

	assert.Equal(t, OutcomeSkipped, ctrl.SetCustomer(ctx, ""))
	fetcher.replies <- fetchReply{payload: customerPayload("CUST-A", 11)}

	assert.Equal(t, OutcomeStale, awaitOutcome(t, done))
	view := ctrl.View()
	assert.Equal(t, "", view.CustomerID)
	assert.Equal(t, MetricPlaceholder, metricValue(view, "total_documents"))
	assert.False(t, ctrl.InFlight())
}

func TestSelectionClearedWhilePaintingDiscardsResponse(t *testing.T) {
	ctx := context.Background()
	fetcher := newGatedFetcher()
	sink := &recordingSink{}
	translator := &hookTranslator{}
	ctrl := newTestController(t, Options{Fetcher: fetcher, Sink: sink, Translator: translator})

	done := make(chan RefreshOutcome, 1)
	go func() { done <- ctrl.SetCustomer(ctx, "CUST-A") }()
	awaitRequest(t, fetcher.calls)

	cleared := make(chan RefreshOutcome, 1)
	translator.arm(func() {
		go func() { cleared <- ctrl.SetCustomer(ctx, "") }()
		waitFor(t, func() bool { return ctrl.CustomerID() == "" })
	})
	fetcher.replies <- fetchReply{payload: customerPayload("CUST-A", 11)}

	assert.Equal(t, OutcomeStale, awaitOutcome(t, done))
	assert.Equal(t, OutcomeSkipped, awaitOutcome(t, cleared))
	for _, painted := range sink.Views() {
		assert.NotEqual(t, "11", metricValue(painted, "total_documents"))
	}
	view := ctrl.View()
	assert.Equal(t, "", view.CustomerID)
	assert.Equal(t, MetricPlaceholder, metricValue(view, "total_documents"))
}

func TestSelectionSwitchedWhilePaintingFetchesNewCustomer(t *testing.T) {
	ctx := context.Background()
	fetcher := newGatedFetcher()
	sink := &recordingSink{}
	translator := &hookTranslator{}
	ctrl := newTestController(t, Options{Fetcher: fetcher, Sink: sink, Translator: translator})

	done := make(chan RefreshOutcome, 1)
	go func() { done <- ctrl.SetCustomer(ctx, "CUST-A") }()
	awaitRequest(t, fetcher.calls)

	switched := make(chan RefreshOutcome, 1)
	translator.arm(func() {
		go func() { switched <- ctrl.SetCustomer(ctx, "CUST-B") }()
		waitFor(t, func() bool { return ctrl.CustomerID() == "CUST-B" })
	})
	fetcher.replies <- fetchReply{payload: customerPayload("CUST-A", 11)}

	assert.Equal(t, OutcomeDropped, awaitOutcome(t, switched))
	next := awaitRequest(t, fetcher.calls)
	assert.Equal(t, "CUST-B", next.CustomerID)
	fetcher.replies <- fetchReply{payload: customerPayload("CUST-B", 22)}
	assert.Equal(t, OutcomeRendered, awaitOutcome(t, done))

	for _, painted := range sink.Views() {
		assert.NotEqual(t, "11", metricValue(painted, "total_documents"))
	}
	assert.Equal(t, "22", metricValue(ctrl.View(), "total_documents"))
}

func TestAtMostOneRequestInFlight(t *testing.T) {
	ctx := context.Background()
	fetcher := newGatedFetcher()
	ctrl := newTestController(t, Options{Fetcher: fetcher, InitialCustomer: "CUST-A"})

	done := make(chan RefreshOutcome, 1)
	go func() { done <- ctrl.Refresh(ctx) }()
	awaitRequest(t, fetcher.calls)
	require.True(t, ctrl.InFlight())

	var wg sync.WaitGroup
	outcomes := make(chan RefreshOutcome, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes <- ctrl.Refresh(ctx)
		}()
	}
	wg.Wait()
	close(outcomes)
	for outcome := range outcomes {
		assert.Equal(t, OutcomeDropped, outcome)
	}

	fetcher.replies <- fetchReply{payload: customerPayload("CUST-A", 3)}
	assert.Equal(t, OutcomeRendered, awaitOutcome(t, done))
	assert.EqualValues(t, 1, fetcher.maxSeen)
	assert.False(t, ctrl.InFlight())
}

func TestFilterChangeDuringFetchTriggersFollowUp(t *testing.T) {
	ctx := context.Background()
	fetcher := newGatedFetcher()
	ctrl := newTestController(t, Options{Fetcher: fetcher, InitialCustomer: "CUST-A"})

	done := make(chan RefreshOutcome, 1)
	go func() { done <- ctrl.Refresh(ctx) }()
	first := awaitRequest(t, fetcher.calls)
	year, _ := first.Filters.Value(FilterYear)
	assert.Equal(t, "", year)

	outcome, err := ctrl.ChangeFilter(ctx, FilterYear, "2021")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDropped, outcome)

	fetcher.replies <- fetchReply{payload: customerPayload("CUST-A", 1)}
	second := awaitRequest(t, fetcher.calls)
	year, _ = second.Filters.Value(FilterYear)
	assert.Equal(t, "2021", year)

	fetcher.replies <- fetchReply{payload: customerPayload("CUST-A", 2)}
	assert.Equal(t, OutcomeRendered, awaitOutcome(t, done))
	assert.Equal(t, "2", metricValue(ctrl.View(), "total_documents"))
}

func TestFetchFailureShowsEmptyStateAndError(t *testing.T) {
	status := &recordingStatus{}
	fetcher := &countingFetcher{respond: func(Request) (Payload, error) {
		return Payload{}, errors.New("upstream unavailable")
	}}
	ctrl := newTestController(t, Options{Fetcher: fetcher, Status: status})

	assert.Equal(t, OutcomeFailed, ctrl.SetCustomer(context.Background(), "CUST-A"))

	view := ctrl.View()
	assert.Equal(t, StatusError, status.Last().State)
	assert.Equal(t, "Error", status.Last().Label)
	assert.Equal(t, StatusError, view.Status.State)
	assert.Equal(t, MetricPlaceholder, metricValue(view, "total_documents"))
	assert.False(t, view.Loading)
	assert.False(t, ctrl.InFlight())
}

func TestRefreshReportsLoadingThenReady(t *testing.T) {
	status := &recordingStatus{}
	sink := &recordingSink{}
	ctrl := newTestController(t, Options{Fetcher: &countingFetcher{}, Status: status, Sink: sink})

	ctrl.SetCustomer(context.Background(), "CUST-A")

	require.GreaterOrEqual(t, len(status.statuses), 2)
	assert.Equal(t, StatusLoading, status.statuses[0].State)
	assert.Equal(t, StatusReady, status.Last().State)

	views := sink.Views()
	require.NotEmpty(t, views)
	assert.True(t, views[0].Loading)
	assert.False(t, views[len(views)-1].Loading)
}

func TestRenderNilClearsEveryRegion(t *testing.T) {
	ctx := context.Background()
	charts := newFakeChartFactory()
	ctrl := newTestController(t, Options{Fetcher: &countingFetcher{}, Charts: charts})
	require.Equal(t, OutcomeRendered, ctrl.SetCustomer(ctx, "CUST-A"))

	before := ctrl.View()
	require.Equal(t, "10", metricValue(before, "total_documents"))
	require.Len(t, before.Timeline.Rows, 1)
	require.NotEmpty(t, before.Profile.Rows)

	ctrl.Render(ctx, nil)
	view := ctrl.View()

	for _, metric := range view.Metrics {
		assert.Equal(t, MetricPlaceholder, metric.Value, metric.Key)
	}
	for _, chart := range view.Charts {
		assert.Equal(t, EmptyChartData(), chart.Data, chart.Key)
	}
	assert.Empty(t, view.Timeline.Rows)
	assert.Equal(t, TimelineEmptyMessage, view.Timeline.Empty)
	assert.Empty(t, view.Profile.Rows)
	assert.Equal(t, ProfileEmptyMessage, view.Profile.Empty)

	docs := charts.Created("document_types")
	require.Len(t, docs, 1)
	last := docs[0].updates[len(docs[0].updates)-1]
	assert.Equal(t, EmptyChartData(), last)
}

func TestRenderNilLeavesUndrawnChartsAlone(t *testing.T) {
	charts := newFakeChartFactory()
	ctrl := newTestController(t, Options{Fetcher: &countingFetcher{}, Charts: charts})

	ctrl.Render(context.Background(), nil)
	assert.Zero(t, charts.Total())
}

func TestRenderCreatesChartsWithRegionConfig(t *testing.T) {
	charts := newFakeChartFactory()
	ctrl := newTestController(t, Options{Fetcher: &countingFetcher{}, Charts: charts})
	payload := customerPayload("CUST-A", 1)

	ctrl.Render(context.Background(), &payload)

	assert.Equal(t, 6, charts.Total())
	docs := charts.Created("document_types")
	require.Len(t, docs, 1)
	assert.Equal(t, ChartPie, docs[0].cfg.Type)
	assert.Equal(t, 260, docs[0].cfg.Height)
	assert.Equal(t, DefaultChartColors, docs[0].cfg.Colors)
	assert.Equal(t, []string{"Tax", "Registration"}, docs[0].cfg.Data.Labels)

	upload := charts.Created("upload_activity")
	require.Len(t, upload, 1)
	assert.True(t, upload[0].cfg.Data.IsEmpty())
}

func TestChartUpdateFailureRecreatesWidget(t *testing.T) {
	ctx := context.Background()
	charts := newFakeChartFactory()
	var events []string
	telemetry := TelemetryFunc(func(_ context.Context, event string, _ map[string]any) {
		events = append(events, event)
	})
	ctrl := newTestController(t, Options{Fetcher: &countingFetcher{}, Charts: charts, Telemetry: telemetry})
	payload := customerPayload("CUST-A", 1)
	ctrl.Render(ctx, &payload)

	charts.Created("document_types")[0].fail = true
	ctrl.Render(ctx, &payload)

	docs := charts.Created("document_types")
	require.Len(t, docs, 2)
	assert.Equal(t, []string{"Tax", "Registration"}, docs[1].cfg.Data.Labels)
	assert.Contains(t, events, "compliance.chart.recreate")
}

func TestChartRecreateFailureLeavesRegionEmpty(t *testing.T) {
	ctx := context.Background()
	charts := newFakeChartFactory()
	ctrl := newTestController(t, Options{Fetcher: &countingFetcher{}, Charts: charts})
	payload := customerPayload("CUST-A", 1)
	ctrl.Render(ctx, &payload)

	charts.Created("document_types")[0].fail = true
	charts.failCreate = true
	ctrl.Render(ctx, &payload)

	chart := chartView(ctrl.View(), "document_types")
	assert.Equal(t, EmptyChartData(), chart.Data)

	charts.failCreate = false
	ctrl.Render(ctx, &payload)
	assert.Equal(t, []string{"Tax", "Registration"}, chartView(ctrl.View(), "document_types").Data.Labels)
}

func TestEmptyTimelineShowsOnlyMessage(t *testing.T) {
	ctrl := newTestController(t, Options{Fetcher: &countingFetcher{}})
	payload := ParsePayload(map[string]any{"summary": map[string]any{}, "audit_timeline": []any{}})

	ctrl.Render(context.Background(), &payload)
	timeline := ctrl.View().Timeline

	require.NotNil(t, timeline)
	assert.Empty(t, timeline.Rows)
	assert.Equal(t, TimelineEmptyMessage, timeline.Empty)
}

func TestTimelineRowsRenderPayload(t *testing.T) {
	ctrl := newTestController(t, Options{Fetcher: &countingFetcher{}})
	payload := ParsePayload(map[string]any{
		"audit_timeline": []any{
			map[string]any{"timestamp": "t1", "user": "u", "action": "Filed", "payload": `{"form":"VAT"}`},
		},
	})

	ctrl.Render(context.Background(), &payload)
	timeline := ctrl.View().Timeline

	require.Len(t, timeline.Rows, 1)
	assert.Empty(t, timeline.Empty)
	assert.Equal(t, "Filed", timeline.Rows[0].Action)
	assert.JSONEq(t, `{"form":"VAT"}`, timeline.Rows[0].Payload)
}

func TestProfilePlaceholders(t *testing.T) {
	ctrl := newTestController(t, Options{Fetcher: &countingFetcher{}})
	payload := customerPayload("CUST-A", 1)

	ctrl.Render(context.Background(), &payload)
	profile := ctrl.View().Profile

	require.Len(t, profile.Rows, 11)
	assert.Equal(t, ProfileRow{Label: "Customer", Value: "CUST-A Ltd"}, profile.Rows[0])
	assert.Equal(t, ProfileRow{Label: "Business Registration", Value: MetricPlaceholder}, profile.Rows[2])
	assert.Equal(t, "123-456", profile.Rows[3].Value)
}

func TestYearSelectionRevertsWhenNoLongerOffered(t *testing.T) {
	ctrl := newTestController(t, Options{Fetcher: &countingFetcher{}})
	year, ok := ctrl.Control(FilterYear)
	require.True(t, ok)
	year.SetValue("2022")

	ctrl.UpdateFilterOptions(Payload{FilterOptions: map[FilterDimension][]string{
		FilterYear: {"2024", "2023"},
	}})

	assert.Equal(t, "", year.Value())
	assert.Equal(t, []string{"", "2024", "2023"}, year.Options())
}

func TestFilterSelectionKeptWhenStillOffered(t *testing.T) {
	ctrl := newTestController(t, Options{Fetcher: &countingFetcher{}})
	doctype, _ := ctrl.Control(FilterDocumentType)
	doctype.SetValue("Tax")

	ctrl.UpdateFilterOptions(Payload{FilterOptions: map[FilterDimension][]string{
		FilterDocumentType: {"Registration", "Tax", "Registration", ""},
	}})

	assert.Equal(t, "Tax", doctype.Value())
	assert.Equal(t, []string{"", "Registration", "Tax"}, doctype.Options())
	assert.Equal(t, 1, doctype.(*SelectControl).Refreshes())
}

func TestUnreportedDimensionsKeepOptions(t *testing.T) {
	ctrl := newTestController(t, Options{Fetcher: &countingFetcher{}})
	status, _ := ctrl.Control(FilterStatus)
	status.SetOptions([]string{"", "Valid"})
	status.SetValue("Valid")

	ctrl.UpdateFilterOptions(Payload{FilterOptions: map[FilterDimension][]string{FilterYear: {"2022"}}})

	assert.Equal(t, "Valid", status.Value())
	assert.Equal(t, []string{"", "Valid"}, status.Options())
}

func TestSetCustomerTwiceRefreshesTwiceWithSameOutput(t *testing.T) {
	ctx := context.Background()
	fetcher := &countingFetcher{}
	ctrl := newTestController(t, Options{Fetcher: fetcher})

	assert.Equal(t, OutcomeRendered, ctrl.SetCustomer(ctx, "ACME"))
	first := ctrl.View()
	assert.Equal(t, OutcomeRendered, ctrl.SetCustomer(ctx, "ACME"))
	second := ctrl.View()

	assert.Len(t, fetcher.Requests(), 2)
	assert.Greater(t, second.Revision, first.Revision)
	first.Revision, second.Revision = 0, 0
	assert.Equal(t, first, second)
}

func TestSetCustomerReflectsIntoCustomerControl(t *testing.T) {
	ctrl := newTestController(t, Options{Fetcher: &countingFetcher{}})
	ctrl.SetCustomer(context.Background(), "CUST-9")

	control, ok := ctrl.Control(FilterCustomer)
	require.True(t, ok)
	assert.Equal(t, "CUST-9", control.Value())
}

func TestSetCustomerKeepsFilters(t *testing.T) {
	ctx := context.Background()
	fetcher := &countingFetcher{}
	ctrl := newTestController(t, Options{Fetcher: fetcher})
	status, _ := ctrl.Control(FilterStatus)
	status.SetValue("Expired")

	ctrl.SetCustomer(ctx, "CUST-1")
	ctrl.SetCustomer(ctx, "CUST-2")

	requests := fetcher.Requests()
	require.Len(t, requests, 2)
	value, ok := requests[1].Filters.Value(FilterStatus)
	assert.True(t, ok)
	assert.Equal(t, "Expired", value)
	assert.Equal(t, "CUST-2", requests[1].CustomerID)
}

func TestUserChangeOnControlRefreshes(t *testing.T) {
	ctx := context.Background()
	fetcher := &countingFetcher{}
	ctrl := newTestController(t, Options{Fetcher: fetcher, InitialCustomer: "CUST-1"})

	year, _ := ctrl.Control(FilterYear)
	year.(*SelectControl).Change(ctx, "2020")
	customer, _ := ctrl.Control(FilterCustomer)
	customer.(*SelectControl).Change(ctx, "CUST-2")

	requests := fetcher.Requests()
	require.Len(t, requests, 2)
	value, _ := requests[0].Filters.Value(FilterYear)
	assert.Equal(t, "2020", value)
	assert.Equal(t, "CUST-2", requests[1].CustomerID)
}

func TestSetValueDoesNotFireChange(t *testing.T) {
	fetcher := &countingFetcher{}
	ctrl := newTestController(t, Options{Fetcher: fetcher, InitialCustomer: "CUST-1"})
	year, _ := ctrl.Control(FilterYear)

	year.SetValue("2019")
	year.SetOptions([]string{"", "2019"})
	year.Refresh()

	assert.Empty(t, fetcher.Requests())
}

func TestChangeFilterRejectsUnmountedDimension(t *testing.T) {
	ctrl := newTestController(t, Options{Fetcher: &countingFetcher{}, Surface: IndicatorSurface()})
	_, err := ctrl.ChangeFilter(context.Background(), FilterYear, "2022")
	assert.ErrorIs(t, err, ErrFilterNotMounted)
}

func TestGetFilterValuesForSurfaces(t *testing.T) {
	page := newTestController(t, Options{Fetcher: &countingFetcher{}})
	filters := page.GetFilterValues()
	require.NotNil(t, filters.Year)
	require.NotNil(t, filters.DocumentType)
	require.NotNil(t, filters.Status)

	indicator := newTestController(t, Options{Fetcher: &countingFetcher{}, Surface: IndicatorSurface()})
	assert.Equal(t, Filters{}, indicator.GetFilterValues())
}

func TestIndicatorSurfaceRendersPills(t *testing.T) {
	ctrl := newTestController(t, Options{Fetcher: &countingFetcher{}, Surface: IndicatorSurface()})
	require.Equal(t, OutcomeRendered, ctrl.SetCustomer(context.Background(), "CUST-A"))

	view := ctrl.View()
	assert.Empty(t, view.Metrics)
	assert.Empty(t, view.Charts)
	assert.Nil(t, view.Timeline)
	assert.Nil(t, view.Profile)
	assert.Equal(t, []Indicator{
		{Label: "Compliance Score: 87%", Color: ColorGreen},
		{Label: "Expiring Within 30 Days: 2", Color: ColorOrange},
		{Label: "Next Renewal: 2022-07-15", Color: ColorBlue},
	}, view.Indicators)

	ctrl.Render(context.Background(), nil)
	assert.Empty(t, ctrl.View().Indicators)
}

func TestIndicatorSurfaceShowsErrorPill(t *testing.T) {
	fetcher := &countingFetcher{respond: func(Request) (Payload, error) {
		return Payload{}, errors.New("timeout")
	}}
	ctrl := newTestController(t, Options{Fetcher: fetcher, Surface: IndicatorSurface()})

	ctrl.SetCustomer(context.Background(), "CUST-A")

	assert.Equal(t, []Indicator{{Label: IndicatorErrorMessage, Color: ColorRed}}, ctrl.View().Indicators)
}

func TestTranslatorOverridesLabels(t *testing.T) {
	translator := MapTranslator{"es": {
		"compliance.metric.total_documents": "Documentos",
		"compliance.timeline.empty":         "Sin actividad.",
	}}
	ctrl := newTestController(t, Options{Fetcher: &countingFetcher{}, Translator: translator})
	ctx := ContextWithActivity(context.Background(), ActivityContext{Locale: "es-MX"})

	ctrl.Render(ctx, nil)
	view := ctrl.View()

	assert.Equal(t, "Documentos", view.Metrics[0].Label)
	assert.Equal(t, "Total Filed Forms", view.Metrics[1].Label)
	assert.Equal(t, "Sin actividad.", view.Timeline.Empty)
}

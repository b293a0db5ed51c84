package compliance

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

var sharedChartCache = NewChartCache(5 * time.Minute)

// EChartsFactory renders chart regions to server-side go-echarts markup.
type EChartsFactory struct {
	cache      RenderCache
	theme      string
	assetsHost string
}

// EChartsOption customizes the factory.
type EChartsOption func(*EChartsFactory)

// WithChartCache injects a render cache. Nil disables caching.
func WithChartCache(cache RenderCache) EChartsOption {
	return func(f *EChartsFactory) {
		f.cache = cache
	}
}

// WithChartTheme sets the chart theme (defaults to Westeros).
func WithChartTheme(theme string) EChartsOption {
	return func(f *EChartsFactory) {
		f.theme = theme
	}
}

// WithChartAssetsHost rewrites the assets host so ECharts JS loads from a CDN.
func WithChartAssetsHost(host string) EChartsOption {
	return func(f *EChartsFactory) {
		f.assetsHost = host
	}
}

// NewEChartsFactory builds the default chart factory.
func NewEChartsFactory(options ...EChartsOption) *EChartsFactory {
	f := &EChartsFactory{
		cache: sharedChartCache,
		theme: types.ThemeWesteros,
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

// NewChart implements ChartFactory.
func (f *EChartsFactory) NewChart(region ChartRegion, cfg ChartConfig) (ChartWidget, error) {
	switch cfg.Type {
	case ChartBar, ChartLine, ChartPie:
	default:
		return nil, fmt.Errorf("compliance: unsupported chart type %q", cfg.Type)
	}
	w := &EChartsWidget{factory: f, region: region, cfg: cfg}
	if err := w.Update(cfg.Data); err != nil {
		return nil, err
	}
	return w, nil
}

// EChartsWidget holds the markup of one chart region.
type EChartsWidget struct {
	factory *EChartsFactory
	region  ChartRegion
	cfg     ChartConfig

	mu   sync.RWMutex
	html string
}

// Update re-renders the chart with data.
func (w *EChartsWidget) Update(data ChartData) error {
	cfg := w.cfg
	cfg.Data = data
	render := func() (string, error) {
		return w.factory.render(w.region, cfg)
	}
	var (
		html string
		err  error
	)
	if w.factory.cache != nil {
		key := fmt.Sprintf("%s:%s:%s:%s", w.region.Surface, w.region.Key, cfg.Type, chartHash(struct {
			Title string
			Theme string
			Cfg   ChartConfig
		}{w.region.Title, w.factory.theme, cfg}))
		html, err = w.factory.cache.GetOrRender(key, render)
	} else {
		html, err = render()
	}
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.html = html
	w.mu.Unlock()
	return nil
}

// HTML implements ChartMarkup.
func (w *EChartsWidget) HTML() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.html
}

func (f *EChartsFactory) render(region ChartRegion, cfg ChartConfig) (string, error) {
	global := f.globalOptions(region, cfg)
	switch cfg.Type {
	case ChartBar:
		bar := charts.NewBar()
		bar.SetGlobalOptions(global...)
		bar.SetXAxis(cfg.Data.Labels)
		for _, ds := range cfg.Data.Datasets {
			bar.AddSeries(ds.Name, toBarData(cfg.Data.Labels, ds.Values))
		}
		return renderChart(bar)
	case ChartLine:
		line := charts.NewLine()
		line.SetGlobalOptions(global...)
		line.SetXAxis(cfg.Data.Labels)
		for _, ds := range cfg.Data.Datasets {
			line.AddSeries(ds.Name, toLineData(cfg.Data.Labels, ds.Values))
		}
		line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
		return renderChart(line)
	case ChartPie:
		pie := charts.NewPie()
		pie.SetGlobalOptions(global...)
		for _, ds := range cfg.Data.Datasets {
			pie.AddSeries(ds.Name, toPieData(cfg.Data.Labels, ds.Values))
		}
		return renderChart(pie)
	default:
		return "", fmt.Errorf("compliance: unsupported chart type %q", cfg.Type)
	}
}

func (f *EChartsFactory) globalOptions(region ChartRegion, cfg ChartConfig) []charts.GlobalOpts {
	height := cfg.Height
	if height <= 0 {
		height = defaultChartHeight
	}
	initOpts := opts.Initialization{
		Theme:  f.theme,
		Width:  "100%",
		Height: strconv.Itoa(height) + "px",
	}
	if f.assetsHost != "" {
		initOpts.AssetsHost = f.assetsHost
	}
	global := []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: region.Title}),
		charts.WithInitializationOpts(initOpts),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
	if len(cfg.Colors) > 0 {
		global = append(global, charts.WithColorsOpts(opts.Colors(cfg.Colors)))
	}
	return global
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func labelAt(labels []string, i int) string {
	if i < len(labels) {
		return labels[i]
	}
	return ""
}

func toBarData(labels []string, values []float64) []opts.BarData {
	data := make([]opts.BarData, len(values))
	for i, value := range values {
		data[i] = opts.BarData{Name: labelAt(labels, i), Value: value}
	}
	return data
}

func toLineData(labels []string, values []float64) []opts.LineData {
	data := make([]opts.LineData, len(values))
	for i, value := range values {
		data[i] = opts.LineData{Name: labelAt(labels, i), Value: value}
	}
	return data
}

func toPieData(labels []string, values []float64) []opts.PieData {
	data := make([]opts.PieData, len(values))
	for i, value := range values {
		name := labelAt(labels, i)
		if name == "" {
			name = fmt.Sprintf("Slice %d", i+1)
		}
		data[i] = opts.PieData{Name: name, Value: value}
	}
	return data
}

package compliance

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ettle/strcase"
)

// SurfaceKind identifies a mounting context for a dashboard controller.
type SurfaceKind string

const (
	SurfacePage      SurfaceKind = "page"
	SurfaceFormTab   SurfaceKind = "form_tab"
	SurfaceIndicator SurfaceKind = "indicator"
)

// MetricFormat controls how a summary value is printed on its card.
type MetricFormat string

const (
	MetricPlain   MetricFormat = "plain"
	MetricPercent MetricFormat = "percent"
)

// Chart types understood by the default chart factory.
const (
	ChartPie  = "pie"
	ChartLine = "line"
	ChartBar  = "bar"
)

const (
	defaultChartHeight = 260
	// MetricPlaceholder fills a card whose summary key is missing.
	MetricPlaceholder = "-"
	// ScorePlaceholder fills the indicator strip when no score is known.
	ScorePlaceholder = "--"
)

// DefaultChartColors is the palette handed to every chart widget.
var DefaultChartColors = []string{"#4466ff", "#7cd6fd", "#ffa3ef", "#ffc952", "#ff7473"}

// MetricSpec describes one summary card.
type MetricSpec struct {
	Key    string       `json:"key" yaml:"key"`
	Label  string       `json:"label,omitempty" yaml:"label,omitempty"`
	Format MetricFormat `json:"format,omitempty" yaml:"format,omitempty"`
}

// ChartSpec describes one chart region.
type ChartSpec struct {
	Key    string `json:"key" yaml:"key"`
	Title  string `json:"title,omitempty" yaml:"title,omitempty"`
	Type   string `json:"type" yaml:"type"`
	Height int    `json:"height,omitempty" yaml:"height,omitempty"`
}

// FilterSpec describes one filter control.
type FilterSpec struct {
	Dimension FilterDimension `json:"dimension" yaml:"dimension"`
	Label     string          `json:"label,omitempty" yaml:"label,omitempty"`
}

// ProfileField is one row of the profile panel.
type ProfileField struct {
	Key   string `json:"key" yaml:"key"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Surface parameterizes one controller instance. The same refresh protocol
// serves every kind; a surface only decides which regions exist.
type Surface struct {
	Kind       SurfaceKind    `json:"kind" yaml:"kind"`
	Title      string         `json:"title,omitempty" yaml:"title,omitempty"`
	Filters    []FilterSpec   `json:"filters,omitempty" yaml:"filters,omitempty"`
	Metrics    []MetricSpec   `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Charts     []ChartSpec    `json:"charts,omitempty" yaml:"charts,omitempty"`
	Profile    []ProfileField `json:"profile,omitempty" yaml:"profile,omitempty"`
	Timeline   bool           `json:"timeline" yaml:"timeline"`
	Indicators bool           `json:"indicators" yaml:"indicators"`
}

// HasFilter reports whether the surface mounts a control for dim.
func (s Surface) HasFilter(dim FilterDimension) bool {
	for _, f := range s.Filters {
		if f.Dimension == dim {
			return true
		}
	}
	return false
}

// ShowsProfile reports whether the surface has a profile panel.
func (s Surface) ShowsProfile() bool {
	return len(s.Profile) > 0
}

var defaultMetrics = []MetricSpec{
	{Key: "total_documents", Label: "Total Documents"},
	{Key: "total_filed_forms", Label: "Total Filed Forms"},
	{Key: "compliance_health_score", Label: "Compliance Health Score", Format: MetricPercent},
	{Key: "expiring_documents", Label: "Expiring Documents (30d)"},
	{Key: "next_compliance_due", Label: "Next Compliance Due"},
	{Key: "last_filing_date", Label: "Last Filing Date"},
}

var defaultCharts = []ChartSpec{
	{Key: "document_types", Title: "Document Types Distribution", Type: ChartPie},
	{Key: "filed_forms", Title: "Filed Form Types", Type: ChartPie},
	{Key: "compliance_status", Title: "Compliance Status", Type: ChartPie},
	{Key: "filing_trends", Title: "Filing Trends (12 months)", Type: ChartLine},
	{Key: "upload_activity", Title: "Document Upload Activity", Type: ChartBar},
	{Key: "expiry_timeline", Title: "Compliance Expiry Timeline", Type: ChartLine},
}

var defaultProfile = []ProfileField{
	{Key: "customer_name", Label: "Customer"},
	{Key: "customer_id", Label: "Customer ID"},
	{Key: "business_registration_number", Label: "Business Registration"},
	{Key: "tin", Label: "TIN"},
	{Key: "nis", Label: "NIS"},
	{Key: "business_type", Label: "Business Type"},
	{Key: "business_sector", Label: "Business Sector"},
	{Key: "assigned_staff", Label: "Assigned Staff"},
	{Key: "cabinet_id", Label: "Cabinet ID"},
	{Key: "digital_folder_path", Label: "Digital Folder"},
	{Key: "risk_flags", Label: "Risk Flags"},
}

var defaultFilters = []FilterSpec{
	{Dimension: FilterCustomer, Label: "Customer"},
	{Dimension: FilterYear, Label: "Year"},
	{Dimension: FilterDocumentType, Label: "Document Type"},
	{Dimension: FilterStatus, Label: "Status"},
}

// PageSurface is the standalone dashboard page.
func PageSurface() Surface {
	return Surface{
		Kind:     SurfacePage,
		Title:    "Client Compliance Overview",
		Filters:  append([]FilterSpec{}, defaultFilters...),
		Metrics:  append([]MetricSpec{}, defaultMetrics...),
		Charts:   append([]ChartSpec{}, defaultCharts...),
		Profile:  append([]ProfileField{}, defaultProfile...),
		Timeline: true,
	}
}

// FormTabSurface is the dashboard embedded in a customer record; the record
// already fixes the customer so no customer control is mounted.
func FormTabSurface() Surface {
	s := PageSurface()
	s.Kind = SurfaceFormTab
	s.Title = "Client Dashboard"
	s.Filters = append([]FilterSpec{}, defaultFilters[1:]...)
	return s
}

// IndicatorSurface is the compact indicator strip shown on the record header.
func IndicatorSurface() Surface {
	return Surface{
		Kind:       SurfaceIndicator,
		Title:      "Compliance Summary",
		Indicators: true,
	}
}

// DefaultSurfaces returns the three built-in surfaces keyed by kind.
func DefaultSurfaces() map[SurfaceKind]Surface {
	return map[SurfaceKind]Surface{
		SurfacePage:      PageSurface(),
		SurfaceFormTab:   FormTabSurface(),
		SurfaceIndicator: IndicatorSurface(),
	}
}

// ParseSurfaceKind validates a surface name coming from a route.
func ParseSurfaceKind(value string) (SurfaceKind, error) {
	switch kind := SurfaceKind(value); kind {
	case SurfacePage, SurfaceFormTab, SurfaceIndicator:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSurface, value)
	}
}

func (s Surface) normalized() Surface {
	if s.Kind == "" {
		s.Kind = SurfacePage
	}
	for i := range s.Metrics {
		if s.Metrics[i].Label == "" {
			s.Metrics[i].Label = labelFromKey(s.Metrics[i].Key)
		}
		if s.Metrics[i].Format == "" {
			s.Metrics[i].Format = MetricPlain
		}
	}
	for i := range s.Charts {
		if s.Charts[i].Title == "" {
			s.Charts[i].Title = labelFromKey(s.Charts[i].Key)
		}
		if s.Charts[i].Type == "" {
			s.Charts[i].Type = ChartLine
		}
		if s.Charts[i].Height <= 0 {
			s.Charts[i].Height = defaultChartHeight
		}
	}
	for i := range s.Profile {
		if s.Profile[i].Label == "" {
			s.Profile[i].Label = labelFromKey(s.Profile[i].Key)
		}
	}
	for i := range s.Filters {
		if s.Filters[i].Label == "" {
			s.Filters[i].Label = labelFromKey(string(s.Filters[i].Dimension))
		}
	}
	return s
}

// labelFromKey turns snake_case keys into title-cased labels.
func labelFromKey(key string) string {
	return strcase.ToCase(key, strcase.TitleCase, ' ')
}

// yearOptions lists the blank option, the current year and five prior years.
func yearOptions(now time.Time) []string {
	year := now.Year()
	out := []string{""}
	for i := 0; i < 6; i++ {
		out = append(out, strconv.Itoa(year-i))
	}
	return out
}

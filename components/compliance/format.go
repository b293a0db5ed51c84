package compliance

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Default English texts. Keys are looked up through the TranslationService.
const (
	TimelineEmptyMessage  = "No audit activity recorded yet."
	ProfileEmptyMessage   = "Select a customer to view the profile."
	IndicatorErrorMessage = "Unable to load compliance metrics"
	NotScheduledMessage   = "Not Scheduled"
)

// Indicator colours.
const (
	ColorGreen  = "green"
	ColorOrange = "orange"
	ColorRed    = "red"
	ColorBlue   = "blue"
	ColorGrey   = "grey"
)

// FormatMetric prints one summary value for its card. Missing values print
// the placeholder; percent metrics get a trailing "%".
func FormatMetric(spec MetricSpec, summary map[string]any) string {
	raw, ok := summary[spec.Key]
	if !ok || isBlank(raw) {
		return MetricPlaceholder
	}
	if spec.Format == MetricPercent {
		if f, ok := float64Value(raw); ok {
			return formatNumber(f) + "%"
		}
	}
	return displayValue(raw)
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', 1, 64)
}

// ScoreColor maps a compliance score onto the indicator palette.
func ScoreColor(score float64) string {
	switch {
	case score >= 80:
		return ColorGreen
	case score >= 50:
		return ColorOrange
	default:
		return ColorRed
	}
}

type labeler func(key, fallback string, params map[string]any) string

// buildIndicators derives the compact indicator strip from a summary.
func buildIndicators(summary map[string]any, label labeler) []Indicator {
	out := make([]Indicator, 0, 3)

	if score, ok := float64Value(summary["compliance_health_score"]); ok {
		text := fmt.Sprintf("Compliance Score: %s%%", formatNumber(score))
		out = append(out, Indicator{
			Label: label("compliance.indicator.score", text, map[string]any{"score": score}),
			Color: ScoreColor(score),
		})
	} else {
		text := "Compliance Score: " + ScorePlaceholder
		out = append(out, Indicator{Label: label("compliance.indicator.score_missing", text, nil), Color: ColorGrey})
	}

	expiring, _ := float64Value(summary["expiring_documents"])
	color := ColorGreen
	if expiring != 0 {
		color = ColorOrange
	}
	text := fmt.Sprintf("Expiring Within 30 Days: %s", formatNumber(expiring))
	out = append(out, Indicator{
		Label: label("compliance.indicator.expiring", text, map[string]any{"count": expiring}),
		Color: color,
	})

	next := NotScheduledMessage
	if raw := summary["next_compliance_due"]; !isBlank(raw) {
		next = displayValue(raw)
	}
	text = "Next Renewal: " + next
	out = append(out, Indicator{
		Label: label("compliance.indicator.next_renewal", text, map[string]any{"date": next}),
		Color: ColorBlue,
	})
	return out
}

func errorIndicators(label labeler) []Indicator {
	return []Indicator{{
		Label: label("compliance.indicator.error", IndicatorErrorMessage, nil),
		Color: ColorRed,
	}}
}

func buildTimeline(entries []TimelineEntry) []TimelineRow {
	rows := make([]TimelineRow, 0, len(entries))
	for _, entry := range entries {
		row := TimelineRow{
			Timestamp: entry.Timestamp,
			User:      entry.User,
			Action:    entry.Action,
			Entity:    entry.Entity,
			Remarks:   entry.Remarks,
		}
		if len(entry.Payload) > 0 {
			if data, err := json.Marshal(entry.Payload); err == nil {
				row.Payload = string(data)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func buildProfile(fields []ProfileField, profile map[string]any, label labeler) []ProfileRow {
	rows := make([]ProfileRow, 0, len(fields))
	for _, field := range fields {
		value := MetricPlaceholder
		if raw, ok := profile[field.Key]; ok && !isBlank(raw) {
			value = displayValue(raw)
		}
		rows = append(rows, ProfileRow{
			Label: label("compliance.profile."+field.Key, field.Label, nil),
			Value: value,
		})
	}
	return rows
}

func newLabeler(ctx context.Context, svc TranslationService) labeler {
	locale := activityContextFrom(ctx).Locale
	return func(key, fallback string, params map[string]any) string {
		return translateOrFallback(ctx, svc, key, locale, fallback, params)
	}
}

package compliance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// summaryAliases folds the field names used by older payloads onto the
// canonical metric keys.
var summaryAliases = map[string]string{
	"expiring_within_30_days": "expiring_documents",
	"next_renewal_date":       "next_compliance_due",
}

// statsCharts maps nested stats sections onto chart keys.
var statsCharts = []struct {
	section string
	field   string
	chart   string
}{
	{"document_stats", "document_types", "document_types"},
	{"document_stats", "status_distribution", "status_distribution"},
	{"document_stats", "document_upload_activity", "upload_activity"},
	{"document_stats", "compliance_expiry_timeline", "expiry_timeline"},
	{"filing_stats", "filed_form_types", "filed_forms"},
	{"filing_stats", "filing_trends", "filing_trends"},
	{"compliance_health", "area_breakdown", "compliance_status"},
}

// DecodePayload reads a JSON dashboard payload. Only a body that is not a
// JSON object is rejected; individual fields are tolerated when missing or
// mistyped.
func DecodePayload(r io.Reader) (Payload, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	var raw any
	if err := decoder.Decode(&raw); err != nil {
		if err == io.EOF {
			return Payload{}, fmt.Errorf("compliance: payload is empty")
		}
		return Payload{}, fmt.Errorf("compliance: decode payload: %w", err)
	}
	if raw == nil {
		return Payload{}, fmt.Errorf("compliance: payload is null")
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return Payload{}, fmt.Errorf("compliance: payload must be a JSON object, got %T", raw)
	}
	return ParsePayload(m), nil
}

// DecodePayloadBytes is DecodePayload over a byte slice.
func DecodePayloadBytes(data []byte) (Payload, error) {
	return DecodePayload(bytes.NewReader(data))
}

// ParsePayload normalizes a decoded payload map into a Payload.
func ParsePayload(raw map[string]any) Payload {
	p := Payload{
		Summary:       map[string]any{},
		Charts:        map[string]ChartData{},
		AuditTimeline: []TimelineEntry{},
		FilterOptions: map[FilterDimension][]string{},
	}
	if raw == nil {
		return p
	}
	if s, ok := raw["customer"].(string); ok {
		p.Customer = s
	}

	for key, value := range mapValue(raw["summary"]) {
		if alias, ok := summaryAliases[key]; ok {
			if _, exists := p.Summary[alias]; !exists || isBlank(p.Summary[alias]) {
				p.Summary[alias] = value
			}
			continue
		}
		p.Summary[key] = value
	}
	if health := mapValue(raw["compliance_health"]); health != nil {
		if _, ok := p.Summary["compliance_health_score"]; !ok && health["score"] != nil {
			p.Summary["compliance_health_score"] = health["score"]
		}
	}

	for _, entry := range statsCharts {
		section := mapValue(raw[entry.section])
		if section == nil {
			continue
		}
		if chart, ok := parseChartData(section[entry.field]); ok {
			p.Charts[entry.chart] = chart
		}
	}
	for name, value := range mapValue(raw["charts"]) {
		if chart, ok := parseChartData(value); ok {
			p.Charts[name] = chart
		}
	}

	if entries, ok := raw["audit_timeline"].([]any); ok {
		for _, item := range entries {
			if row := mapValue(item); row != nil {
				p.AuditTimeline = append(p.AuditTimeline, parseTimelineEntry(row))
			}
		}
	}

	if profile := mapValue(raw["profile"]); profile != nil {
		p.Profile = profile
	} else if customer := mapValue(raw["customer"]); customer != nil {
		p.Profile = customer
	}

	parseFilterOptions(raw, p.FilterOptions)
	return p
}

func parseChartData(v any) (ChartData, bool) {
	m := mapValue(v)
	if m == nil {
		return ChartData{}, false
	}
	chart := ChartData{
		Labels:   stringSliceValue(m["labels"]),
		Datasets: []Dataset{},
	}
	if chart.Labels == nil {
		chart.Labels = []string{}
	}
	if sets, ok := m["datasets"].([]any); ok {
		for _, item := range sets {
			ds := mapValue(item)
			if ds == nil {
				continue
			}
			values := float64SliceValue(ds["values"])
			if values == nil {
				values = []float64{}
			}
			chart.Datasets = append(chart.Datasets, Dataset{
				Name:   stringValue(ds["name"], ""),
				Values: values,
			})
		}
	}
	if len(chart.Datasets) == 0 {
		chart.Datasets = []Dataset{{Values: []float64{}}}
	}
	return chart, true
}

func parseTimelineEntry(row map[string]any) TimelineEntry {
	entry := TimelineEntry{
		Timestamp: stringValue(row["timestamp"], ""),
		User:      stringValue(row["user"], ""),
		Action:    stringValue(row["action"], ""),
		Entity:    stringValue(row["entity"], ""),
		Remarks:   stringValue(row["remarks"], ""),
	}
	switch payload := row["payload"].(type) {
	case map[string]any:
		entry.Payload = payload
	case string:
		var decoded map[string]any
		if err := json.Unmarshal([]byte(payload), &decoded); err == nil {
			entry.Payload = decoded
		} else if payload != "" {
			entry.Payload = map[string]any{"raw": payload}
		}
	}
	return entry
}

func parseFilterOptions(raw map[string]any, out map[FilterDimension][]string) {
	set := func(dim FilterDimension, v any, requireValues bool) {
		if v == nil {
			return
		}
		values := stringSliceValue(v)
		if values == nil {
			return
		}
		if requireValues && len(values) == 0 {
			return
		}
		out[dim] = values
	}

	if docs := mapValue(raw["document_stats"]); docs != nil {
		set(FilterDocumentType, docs["available_types"], false)
		set(FilterStatus, docs["available_statuses"], false)
	}
	if filings := mapValue(raw["filing_stats"]); filings != nil {
		set(FilterYear, filings["available_years"], true)
	}
	if filters := mapValue(raw["filters"]); filters != nil {
		set(FilterDocumentType, filters["document_types"], false)
		set(FilterStatus, filters["statuses"], false)
		set(FilterYear, filters["years"], true)
	}
	if options := mapValue(raw["available_filter_options"]); options != nil {
		set(FilterYear, options["year"], false)
		set(FilterDocumentType, options["document_type"], false)
		set(FilterStatus, options["status"], false)
	}
}

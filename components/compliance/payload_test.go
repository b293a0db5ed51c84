package compliance

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayloadCanonicalShape(t *testing.T) {
	const body = `{
		"summary": {"total_documents": 12, "compliance_health_score": "87", "expiring_within_30_days": 3},
		"charts": {"document_types": {"labels": ["Tax"], "datasets": [{"name": "Docs", "values": [4]}]}},
		"audit_timeline": [{"timestamp": "t", "user": "u", "action": "a", "payload": "not json"}],
		"profile": {"customer_name": "Acme"},
		"available_filter_options": {"year": [2024, 2023], "document_type": ["Tax", "Tax", "ID"]}
	}`
	payload, err := DecodePayload(strings.NewReader(body))
	require.NoError(t, err)

	assert.Equal(t, "12", stringValue(payload.Summary["total_documents"], ""))
	assert.Contains(t, payload.Summary, "expiring_documents")
	assert.NotContains(t, payload.Summary, "expiring_within_30_days")
	assert.Equal(t, []string{"Tax"}, payload.Charts["document_types"].Labels)
	assert.Equal(t, []float64{4}, payload.Charts["document_types"].Datasets[0].Values)
	require.Len(t, payload.AuditTimeline, 1)
	assert.Equal(t, map[string]any{"raw": "not json"}, payload.AuditTimeline[0].Payload)
	assert.Equal(t, "Acme", payload.Profile["customer_name"])
	assert.Equal(t, []string{"2024", "2023"}, payload.FilterOptions[FilterYear])
	assert.Equal(t, []string{"Tax", "Tax", "ID"}, payload.FilterOptions[FilterDocumentType])
}

func TestDecodePayloadOverviewShape(t *testing.T) {
	const body = `{
		"customer": {"customer_name": "Acme", "tin": "1"},
		"document_stats": {
			"document_types": {"labels": ["A"], "datasets": [{"values": [1]}]},
			"document_upload_activity": {"labels": ["Jan"], "datasets": [{"values": [2]}]},
			"available_types": ["A"],
			"available_statuses": ["Valid"]
		},
		"filing_stats": {"filed_form_types": {"labels": ["VAT"], "datasets": [{"values": [3]}]}, "available_years": []},
		"compliance_health": {"score": 64, "area_breakdown": {"labels": ["Tax"], "datasets": [{"values": [64]}]}}
	}`
	payload, err := DecodePayloadBytes([]byte(body))
	require.NoError(t, err)

	assert.Contains(t, payload.Charts, "document_types")
	assert.Contains(t, payload.Charts, "upload_activity")
	assert.Contains(t, payload.Charts, "filed_forms")
	assert.Contains(t, payload.Charts, "compliance_status")
	assert.Equal(t, "Acme", payload.Profile["customer_name"])
	score, ok := float64Value(payload.Summary["compliance_health_score"])
	require.True(t, ok)
	assert.Equal(t, 64.0, score)
	assert.Equal(t, []string{"A"}, payload.FilterOptions[FilterDocumentType])
	assert.Equal(t, []string{"Valid"}, payload.FilterOptions[FilterStatus])
	assert.NotContains(t, payload.FilterOptions, FilterYear)
}

func TestDecodePayloadRejectsNonObjects(t *testing.T) {
	for _, body := range []string{"", "null", "[1,2]", "{"} {
		_, err := DecodePayload(strings.NewReader(body))
		assert.Error(t, err, body)
	}
}

func TestParsePayloadToleratesMistypedFields(t *testing.T) {
	payload := ParsePayload(map[string]any{
		"summary":        "oops",
		"charts":         []any{1},
		"audit_timeline": map[string]any{},
		"profile":        42,
	})
	assert.Empty(t, payload.Summary)
	assert.Empty(t, payload.Charts)
	assert.Empty(t, payload.AuditTimeline)
	assert.Nil(t, payload.Profile)
}

func TestParseChartDataDefaultsDataset(t *testing.T) {
	chart, ok := parseChartData(map[string]any{"labels": []any{"A"}})
	require.True(t, ok)
	assert.Equal(t, []Dataset{{Values: []float64{}}}, chart.Datasets)
	assert.True(t, chart.IsEmpty())
}

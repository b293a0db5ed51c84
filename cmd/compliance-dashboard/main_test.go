package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-compliance-dashboard/components/compliance/commands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadFileConfigMergesUnderFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9000"
adapter: fiber
idle_ttl: 5m
upstream:
  base_url: https://erp.example.com
  style: flat
  api_key: key
`), 0o600))

	cfg, err := loadFileConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.IdleTTL)

	flags := SourceFlags{APIKey: "from-flag"}
	flags.merge(cfg)
	assert.Equal(t, "https://erp.example.com", flags.Upstream)
	assert.Equal(t, "flat", flags.Style)
	assert.Equal(t, "from-flag", flags.APIKey)
	assert.Equal(t, "info", flags.LogLevel)
}

func TestLoadFileConfigRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listn: ':9000'\n"), 0o600))
	_, err := loadFileConfig(path)
	require.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, err = loadFileConfig(empty)
	require.NoError(t, err)
}

func TestSnapshotPrintsDemoView(t *testing.T) {
	var out bytes.Buffer
	cmd := &snapshotCmd{Customer: "CUST-001", Surface: "indicator", Format: "yaml", out: &out}
	require.NoError(t, cmd.Run(context.Background()))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "indicator", decoded["surface"])
	assert.Equal(t, "CUST-001", decoded["customer_id"])
	assert.NotContains(t, decoded, "is_page")
	indicators, ok := decoded["indicators"].([]any)
	require.True(t, ok)
	assert.Len(t, indicators, 3)
}

func TestSnapshotJSONWithFilters(t *testing.T) {
	var out bytes.Buffer
	cmd := &snapshotCmd{Customer: "CUST-002", Surface: "page", Format: "json", Year: "2022", out: &out}
	require.NoError(t, cmd.Run(context.Background()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "page", decoded["surface"])
	assert.NotEmpty(t, decoded["charts"])
}

func TestSnapshotRejectsUnmountedFilter(t *testing.T) {
	cmd := &snapshotCmd{Customer: "CUST-002", Surface: "indicator", Format: "json", Year: "2022", out: &bytes.Buffer{}}
	require.Error(t, cmd.Run(context.Background()))
}

func TestManifestInitAndCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "surfaces.yaml")
	require.NoError(t, (&manifestInitCmd{Path: path}).Run(context.Background()))
	require.Error(t, (&manifestInitCmd{Path: path}).Run(context.Background()))

	var out bytes.Buffer
	require.NoError(t, (&manifestCheckCmd{Path: path, out: &out}).Run(context.Background()))
	assert.True(t, strings.Contains(out.String(), "form_tab"))
}

func TestServeBuildWiresDemoStack(t *testing.T) {
	cmd := &serveCmd{}
	cmd.LogLevel = "error"
	app, err := cmd.build(cmd.logger())
	require.NoError(t, err)
	require.NoError(t, app.executor.SelectCustomer(context.Background(), selectInput("ws-1", "CUST-003")))

	ws, ok := app.workspaces.Get("ws-1")
	require.True(t, ok)
	ctrl, err := ws.Controller("page")
	require.NoError(t, err)
	assert.Equal(t, "CUST-003", ctrl.View().CustomerID)
	assert.NotEmpty(t, ctrl.View().Charts[0].HTML)
}

func TestServeBuildPassesOriginsToStreams(t *testing.T) {
	cmd := &serveCmd{AllowedOrigins: []string{"https://erp.example.com"}}
	cmd.LogLevel = "error"
	app, err := cmd.build(cmd.logger())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "http://dash.local/compliance/ws", nil)
	req.Header.Set("Origin", "https://erp.example.com")
	assert.True(t, app.broadcaster.CheckOrigin(req))
	req.Header.Set("Origin", "https://evil.example.net")
	assert.False(t, app.broadcaster.CheckOrigin(req))
}

func selectInput(workspaceID, customer string) commands.SelectCustomerInput {
	return commands.SelectCustomerInput{WorkspaceID: workspaceID, CustomerID: customer}
}

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-compliance-dashboard/components/compliance"
	"github.com/goliatone/go-compliance-dashboard/pkg/erpnext"
)

// fileConfig is the optional YAML config. Flags and env vars win over it.
type fileConfig struct {
	Listen         string         `yaml:"listen"`
	Adapter        string         `yaml:"adapter"`
	Manifest       string         `yaml:"manifest"`
	AllowedOrigins []string       `yaml:"allowed_origins"`
	SessionKey     string         `yaml:"session_key"`
	IdleTTL        time.Duration  `yaml:"idle_ttl"`
	LogLevel       string         `yaml:"log_level"`
	Upstream       upstreamConfig `yaml:"upstream"`
}

type upstreamConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Method    string        `yaml:"method"`
	Style     string        `yaml:"style"`
	APIKey    string        `yaml:"api_key"`
	APISecret string        `yaml:"api_secret"`
	Latency   time.Duration `yaml:"mock_latency"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return cfg, fmt.Errorf("compliance-dashboard: read config %s: %w", path, err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("compliance-dashboard: parse config %s: %w", path, err)
	}
	return cfg, nil
}

// SourceFlags selects the payload source shared by serve and snapshot.
type SourceFlags struct {
	Config      string        `type:"path" env:"COMPLIANCE_CONFIG" help:"Optional YAML config file."`
	Upstream    string        `env:"COMPLIANCE_UPSTREAM" help:"ERPNext base URL. Empty serves demo fixtures."`
	Method      string        `env:"COMPLIANCE_METHOD" help:"Whitelisted RPC method returning the dashboard payload."`
	Style       string        `env:"COMPLIANCE_REQUEST_STYLE" help:"RPC request body style (nested, flat)."`
	APIKey      string        `name:"api-key" env:"COMPLIANCE_API_KEY" help:"ERPNext API key."`
	APISecret   string        `name:"api-secret" env:"COMPLIANCE_API_SECRET" help:"ERPNext API secret."`
	MockLatency time.Duration `env:"COMPLIANCE_MOCK_LATENCY" help:"Artificial latency of demo fixtures."`
	Manifest    string        `type:"path" env:"COMPLIANCE_MANIFEST" help:"Surface manifest YAML overriding the built-in surfaces."`
	LogLevel    string        `env:"COMPLIANCE_LOG_LEVEL" help:"Log level (debug, info, warn, error)."`
}

// merge fills unset flags from the config file.
func (f *SourceFlags) merge(cfg fileConfig) {
	f.Upstream = firstNonEmpty(f.Upstream, cfg.Upstream.BaseURL)
	f.Method = firstNonEmpty(f.Method, cfg.Upstream.Method)
	f.Style = firstNonEmpty(f.Style, cfg.Upstream.Style)
	f.APIKey = firstNonEmpty(f.APIKey, cfg.Upstream.APIKey)
	f.APISecret = firstNonEmpty(f.APISecret, cfg.Upstream.APISecret)
	f.Manifest = firstNonEmpty(f.Manifest, cfg.Manifest)
	f.LogLevel = firstNonEmpty(f.LogLevel, cfg.LogLevel, "info")
	if f.MockLatency == 0 {
		f.MockLatency = cfg.Upstream.Latency
	}
}

func (f *SourceFlags) logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(f.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func (f *SourceFlags) fetcher() (compliance.Fetcher, error) {
	if f.Upstream == "" {
		return erpnext.NewMockClient(erpnext.MockData{
			Fallback: erpnext.DemoPayload,
			Latency:  f.MockLatency,
		}), nil
	}
	return erpnext.NewHTTPClient(erpnext.HTTPConfig{
		BaseURL:   f.Upstream,
		Method:    f.Method,
		Style:     erpnext.RequestStyle(f.Style),
		APIKey:    f.APIKey,
		APISecret: f.APISecret,
	})
}

func (f *SourceFlags) surfaces() (map[compliance.SurfaceKind]compliance.Surface, error) {
	base := compliance.DefaultSurfaces()
	if f.Manifest == "" {
		return base, nil
	}
	doc, err := compliance.ReadManifest(f.Manifest)
	if err != nil {
		return nil, err
	}
	return doc.Apply(base), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

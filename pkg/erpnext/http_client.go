// Package erpnext fetches compliance dashboard payloads from an ERPNext
// (Frappe) backend.
package erpnext

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-compliance-dashboard/components/compliance"
)

// DefaultMethod is the whitelisted RPC method serving dashboard payloads.
const DefaultMethod = "kaj_gcmc_compliance.api.dashboard.get_dashboard_data"

// RequestStyle selects how the selection is encoded in the RPC body.
type RequestStyle string

const (
	// StyleNested sends {"customer", "filters": {"year", "doctype", "status"}}.
	StyleNested RequestStyle = "nested"
	// StyleFlat sends {"customer_id", "year", "document_type", "status"}.
	StyleFlat RequestStyle = "flat"
)

// HTTPConfig configures the HTTP client.
type HTTPConfig struct {
	BaseURL    string
	Method     string
	Style      RequestStyle
	APIKey     string
	APISecret  string
	HTTPClient *http.Client
}

// HTTPClient calls the Frappe RPC endpoint over REST.
type HTTPClient struct {
	baseURL string
	method  string
	style   RequestStyle
	token   string
	client  *http.Client
}

var _ compliance.Fetcher = (*HTTPClient)(nil)

// NewHTTPClient builds a client for a live backend.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("erpnext: base url is required")
	}
	style := cfg.Style
	switch style {
	case "":
		style = StyleNested
	case StyleNested, StyleFlat:
	default:
		return nil, fmt.Errorf("erpnext: unknown request style %q", style)
	}
	method := strings.TrimSpace(cfg.Method)
	if method == "" {
		method = DefaultMethod
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	var token string
	if cfg.APIKey != "" {
		token = "token " + cfg.APIKey + ":" + cfg.APISecret
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		method:  method,
		style:   style,
		token:   token,
		client:  httpClient,
	}, nil
}

// Fetch implements compliance.Fetcher.
func (c *HTTPClient) Fetch(ctx context.Context, req compliance.Request) (compliance.Payload, error) {
	var envelope struct {
		Message json.RawMessage `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/method/"+c.method, req.RequestID, c.body(req), &envelope); err != nil {
		return compliance.Payload{}, err
	}
	if len(envelope.Message) == 0 {
		return compliance.Payload{}, fmt.Errorf("erpnext: response has no message")
	}
	payload, err := compliance.DecodePayloadBytes(envelope.Message)
	if err != nil {
		return compliance.Payload{}, fmt.Errorf("erpnext: %w", err)
	}
	return payload, nil
}

func (c *HTTPClient) body(req compliance.Request) any {
	value := func(dim compliance.FilterDimension) string {
		v, _ := req.Filters.Value(dim)
		return v
	}
	if c.style == StyleFlat {
		return flatRequest{
			CustomerID:   req.CustomerID,
			Year:         value(compliance.FilterYear),
			DocumentType: value(compliance.FilterDocumentType),
			Status:       value(compliance.FilterStatus),
		}
	}
	return nestedRequest{
		Customer: req.CustomerID,
		Filters: nestedFilters{
			Year:    value(compliance.FilterYear),
			DocType: value(compliance.FilterDocumentType),
			Status:  value(compliance.FilterStatus),
		},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path, requestID string, payload any, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("erpnext: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("erpnext: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("erpnext: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return fmt.Errorf("erpnext: remote error %d: %s", resp.StatusCode, strings.TrimSpace(buf.String()))
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("erpnext: decode response: %w", err)
	}
	return nil
}

type nestedFilters struct {
	Year    string `json:"year,omitempty"`
	DocType string `json:"doctype,omitempty"`
	Status  string `json:"status,omitempty"`
}

type nestedRequest struct {
	Customer string        `json:"customer"`
	Filters  nestedFilters `json:"filters"`
}

type flatRequest struct {
	CustomerID   string `json:"customer_id"`
	Year         string `json:"year,omitempty"`
	DocumentType string `json:"document_type,omitempty"`
	Status       string `json:"status,omitempty"`
}

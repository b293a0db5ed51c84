package erpnext

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/goliatone/go-compliance-dashboard/components/compliance"
)

// MockData seeds deterministic responses for tests or local demos.
type MockData struct {
	// Customers maps a customer id to its raw payload.
	Customers map[string]map[string]any
	// Fallback builds a payload for customers missing from Customers.
	Fallback func(req compliance.Request) map[string]any
	// Latency delays every response.
	Latency time.Duration
}

// MockClient implements compliance.Fetcher from in-memory fixtures.
type MockClient struct {
	data MockData

	mu       sync.Mutex
	requests []compliance.Request
	errs     map[string]error
}

var _ compliance.Fetcher = (*MockClient)(nil)

// NewMockClient builds a mock client from the provided fixtures.
func NewMockClient(data MockData) *MockClient {
	return &MockClient{data: data, errs: map[string]error{}}
}

// FailFor makes every fetch for customer return err. A nil err clears it.
func (c *MockClient) FailFor(customer string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.errs, customer)
		return
	}
	c.errs[customer] = err
}

// Requests returns the requests served so far.
func (c *MockClient) Requests() []compliance.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]compliance.Request(nil), c.requests...)
}

// Fetch implements compliance.Fetcher.
func (c *MockClient) Fetch(ctx context.Context, req compliance.Request) (compliance.Payload, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	err := c.errs[req.CustomerID]
	raw, ok := c.data.Customers[req.CustomerID]
	c.mu.Unlock()

	if c.data.Latency > 0 {
		timer := time.NewTimer(c.data.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return compliance.Payload{}, ctx.Err()
		case <-timer.C:
		}
	}
	if err != nil {
		return compliance.Payload{}, err
	}
	if !ok {
		if c.data.Fallback == nil {
			return compliance.Payload{}, fmt.Errorf("erpnext: customer %s not found", req.CustomerID)
		}
		raw = c.data.Fallback(req)
	}
	return compliance.ParsePayload(raw), nil
}

// DemoPayload builds a plausible payload derived from the customer id so
// demos show different numbers per customer.
func DemoPayload(req compliance.Request) map[string]any {
	h := fnv.New32a()
	_, _ = h.Write([]byte(req.CustomerID))
	seed := int(h.Sum32() % 97)
	year, _ := req.Filters.Value(compliance.FilterYear)
	if year == "" {
		year = fmt.Sprint(time.Now().Year())
	}
	score := 40 + seed%60
	months := []any{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	trend := make([]any, len(months))
	uploads := make([]any, len(months))
	for i := range months {
		trend[i] = (seed + i*3) % 7
		uploads[i] = (seed*i + 5) % 11
	}
	return map[string]any{
		"customer": req.CustomerID,
		"summary": map[string]any{
			"total_documents":         20 + seed,
			"total_filed_forms":       5 + seed%12,
			"compliance_health_score": score,
			"expiring_documents":      seed % 4,
			"next_compliance_due":     year + "-12-31",
			"last_filing_date":        year + "-03-31",
		},
		"charts": map[string]any{
			"document_types":    chart([]any{"Tax", "Registration", "Licence", "Financial"}, []any{seed % 9, 3, 2 + seed%4, 5}),
			"filed_forms":       chart([]any{"VAT", "PAYE", "Income Tax"}, []any{4, 2 + seed%3, 1}),
			"compliance_status": chart([]any{"Compliant", "Pending", "Overdue"}, []any{score, (100 - score) / 2, (100 - score) / 2}),
			"filing_trends":     chart(months, trend),
			"upload_activity":   chart(months, uploads),
			"expiry_timeline":   chart([]any{"30d", "60d", "90d"}, []any{seed % 4, seed % 3, seed % 5}),
		},
		"audit_timeline": []any{
			map[string]any{"timestamp": year + "-03-31 10:12", "user": "clerk@example.com", "action": "Filed", "entity": "VAT Return"},
			map[string]any{"timestamp": year + "-02-14 16:40", "user": "clerk@example.com", "action": "Uploaded", "entity": "TIN Certificate"},
		},
		"profile": map[string]any{
			"customer_name":   req.CustomerID,
			"customer_id":     req.CustomerID,
			"tin":             fmt.Sprintf("%03d-%03d-%03d", seed, seed*7%1000, seed*13%1000),
			"business_type":   "Company",
			"business_sector": "Services",
			"assigned_staff":  "clerk@example.com",
		},
		"available_filter_options": map[string]any{
			"document_type": []any{"Tax", "Registration", "Licence", "Financial"},
			"status":        []any{"Valid", "Expiring", "Expired"},
		},
	}
}

func chart(labels []any, values []any) map[string]any {
	return map[string]any{
		"labels":   labels,
		"datasets": []any{map[string]any{"values": values}},
	}
}

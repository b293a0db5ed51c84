package compliance

import (
	"context"
	"net/url"
	"strings"
)

// RouteParams carries what the host router knows when a surface is shown.
// Options are one-shot values handed over by the page that navigated here.
type RouteParams struct {
	Query   url.Values
	Options map[string]string
}

// Customer resolves the customer named by the route: the query string wins
// over route options.
func (p RouteParams) Customer() (string, bool) {
	if p.Query != nil {
		if value := strings.TrimSpace(p.Query.Get("customer")); value != "" {
			return value, true
		}
	}
	if value := strings.TrimSpace(p.Options["customer"]); value != "" {
		return value, true
	}
	return "", false
}

// EntityRef identifies the customer record a form surface is bound to.
type EntityRef struct {
	ID    string `json:"id"`
	IsNew bool   `json:"is_new"`
}

// OnActivate is called whenever the surface becomes visible.
func (c *Controller) OnActivate(ctx context.Context, params RouteParams) RefreshOutcome {
	c.mu.Lock()
	c.active = true
	c.mu.Unlock()
	c.record(ctx, "compliance.surface.activate", nil)

	if customer, ok := params.Customer(); ok {
		return c.SetCustomer(ctx, customer)
	}
	if c.CustomerID() == "" {
		c.Render(ctx, nil)
		c.setStatus(ctx, StatusIdle)
		return OutcomeSkipped
	}
	return c.Refresh(ctx)
}

// OnDeactivate hides the surface. Later refreshes are skipped while the
// selection keeps tracking changes; an outstanding response still paints.
func (c *Controller) OnDeactivate(ctx context.Context) {
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
	c.record(ctx, "compliance.surface.deactivate", nil)
}

// Active reports whether the surface is visible.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// OnEntitySaved rebinds a form surface after its record was saved. A record
// without an id yet shows the pending state.
func (c *Controller) OnEntitySaved(ctx context.Context, ref EntityRef) RefreshOutcome {
	id := strings.TrimSpace(ref.ID)
	if ref.IsNew || id == "" {
		c.ShowPending(ctx)
		return OutcomeSkipped
	}
	c.emit(ctx, "compliance.customer.saved", id, nil)
	return c.SetCustomer(ctx, id)
}

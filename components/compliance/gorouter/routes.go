// Package gorouter mounts the compliance dashboard on a go-router router.
package gorouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	router "github.com/goliatone/go-router"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-compliance-dashboard/components/compliance"
	"github.com/goliatone/go-compliance-dashboard/components/compliance/commands"
	"github.com/goliatone/go-compliance-dashboard/components/compliance/httpapi"
	"github.com/goliatone/go-compliance-dashboard/components/compliance/queries"
)

// WorkspaceResolver extracts the session workspace id from a request.
type WorkspaceResolver func(router.Context) string

// Config wires go-router with the compliance commands, queries and streams.
type Config[T any] struct {
	Router            router.Router[T]
	API               httpapi.Executor
	View              gocommand.Querier[queries.ViewInput, compliance.View]
	Presenter         *compliance.Presenter
	Broadcast         *compliance.ViewBroadcaster
	WorkspaceResolver WorkspaceResolver
	BasePath          string
	Routes            RouteConfig
}

// RouteConfig customizes the relative paths used for dashboard endpoints.
type RouteConfig struct {
	HTML        string
	View        string
	Customer    string
	Filters     string
	Refresh     string
	Deactivate  string
	EntitySaved string
	WebSocket   string
}

// Register mounts the compliance routes (HTML, JSON, commands, WebSocket).
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.View == nil {
		return errors.New("gorouter: view query is required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	base := cfg.BasePath
	if base == "" {
		base = httpapi.DefaultBasePath
	}
	resolver := cfg.WorkspaceResolver
	if resolver == nil {
		resolver = defaultWorkspaceResolver
	}

	group := cfg.Router.Group(base)

	if cfg.Broadcast != nil {
		registerWebSocket(group, cfg.Broadcast, resolver, routes.WebSocket)
	}
	if cfg.API != nil {
		registerAPI(group, cfg, resolver, routes)
	}

	group.Get(routes.View, router.WrapHandler(func(ctx router.Context) error {
		workspaceID, kind, err := target(ctx, resolver)
		if err != nil {
			return respondError(ctx, err)
		}
		return respondView(ctx, cfg.View, workspaceID, kind)
	}))

	group.Get(routes.HTML, router.WrapHandler(func(ctx router.Context) error {
		workspaceID, kind, err := target(ctx, resolver)
		if err != nil {
			return respondError(ctx, err)
		}
		if cfg.API != nil {
			input := commands.ActivateSurfaceInput{
				WorkspaceID: workspaceID,
				Surface:     kind,
				Params:      compliance.RouteParams{Query: routeQuery(ctx)},
			}
			if err := cfg.API.Activate(ctx.Context(), input); err != nil {
				return respondError(ctx, err)
			}
		}
		view, err := cfg.View.Query(ctx.Context(), queries.ViewInput{WorkspaceID: workspaceID, Surface: kind})
		if err != nil {
			return respondError(ctx, err)
		}
		var buf bytes.Buffer
		if err := cfg.Presenter.Present(view, &buf); err != nil {
			return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
		return ctx.Send(buf.Bytes())
	}))

	return nil
}

func registerAPI[T any](r router.Router[T], cfg Config[T], resolver WorkspaceResolver, routes RouteConfig) {
	api := cfg.API

	r.Post(routes.Customer, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.SelectCustomerInput
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		payload.WorkspaceID = resolver(ctx)
		if err := api.SelectCustomer(ctx.Context(), payload); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "selected"})
	}))

	r.Post(routes.EntitySaved, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.EntitySavedInput
		if body := ctx.Body(); len(body) > 0 {
			if err := json.Unmarshal(body, &payload); err != nil {
				return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			}
		}
		payload.WorkspaceID = resolver(ctx)
		payload.CustomerID = ctx.Param("id")
		if err := api.EntitySaved(ctx.Context(), payload); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusAccepted, map[string]string{"status": "saved"})
	}))

	r.Post(routes.Filters, router.WrapHandler(func(ctx router.Context) error {
		workspaceID, kind, err := target(ctx, resolver)
		if err != nil {
			return respondError(ctx, err)
		}
		var payload commands.ChangeFilterInput
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		payload.WorkspaceID, payload.Surface = workspaceID, kind
		if err := api.ChangeFilter(ctx.Context(), payload); err != nil {
			return respondError(ctx, err)
		}
		return respondView(ctx, cfg.View, workspaceID, kind)
	}))

	r.Post(routes.Refresh, router.WrapHandler(func(ctx router.Context) error {
		workspaceID, kind, err := target(ctx, resolver)
		if err != nil {
			return respondError(ctx, err)
		}
		if err := api.Refresh(ctx.Context(), commands.RefreshSurfaceInput{WorkspaceID: workspaceID, Surface: kind}); err != nil {
			return respondError(ctx, err)
		}
		return respondView(ctx, cfg.View, workspaceID, kind)
	}))

	r.Post(routes.Deactivate, router.WrapHandler(func(ctx router.Context) error {
		workspaceID, kind, err := target(ctx, resolver)
		if err != nil {
			return respondError(ctx, err)
		}
		input := commands.ActivateSurfaceInput{WorkspaceID: workspaceID, Surface: kind, Deactivate: true}
		if err := api.Activate(ctx.Context(), input); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "inactive"})
	}))
}

func registerWebSocket[T any](r router.Router[T], broadcaster *compliance.ViewBroadcaster, resolver WorkspaceResolver, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		return streamViews(ws, broadcaster, resolver(ws))
	})
}

// viewStream is the part of a websocket connection streamViews writes to.
type viewStream interface {
	Context() context.Context
	WriteJSON(v any) error
	Close() error
}

// streamViews forwards the repaints of workspaceID until the connection
// ends. A connection without a workspace gets an error frame and is closed.
func streamViews(ws viewStream, broadcaster *compliance.ViewBroadcaster, workspaceID string) error {
	events, cancel, err := broadcaster.Subscribe(workspaceID)
	if err != nil {
		_ = ws.WriteJSON(map[string]string{"error": err.Error()})
		_ = ws.Close()
		return err
	}
	defer cancel()
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := ws.WriteJSON(event); err != nil {
				return err
			}
		case <-ws.Context().Done():
			return ws.Close()
		}
	}
}

func target(ctx router.Context, resolver WorkspaceResolver) (string, compliance.SurfaceKind, error) {
	kind, err := compliance.ParseSurfaceKind(ctx.Param("surface"))
	if err != nil {
		return "", "", err
	}
	workspaceID := resolver(ctx)
	if workspaceID == "" {
		return "", "", compliance.ErrMissingWorkspaceID
	}
	return workspaceID, kind, nil
}

func respondView(ctx router.Context, query gocommand.Querier[queries.ViewInput, compliance.View], workspaceID string, kind compliance.SurfaceKind) error {
	view, err := query.Query(ctx.Context(), queries.ViewInput{WorkspaceID: workspaceID, Surface: kind})
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, view)
}

// routeQuery rebuilds the parameters the activation hook reads.
func routeQuery(ctx router.Context) url.Values {
	values := url.Values{}
	if customer := strings.TrimSpace(ctx.Query("customer")); customer != "" {
		values.Set("customer", customer)
	}
	return values
}

// defaultWorkspaceResolver prefers a workspace set by upstream middleware,
// then the header, then the query string.
func defaultWorkspaceResolver(ctx router.Context) string {
	if id, ok := ctx.Locals("workspace_id").(string); ok && id != "" {
		return id
	}
	if id := strings.TrimSpace(ctx.Header(httpapi.WorkspaceHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(ctx.Query("workspace"))
}

func respondError(ctx router.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, compliance.ErrUnknownSurface):
		status = http.StatusNotFound
	case errors.Is(err, compliance.ErrFilterNotMounted),
		errors.Is(err, compliance.ErrUnknownDimension),
		errors.Is(err, compliance.ErrMissingWorkspaceID):
		status = http.StatusBadRequest
	}
	return ctx.JSON(status, map[string]string{"error": err.Error()})
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.HTML == "" {
		routes.HTML = "/:surface"
	}
	if routes.View == "" {
		routes.View = "/:surface/view"
	}
	if routes.Customer == "" {
		routes.Customer = "/customer"
	}
	if routes.Filters == "" {
		routes.Filters = "/:surface/filters"
	}
	if routes.Refresh == "" {
		routes.Refresh = "/:surface/refresh"
	}
	if routes.Deactivate == "" {
		routes.Deactivate = "/:surface/deactivate"
	}
	if routes.EntitySaved == "" {
		routes.EntitySaved = "/entities/:id/saved"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/ws"
	}
	return routes
}

// Package httpapi exposes the compliance dashboard over net/http using
// gorilla/mux, with the workspace bound to a gorilla/sessions cookie.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-compliance-dashboard/components/compliance"
	"github.com/goliatone/go-compliance-dashboard/components/compliance/commands"
	"github.com/goliatone/go-compliance-dashboard/components/compliance/queries"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
)

const (
	// SessionName is the cookie session holding the workspace id.
	SessionName = "compliance_dashboard"
	// WorkspaceHeader overrides the session workspace, mainly for API clients.
	WorkspaceHeader = "X-Workspace-ID"

	sessionWorkspaceKey = "workspace_id"
)

// Streams pushes repaints to browsers.
type Streams interface {
	ServeWebSocket(w http.ResponseWriter, r *http.Request)
	ServeSSE(w http.ResponseWriter, r *http.Request)
}

// Handlers exposes HTTP endpoints backed by shared commands.
type Handlers struct {
	SelectCustomer gocommand.Commander[commands.SelectCustomerInput]
	ChangeFilter   gocommand.Commander[commands.ChangeFilterInput]
	Refresh        gocommand.Commander[commands.RefreshSurfaceInput]
	EntitySaved    gocommand.Commander[commands.EntitySavedInput]
	Activate       gocommand.Commander[commands.ActivateSurfaceInput]
	View           gocommand.Querier[queries.ViewInput, compliance.View]
	Presenter      *compliance.Presenter
	Sessions       sessions.Store
	Streams        Streams
}

type customerPayload struct {
	CustomerID string                       `json:"customer"`
	Kind       compliance.CustomerEventKind `json:"kind,omitempty"`
}

type filterPayload struct {
	Dimension compliance.FilterDimension `json:"dimension"`
	Value     string                     `json:"value"`
}

type savedPayload struct {
	IsNew bool `json:"is_new"`
}

// HandleSurfacePage activates the surface with the request query and renders
// it as HTML.
func (h *Handlers) HandleSurfacePage(w http.ResponseWriter, r *http.Request) {
	workspaceID, kind, ok := h.target(w, r)
	if !ok {
		return
	}
	input := commands.ActivateSurfaceInput{
		WorkspaceID: workspaceID,
		Surface:     kind,
		Params:      compliance.RouteParams{Query: r.URL.Query()},
	}
	if err := h.Activate.Execute(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	view, err := h.View.Query(r.Context(), queries.ViewInput{WorkspaceID: workspaceID, Surface: kind})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.Presenter.Present(view, w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HandleSurfaceView returns the current view as JSON.
func (h *Handlers) HandleSurfaceView(w http.ResponseWriter, r *http.Request) {
	workspaceID, kind, ok := h.target(w, r)
	if !ok {
		return
	}
	h.writeView(w, r, workspaceID, kind, http.StatusOK)
}

// HandleDeactivate marks the surface hidden.
func (h *Handlers) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	workspaceID, kind, ok := h.target(w, r)
	if !ok {
		return
	}
	input := commands.ActivateSurfaceInput{WorkspaceID: workspaceID, Surface: kind, Deactivate: true}
	if err := h.Activate.Execute(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSelectCustomer publishes the customer to every surface.
func (h *Handlers) HandleSelectCustomer(w http.ResponseWriter, r *http.Request) {
	var payload customerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	workspaceID, err := h.workspaceID(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	input := commands.SelectCustomerInput{WorkspaceID: workspaceID, CustomerID: payload.CustomerID, Kind: payload.Kind}
	if err := h.SelectCustomer.Execute(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleChangeFilter applies a filter edit and returns the repainted view.
func (h *Handlers) HandleChangeFilter(w http.ResponseWriter, r *http.Request) {
	workspaceID, kind, ok := h.target(w, r)
	if !ok {
		return
	}
	var payload filterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	input := commands.ChangeFilterInput{
		WorkspaceID: workspaceID,
		Surface:     kind,
		Dimension:   payload.Dimension,
		Value:       payload.Value,
	}
	if err := h.ChangeFilter.Execute(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	h.writeView(w, r, workspaceID, kind, http.StatusOK)
}

// HandleRefresh reloads the surface and returns the view.
func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	workspaceID, kind, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.Refresh.Execute(r.Context(), commands.RefreshSurfaceInput{WorkspaceID: workspaceID, Surface: kind}); err != nil {
		writeError(w, err)
		return
	}
	h.writeView(w, r, workspaceID, kind, http.StatusOK)
}

// HandleEntitySaved fans a record save out to the workspace.
func (h *Handlers) HandleEntitySaved(w http.ResponseWriter, r *http.Request) {
	var payload savedPayload
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	workspaceID, err := h.workspaceID(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	input := commands.EntitySavedInput{WorkspaceID: workspaceID, CustomerID: mux.Vars(r)["id"], IsNew: payload.IsNew}
	if err := h.EntitySaved.Execute(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleWebSocket streams the session's repaints over a websocket.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(s Streams) func(http.ResponseWriter, *http.Request) { return s.ServeWebSocket })
}

// HandleEvents streams the session's repaints as Server-Sent Events.
func (h *Handlers) HandleEvents(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(s Streams) func(http.ResponseWriter, *http.Request) { return s.ServeSSE })
}

func (h *Handlers) stream(w http.ResponseWriter, r *http.Request, pick func(Streams) func(http.ResponseWriter, *http.Request)) {
	if h.Streams == nil {
		http.Error(w, "streaming not configured", http.StatusNotImplemented)
		return
	}
	query := r.URL.Query()
	if query.Get("workspace") == "" {
		workspaceID, err := h.workspaceID(w, r)
		if err != nil {
			writeError(w, err)
			return
		}
		query.Set("workspace", workspaceID)
		r = r.Clone(r.Context())
		r.URL.RawQuery = query.Encode()
	}
	pick(h.Streams)(w, r)
}

func (h *Handlers) writeView(w http.ResponseWriter, r *http.Request, workspaceID string, kind compliance.SurfaceKind, status int) {
	view, err := h.View.Query(r.Context(), queries.ViewInput{WorkspaceID: workspaceID, Surface: kind})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(view)
}

func (h *Handlers) target(w http.ResponseWriter, r *http.Request) (string, compliance.SurfaceKind, bool) {
	kind, err := compliance.ParseSurfaceKind(mux.Vars(r)["surface"])
	if err != nil {
		writeError(w, err)
		return "", "", false
	}
	workspaceID, err := h.workspaceID(w, r)
	if err != nil {
		writeError(w, err)
		return "", "", false
	}
	return workspaceID, kind, true
}

// workspaceID resolves the workspace from the header or the session cookie,
// minting one on first contact.
func (h *Handlers) workspaceID(w http.ResponseWriter, r *http.Request) (string, error) {
	if id := strings.TrimSpace(r.Header.Get(WorkspaceHeader)); id != "" {
		return id, nil
	}
	if h.Sessions == nil {
		return "", compliance.ErrMissingWorkspaceID
	}
	// A cookie that fails to decode still yields a fresh session.
	session, err := h.Sessions.Get(r, SessionName)
	if session == nil {
		return "", err
	}
	if id, ok := session.Values[sessionWorkspaceKey].(string); ok && id != "" {
		return id, nil
	}
	id := uuid.NewString()
	session.Values[sessionWorkspaceKey] = id
	if err := session.Save(r, w); err != nil {
		return "", err
	}
	return id, nil
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, compliance.ErrUnknownSurface):
		status = http.StatusNotFound
	case errors.Is(err, compliance.ErrFilterNotMounted),
		errors.Is(err, compliance.ErrUnknownDimension),
		errors.Is(err, compliance.ErrMissingWorkspaceID):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}

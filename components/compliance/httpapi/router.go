package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// DefaultBasePath prefixes every route.
const DefaultBasePath = "/compliance"

// RouterOptions configures NewRouter.
type RouterOptions struct {
	BasePath       string
	AllowedOrigins []string
}

// NewRouter mounts the handlers on a gorilla/mux router wrapped in CORS.
func NewRouter(h *Handlers, opts RouterOptions) http.Handler {
	base := opts.BasePath
	if base == "" {
		base = DefaultBasePath
	}
	r := mux.NewRouter()
	api := r.PathPrefix(base).Subrouter()

	api.HandleFunc("/ws", h.HandleWebSocket).Methods(http.MethodGet)
	api.HandleFunc("/events", h.HandleEvents).Methods(http.MethodGet)
	api.HandleFunc("/customer", h.HandleSelectCustomer).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/entities/{id}/saved", h.HandleEntitySaved).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/{surface}", h.HandleSurfacePage).Methods(http.MethodGet)
	api.HandleFunc("/{surface}/view", h.HandleSurfaceView).Methods(http.MethodGet)
	api.HandleFunc("/{surface}/filters", h.HandleChangeFilter).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/{surface}/refresh", h.HandleRefresh).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/{surface}/deactivate", h.HandleDeactivate).Methods(http.MethodPost, http.MethodOptions)

	// Sessions ride on cookies, so cross-site access is opt-in per origin.
	if len(opts.AllowedOrigins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", WorkspaceHeader},
		AllowCredentials: true,
	}).Handler(r)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"
	"github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/goliatone/go-compliance-dashboard/components/compliance"
	"github.com/goliatone/go-compliance-dashboard/components/compliance/commands"
	"github.com/goliatone/go-compliance-dashboard/components/compliance/gorouter"
	"github.com/goliatone/go-compliance-dashboard/components/compliance/httpapi"
	"github.com/goliatone/go-compliance-dashboard/components/compliance/queries"
	"github.com/goliatone/go-compliance-dashboard/pkg/activity"
	"github.com/goliatone/go-compliance-dashboard/pkg/activity/usersink"
)

type serveCmd struct {
	SourceFlags `embed:""`

	Listen         string        `env:"COMPLIANCE_LISTEN" help:"Listen address (default :8080)."`
	Adapter        string        `env:"COMPLIANCE_ADAPTER" help:"HTTP stack: http (gorilla/mux) or fiber (go-router)."`
	AllowedOrigins []string      `name:"allowed-origin" env:"COMPLIANCE_ALLOWED_ORIGINS" help:"CORS origins allowed to embed the dashboard."`
	SessionKey     string        `env:"COMPLIANCE_SESSION_KEY" help:"Cookie signing key for workspace sessions."`
	IdleTTL        time.Duration `name:"idle-ttl" env:"COMPLIANCE_IDLE_TTL" help:"Evict workspaces idle for longer than this (default 30m)."`
	AssetsHost     string        `env:"COMPLIANCE_ECHARTS_ASSETS" help:"Override the ECharts assets host."`
}

func (cmd *serveCmd) Run(ctx context.Context) error {
	cfg, err := loadFileConfig(cmd.Config)
	if err != nil {
		return err
	}
	cmd.merge(cfg)
	cmd.Listen = firstNonEmpty(cmd.Listen, cfg.Listen, ":8080")
	cmd.Adapter = firstNonEmpty(cmd.Adapter, cfg.Adapter, "http")
	cmd.SessionKey = firstNonEmpty(cmd.SessionKey, cfg.SessionKey)
	if len(cmd.AllowedOrigins) == 0 {
		cmd.AllowedOrigins = cfg.AllowedOrigins
	}
	if cmd.IdleTTL == 0 {
		cmd.IdleTTL = cfg.IdleTTL
	}
	if cmd.IdleTTL == 0 {
		cmd.IdleTTL = 30 * time.Minute
	}

	logger := cmd.logger()
	app, err := cmd.build(logger)
	if err != nil {
		return err
	}
	go app.workspaces.RunEviction(ctx, time.Minute)

	logger.Info("compliance dashboard listening",
		"listen", cmd.Listen,
		"adapter", cmd.Adapter,
		"upstream", firstNonEmpty(cmd.Upstream, "demo fixtures"),
	)
	switch cmd.Adapter {
	case "http":
		return cmd.serveHTTP(ctx, app)
	case "fiber":
		return cmd.serveFiber(ctx, app)
	default:
		return fmt.Errorf("compliance-dashboard: unknown adapter %q", cmd.Adapter)
	}
}

type application struct {
	workspaces  *compliance.Workspaces
	broadcaster *compliance.ViewBroadcaster
	executor    *httpapi.CommandExecutor
	view        *queries.ViewQuery
	presenter   *compliance.Presenter
}

func (cmd *serveCmd) build(logger *slog.Logger) (*application, error) {
	fetcher, err := cmd.fetcher()
	if err != nil {
		return nil, err
	}
	surfaces, err := cmd.surfaces()
	if err != nil {
		return nil, err
	}
	renderer, err := compliance.NewTemplateRenderer()
	if err != nil {
		return nil, err
	}
	var chartOpts []compliance.EChartsOption
	if cmd.AssetsHost != "" {
		chartOpts = append(chartOpts, compliance.WithChartAssetsHost(cmd.AssetsHost))
	}

	telemetry := compliance.NewLogTelemetry(logger)
	broadcaster := compliance.NewViewBroadcaster(compliance.WithAllowedOrigins(cmd.AllowedOrigins...))
	workspaces := compliance.NewWorkspaces(compliance.WorkspaceOptions{
		Surfaces:       surfaces,
		Fetcher:        fetcher,
		Charts:         compliance.NewEChartsFactory(chartOpts...),
		Sink:           broadcaster,
		Telemetry:      telemetry,
		ActivityHooks:  activity.Hooks{usersink.Hook{Sink: logActivitySink{logger: logger}}},
		ActivityConfig: activity.Config{Enabled: true},
	}, cmd.IdleTTL)

	return &application{
		workspaces:  workspaces,
		broadcaster: broadcaster,
		executor: &httpapi.CommandExecutor{
			SelectCustomerCommander: commands.NewSelectCustomerCommand(workspaces, telemetry),
			ChangeFilterCommander:   commands.NewChangeFilterCommand(workspaces, telemetry),
			RefreshCommander:        commands.NewRefreshSurfaceCommand(workspaces, telemetry),
			EntitySavedCommander:    commands.NewEntitySavedCommand(workspaces, telemetry),
			ActivateCommander:       commands.NewActivateSurfaceCommand(workspaces, telemetry),
		},
		view:      queries.NewViewQuery(workspaces),
		presenter: compliance.NewPresenter(renderer, ""),
	}, nil
}

func (cmd *serveCmd) serveHTTP(ctx context.Context, app *application) error {
	key := cmd.SessionKey
	if key == "" {
		key = uuid.NewString()
	}
	store := sessions.NewCookieStore([]byte(key))
	store.Options.HttpOnly = true
	store.Options.SameSite = http.SameSiteLaxMode

	handler := httpapi.NewRouter(&httpapi.Handlers{
		SelectCustomer: app.executor.SelectCustomerCommander,
		ChangeFilter:   app.executor.ChangeFilterCommander,
		Refresh:        app.executor.RefreshCommander,
		EntitySaved:    app.executor.EntitySavedCommander,
		Activate:       app.executor.ActivateCommander,
		View:           app.view,
		Presenter:      app.presenter,
		Sessions:       store,
		Streams:        app.broadcaster,
	}, httpapi.RouterOptions{AllowedOrigins: cmd.AllowedOrigins})

	server := &http.Server{
		Addr:              cmd.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func (cmd *serveCmd) serveFiber(ctx context.Context, app *application) error {
	server := router.NewFiberAdapter()
	if err := gorouter.Register(gorouter.Config[*fiber.App]{
		Router:    server.Router(),
		API:       app.executor,
		View:      app.view,
		Presenter: app.presenter,
		Broadcast: app.broadcaster,
	}); err != nil {
		return fmt.Errorf("compliance-dashboard: register routes: %w", err)
	}
	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve(cmd.Listen) }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

// logActivitySink writes go-users activity records to the structured log.
type logActivitySink struct {
	logger *slog.Logger
}

func (s logActivitySink) Log(ctx context.Context, record types.ActivityRecord) error {
	s.logger.InfoContext(ctx, "activity",
		"verb", record.Verb,
		"object_type", record.ObjectType,
		"object_id", record.ObjectID,
		"channel", record.Channel,
		"occurred_at", record.OccurredAt,
	)
	return nil
}

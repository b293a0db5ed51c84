package goadmin

import (
	"context"
	"errors"

	activitypkg "github.com/goliatone/go-compliance-dashboard/pkg/activity"
	compliancepkg "github.com/goliatone/go-compliance-dashboard/pkg/compliance"
)

// MenuBuilder ensures dashboard entries exist within the admin navigation.
type MenuBuilder interface {
	EnsureMenuItem(ctx context.Context, menuCode string, item MenuItem) error
}

// MenuItem captures dashboard link metadata.
type MenuItem struct {
	Label    string
	Route    string
	Icon     string
	Position int
}

// Config wires the compliance workspaces + feature flags into an admin shell.
type Config struct {
	EnableDashboard bool
	MenuCode        string
	MenuBuilder     MenuBuilder
	Workspaces      *compliancepkg.Workspaces
	DefaultMenuItem MenuItem
	ActivityHooks   activitypkg.Hooks
	ActivityConfig  activitypkg.Config
}

// Admin exposes helpers for go-admin style applications.
type Admin struct {
	cfg      Config
	activity *activitypkg.Emitter
}

// New creates an Admin helper that can seed the compliance menu entry.
func New(cfg Config) (*Admin, error) {
	if cfg.EnableDashboard && cfg.Workspaces == nil {
		return nil, errors.New("goadmin: compliance workspaces are required when enabled")
	}
	if cfg.MenuCode == "" {
		cfg.MenuCode = "admin.main"
	}
	if cfg.DefaultMenuItem.Label == "" {
		cfg.DefaultMenuItem.Label = "Client Compliance Overview"
	}
	if cfg.DefaultMenuItem.Route == "" {
		cfg.DefaultMenuItem.Route = "compliance.page"
	}
	if cfg.DefaultMenuItem.Icon == "" {
		cfg.DefaultMenuItem.Icon = "shield"
	}
	return &Admin{cfg: cfg, activity: activitypkg.NewEmitter(cfg.ActivityHooks, cfg.ActivityConfig)}, nil
}

// Workspaces exposes the configured registry when the dashboard is enabled.
func (a *Admin) Workspaces() *compliancepkg.Workspaces {
	if !a.cfg.EnableDashboard {
		return nil
	}
	return a.cfg.Workspaces
}

// Bootstrap seeds the menu entry when dashboard support is enabled.
func (a *Admin) Bootstrap(ctx context.Context) error {
	if !a.cfg.EnableDashboard || a.cfg.MenuBuilder == nil {
		return nil
	}
	if err := a.cfg.MenuBuilder.EnsureMenuItem(ctx, a.cfg.MenuCode, a.cfg.DefaultMenuItem); err != nil {
		return err
	}
	return a.activity.Emit(ctx, activitypkg.Event{
		Verb:       "compliance.menu.ensure",
		ObjectType: "menu",
		ObjectID:   a.cfg.MenuCode,
		Metadata: map[string]any{
			"label": a.cfg.DefaultMenuItem.Label,
			"route": a.cfg.DefaultMenuItem.Route,
		},
	})
}

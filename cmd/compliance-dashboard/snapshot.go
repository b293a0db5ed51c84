package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-compliance-dashboard/components/compliance"
	"github.com/goliatone/go-compliance-dashboard/components/compliance/queries"
)

type snapshotCmd struct {
	SourceFlags `embed:""`

	Customer string `arg:"" help:"Customer id to load."`
	Surface  string `default:"page" enum:"page,form_tab,indicator" help:"Surface to render."`
	Year     string `help:"Year filter."`
	DocType  string `name:"doctype" help:"Document type filter."`
	Status   string `help:"Document status filter."`
	Format   string `default:"yaml" enum:"yaml,json" help:"Output format."`

	out io.Writer
}

func (cmd *snapshotCmd) Run(ctx context.Context) error {
	cfg, err := loadFileConfig(cmd.Config)
	if err != nil {
		return err
	}
	cmd.merge(cfg)
	fetcher, err := cmd.fetcher()
	if err != nil {
		return err
	}
	surfaces, err := cmd.surfaces()
	if err != nil {
		return err
	}
	kind, err := compliance.ParseSurfaceKind(cmd.Surface)
	if err != nil {
		return err
	}

	filters := map[compliance.FilterDimension]string{}
	surface := surfaces[kind]
	for dim, value := range map[compliance.FilterDimension]string{
		compliance.FilterYear:         cmd.Year,
		compliance.FilterDocumentType: cmd.DocType,
		compliance.FilterStatus:       cmd.Status,
	} {
		if value != "" || surface.HasFilter(dim) {
			filters[dim] = value
		}
	}

	query := queries.NewSnapshotQuery(queries.SnapshotOptions{
		Surfaces:  surfaces,
		Fetcher:   fetcher,
		Telemetry: compliance.NewLogTelemetry(cmd.logger()),
	})
	view, err := query.Query(ctx, queries.SnapshotInput{Surface: kind, CustomerID: cmd.Customer, Filters: filters})
	if err != nil {
		return err
	}
	return writeView(cmd.writer(), view, cmd.Format)
}

func (cmd *snapshotCmd) writer() io.Writer {
	if cmd.out != nil {
		return cmd.out
	}
	return os.Stdout
}

func writeView(w io.Writer, view compliance.View, format string) error {
	if format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(view)
	}
	data, err := compliance.ViewData(view)
	if err != nil {
		return err
	}
	delete(data, "is_page")
	delete(data, "is_indicator")
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("compliance-dashboard: write snapshot: %w", err)
	}
	return encoder.Close()
}

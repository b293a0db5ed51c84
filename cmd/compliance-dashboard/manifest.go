package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/goliatone/go-compliance-dashboard/components/compliance"
)

type manifestCmd struct {
	Init  manifestInitCmd  `cmd:"" help:"Write the built-in surfaces to a manifest file."`
	Check manifestCheckCmd `cmd:"" help:"Validate a manifest and list the surfaces it overrides."`
}

type manifestInitCmd struct {
	Path      string `arg:"" type:"path" help:"Manifest file to create."`
	Overwrite bool   `help:"Replace an existing manifest."`
}

func (cmd *manifestInitCmd) Run(_ context.Context) error {
	if _, err := os.Stat(cmd.Path); err == nil && !cmd.Overwrite {
		return fmt.Errorf("compliance-dashboard: manifest %s already exists (use --overwrite)", cmd.Path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("compliance-dashboard: stat manifest: %w", err)
	}
	if err := writeManifest(cmd.Path, compliance.DefaultManifest()); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Wrote %s\n", cmd.Path)
	return nil
}

type manifestCheckCmd struct {
	Path string `arg:"" type:"existingfile" help:"Manifest file to validate."`

	out io.Writer
}

func (cmd *manifestCheckCmd) Run(_ context.Context) error {
	doc, err := compliance.ReadManifest(cmd.Path)
	if err != nil {
		return err
	}
	out := cmd.out
	if out == nil {
		out = os.Stdout
	}
	kinds := make([]string, 0, len(doc.Surfaces))
	for _, surface := range doc.Surfaces {
		kinds = append(kinds, string(surface.Kind))
	}
	sort.Strings(kinds)
	fmt.Fprintf(out, "✓ %s is valid (version %s, surfaces: %v)\n", cmd.Path, doc.Version, kinds)
	return nil
}

func writeManifest(path string, doc *compliance.SurfaceManifest) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("compliance-dashboard: mkdir %s: %w", filepath.Dir(path), err)
	}
	file, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("compliance-dashboard: create manifest %s: %w", path, err)
	}
	defer file.Close()
	return doc.Encode(file)
}

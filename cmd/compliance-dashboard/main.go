package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

type cli struct {
	Serve    serveCmd    `cmd:"" help:"Serve the compliance dashboard surfaces over HTTP."`
	Snapshot snapshotCmd `cmd:"" help:"Fetch one customer and print the rendered surface view."`
	Manifest manifestCmd `cmd:"" help:"Write or check a surface manifest."`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	kctx := kong.Parse(&cli{},
		kong.Name("compliance-dashboard"),
		kong.Description("Client compliance dashboard backed by an ERPNext compliance app."),
		kong.UsageOnError(),
	)
	kctx.BindTo(ctx, (*context.Context)(nil))
	err := kctx.Run()
	kctx.FatalIfErrorf(err)
}

package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/desertthunder/spotx/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP lookup API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	host, port := r.config.Server.Host, r.config.Server.Port
	if h := cmd.String("host"); h != "" {
		host = h
	}
	if p := cmd.Int("port"); p > 0 {
		port = p
	}
	addr := host + ":" + strconv.Itoa(port)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := server.NewAPI(server.APIOptions{
		Client:   r.spotify(),
		History:  r.recorder(cmd.Bool("no-history")),
		Gatherer: r.registry,
		Logger:   r.logger,
	})

	r.logger.Debug("registered routes", "routes", api.Routes())
	r.writePlain("Serving lookup API on http://%s\n", addr)
	return server.NewServer(addr, api, r.logger).Start(ctx)
}

package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/desertthunder/trainx/internal/server"
	"github.com/desertthunder/trainx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Mock serves an in-memory training backend until interrupted.
func (r *Runner) Mock(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := int(cmd.Int("port")); port > 0 {
		cfg.Port = port
	}
	if step := int(cmd.Int("step")); step > 0 {
		cfg.Step = step
	}
	if fail := cmd.StringSlice("fail"); len(fail) > 0 {
		cfg.FailModels = fail
	}
	if cfg.Port <= 0 {
		return fmt.Errorf("%w: server.port must be positive", shared.ErrInvalidConfig)
	}

	logger := shared.WithLogger(r.logger, "component", "mock")
	backend := server.NewBackend(server.BackendOpts{
		Step:       cfg.Step,
		FailModels: cfg.FailModels,
		Logger:     logger,
	})
	router := server.NewBackendRouter(backend, r.config.API.Token, logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	r.writePlain("Mock backend on http://%s\n", addr)
	for _, pattern := range router.Patterns() {
		r.writePlain("  %s\n", pattern)
	}

	return server.Serve(ctx, addr, router, logger)
}

package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trainx/internal/services"
	"github.com/desertthunder/trainx/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	ctx := context.Background()

	config, err := loadConfig("config.toml", logger)
	if err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	if lvl, err := shared.ParseLogLevel(config.Log.Level); err == nil {
		shared.SetLogLevel(logger, lvl)
	} else {
		logger.Warn("ignoring log level", "error", err)
	}

	httpClient := services.NewHTTPClient(ctx, config.API.Token, config.API.Timeout)
	api := services.NewTrainingClient(config.API.BaseURL, httpClient)

	runner := NewRunner(RunnerOpts{
		Config:  config,
		API:     api,
		BaseURL: api.BaseURL(),
		Logger:  logger,
	})

	app := &cli.Command{
		Name:     "trainx",
		Usage:    "Upload datasets, train models and follow runs",
		Version:  "0.1.0",
		Commands: runner.register(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if name := cmd.String("log-level"); name != "" {
				lvl, err := shared.ParseLogLevel(name)
				if err != nil {
					return ctx, err
				}
				shared.SetLogLevel(logger, lvl)
			}
			return ctx, nil
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}

// loadConfig reads path over the defaults, falling back to the defaults when the file is absent,
// then applies environment overrides and validates the result.
func loadConfig(path string, logger *log.Logger) (*shared.Config, error) {
	config, err := shared.LoadConfig(path)
	switch {
	case errors.Is(err, shared.ErrMissingConfig):
		logger.Debug("no config file, using defaults", "path", path)
		config = shared.DefaultConfig()
	case err != nil:
		logger.Warn("failed to load config, using defaults", "path", path, "error", err)
		config = shared.DefaultConfig()
	}

	if err := shared.ApplyEnv(config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

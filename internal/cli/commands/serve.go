package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/autocrud/internal/logging"
	"github.com/conduit-lang/autocrud/internal/web/server"
)

// NewServeCommand creates the serve command
func NewServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve CRUD endpoints for every record definition",
		Long: `Load the record definitions, derive their schemas and serve the CRUD
endpoints until interrupted.

Examples:
  autocrud serve
  autocrud serve --schema models.yaml
  AUTOCRUD_SERVER_PORT=9000 autocrud serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := loadRegistry(cfg)
	if err != nil {
		logger.Error("failed to load record definitions",
			zap.String("path", cfg.Schema.Path),
			zap.Error(err),
		)
		return err
	}

	app, err := NewApp(ctx, cfg, registry, logger)
	if err != nil {
		logger.Error("failed to build application", zap.Error(err))
		return err
	}

	srv, err := server.New(&server.Config{
		Address:           cfg.Server.Address(),
		Handler:           app,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		MaxHeaderBytes:    1 << 20,
		Logger:            logger,
	})
	if err != nil {
		app.Close(ctx)
		return err
	}
	srv.OnShutdown(app.Close)

	if err := srv.Listen(); err != nil {
		app.Close(ctx)
		return err
	}

	color.New(color.FgGreen, color.Bold).Fprintf(cmd.OutOrStdout(),
		"✓ Serving %d resources on http://%s\n", registry.Count(), srv.Addr())

	return srv.Run(ctx)
}

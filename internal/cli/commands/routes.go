package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/autocrud/internal/cli/ui"
	"github.com/conduit-lang/autocrud/internal/orm/store"
	"github.com/conduit-lang/autocrud/internal/web/actions"
	"github.com/conduit-lang/autocrud/internal/web/router"
)

// NewRoutesCommand creates the routes command
func NewRoutesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the endpoints served for the record definitions",
		Long: `Mount every resource and print its method, path and route name.

Examples:
  autocrud routes
  autocrud routes --schema models.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoutes(cmd, opts)
		},
	}
}

func runRoutes(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	registry, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	// Routes do not depend on the backing store.
	r := router.NewRouter()
	if _, err := actions.Mount(r, registry, actions.MountConfig{Store: store.NewMemory()}); err != nil {
		return err
	}

	table := ui.NewTable(cmd.OutOrStdout(), color.NoColor, "METHOD", "PATH", "NAME")
	for _, route := range r.Routes() {
		table.AddRow(route.Method, route.Pattern, route.Name)
	}
	table.Render()
	return nil
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/archivist/internal/transport/mcp"
	"github.com/kailas-cloud/archivist/internal/version"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the search tool over stdio (JSON-RPC, one message per line)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := o.app(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			cfg := app.Config.MCP
			if cfg.Version == "" {
				cfg.Version = version.Version
			}
			srv := mcp.NewServer(app.Searcher, mcp.Config{
				Name:            cfg.Name,
				Version:         cfg.Version,
				ProtocolVersion: cfg.ProtocolVersion,
				DefaultLimit:    app.Config.Search.DefaultLimit,
			}, app.Logger)
			return srv.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

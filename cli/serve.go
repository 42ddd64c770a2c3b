package cli

import (
	"context"

	"github.com/gear6io/promptvalley/server"
	"github.com/gear6io/promptvalley/server/config"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var (
		address string
		port    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API that serves catalog records, media buckets,
public objects and spreadsheet import/export until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfigOrDefault(opts.configPath)
			if err != nil {
				return err
			}
			cfg.Log.Console = true
			if address != "" {
				cfg.HTTP.Address = address
			}
			if port != 0 {
				cfg.HTTP.Port = port
			}

			logger, err := config.SetupLogger(cfg)
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			srv, err := server.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			if err := srv.Start(ctx); err != nil {
				return err
			}

			d := newDisplay(cmd.OutOrStdout())
			d.Success("Listening on %s", cfg.GetHTTPAddress())

			<-ctx.Done()
			return srv.Shutdown(context.Background())
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "listen address (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config)")
	return cmd
}

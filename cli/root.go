package cli

import (
	"context"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/config"
	"github.com/spf13/cobra"
)

// CLI-specific error codes
var (
	ErrInvalidLocation      = errors.MustNewCode("cli.invalid_location")
	ErrInvalidArguments     = errors.MustNewCode("cli.invalid_arguments")
	ErrUnknownAction        = errors.MustNewCode("cli.unknown_action")
	ErrConfirmationRequired = errors.MustNewCode("cli.confirmation_required")
	ErrImportFailed         = errors.MustNewCode("cli.import_failed")
	ErrSourceRequired       = errors.MustNewCode("cli.source_required")
	ErrFileWriteFailed      = errors.MustNewCode("cli.file_write_failed")
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configPath string
	server     string
	verbose    bool
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "promptvalley",
		Short: "Content management for the PromptValley prompt catalog",
		Long: `PromptValley manages the prompt catalog and its media.

It bulk imports and exports catalog resources as CSV, Excel or Google Sheets,
manages media buckets and browses the files inside them. Every command works
on the local database and object store, or on a running server with --server.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DEFAULT_CONFIG_FILE, "configuration file")
	cmd.PersistentFlags().StringVar(&opts.server, "server", "", "server URL; commands use the HTTP API instead of local storage")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(
		newServeCmd(opts),
		newImportCmd(opts),
		newExportCmd(opts),
		newTemplateCmd(opts),
		newBucketCmd(opts),
		newBrowseCmd(opts),
		newQueryCmd(opts),
	)
	return cmd
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteWithContext runs the root command with ctx available to every
// subcommand
func ExecuteWithContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

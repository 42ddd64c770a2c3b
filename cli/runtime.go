package cli

import (
	"github.com/gear6io/promptvalley/pkg/sdk"
	"github.com/gear6io/promptvalley/server/config"
	"github.com/gear6io/promptvalley/server/loader"
	"github.com/gear6io/promptvalley/server/medialib"
	"github.com/gear6io/promptvalley/server/records"
	"github.com/gear6io/promptvalley/server/storage"
	"github.com/gear6io/promptvalley/server/transfer"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runtime holds the gateways a command works against: the local loader or
// a remote server reached through the SDK
type runtime struct {
	cfg     *config.Config
	logger  zerolog.Logger
	display *display
	loader  *loader.Loader
	client  *sdk.Client
	records records.Gateway
	storage storage.Gateway
}

func newRuntime(cmd *cobra.Command, opts *globalOptions) (*runtime, error) {
	cfg, err := config.LoadConfigOrDefault(opts.configPath)
	if err != nil {
		return nil, err
	}
	cfg.Log.Console = opts.verbose

	logger, err := config.SetupLogger(cfg)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:     cfg,
		logger:  logger.With().Str("component", "cli").Logger(),
		display: newDisplay(cmd.OutOrStdout()),
	}

	if opts.server != "" {
		o, err := sdk.ParseDSN(opts.server)
		if err != nil {
			return nil, err
		}
		o.Logger = zap.NewNop()
		if opts.verbose {
			if zl, err := zap.NewDevelopment(); err == nil {
				o.Logger = zl
			}
		}
		client, err := sdk.NewClient(o)
		if err != nil {
			return nil, err
		}
		rt.client = client
		rt.records = client.Records()
		rt.storage = client.Storage()
		rt.logger.Debug().Str("server", client.Addr()).Msg("Using remote server")
		return rt, nil
	}

	l, err := loader.NewLoader(commandContext(cmd), cfg, logger)
	if err != nil {
		return nil, err
	}
	rt.loader = l
	rt.records = l.GetRecords()
	rt.storage = l.GetStorage()
	return rt, nil
}

func (rt *runtime) Close() error {
	if rt.loader != nil {
		return rt.loader.Close()
	}
	return nil
}

func (rt *runtime) importer() *transfer.Importer {
	return transfer.NewImporter(rt.records, rt.cfg.Transfer.ValidationChunk, rt.logger)
}

func (rt *runtime) exporter() *transfer.Exporter {
	return transfer.NewExporter(rt.records, rt.cfg.Transfer.PageSize, rt.logger)
}

func (rt *runtime) library() *medialib.Library {
	return medialib.NewLibrary(rt.storage, &rt.cfg.Media, rt.logger)
}

func (rt *runtime) browser() *medialib.Browser {
	return medialib.NewBrowser(rt.storage, rt.cfg.Media.ListLimit, rt.logger)
}

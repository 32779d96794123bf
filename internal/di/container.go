package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/usenet-explorer/internal/adapters/keyword"
	"github.com/mikey/usenet-explorer/internal/config"
	"github.com/mikey/usenet-explorer/internal/core"
	"github.com/mikey/usenet-explorer/internal/factory"
	"github.com/mikey/usenet-explorer/internal/logging"
	"github.com/mikey/usenet-explorer/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags) (*config.Config, error) {
		var cfg *config.Config
		var err error
		if flags.ConfigFile != "" {
			cfg, err = config.NewFromFile(flags.ConfigFile)
		} else {
			cfg, err = config.New()
		}
		if err != nil {
			return nil, err
		}
		applyFlags(cfg, flags)
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	// Register logger. Config-file runs take logging settings from the
	// file; otherwise the flags drive a console logger.
	if err := container.Provide(func(flags *CLIFlags, cfg *config.Config) (*zap.Logger, error) {
		if flags.ConfigFile != "" && !flags.Verbose && !flags.JSONLog {
			return logging.InitLogger(cfg)
		}
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewDialerFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewCatalogFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewRelevanceFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register provider dialer
	if err := container.Provide(func(f *factory.DialerFactory) (core.Dialer, error) {
		return f.CreateDialer()
	}); err != nil {
		return nil, err
	}

	// Register catalog
	if err := container.Provide(func(f *factory.CatalogFactory) (*core.Catalog, error) {
		return f.CreateCatalog()
	}); err != nil {
		return nil, err
	}

	// Register relevance gateway and keyword fallback
	if err := container.Provide(func(f *factory.RelevanceFactory) (core.RelevanceGateway, error) {
		return f.CreateGateway()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.RelevanceFactory) *keyword.Gateway {
		return f.CreateFallback()
	}); err != nil {
		return nil, err
	}

	// Register header fetcher
	if err := container.Provide(func(dialer core.Dialer, cfg *config.Config, logger *zap.Logger) *core.HeaderFetcher {
		return core.NewHeaderFetcher(dialer, logger, cfg.GetFetch().Concurrency)
	}); err != nil {
		return nil, err
	}

	// Register explorer service
	if err := container.Provide(func(
		catalog *core.Catalog,
		dialer core.Dialer,
		fetcher *core.HeaderFetcher,
		gateway core.RelevanceGateway,
		fallback *keyword.Gateway,
		cfg *config.Config,
		logger *zap.Logger,
	) *core.ExplorerService {
		fetchCfg := cfg.GetFetch()
		searchCfg := cfg.GetSearch()
		return core.NewExplorerService(
			catalog,
			dialer,
			fetcher,
			gateway,
			fallback,
			logger,
			fetchCfg.MaxGroups,
			searchCfg.BodyTopK,
			searchCfg.MinConfidence,
		)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/danwiki/internal/domain/fetch"
	"github.com/GriffinCanCode/danwiki/internal/domain/suggest"
	"github.com/GriffinCanCode/danwiki/internal/domain/tags"
	"github.com/GriffinCanCode/danwiki/internal/infrastructure/config"
	"github.com/GriffinCanCode/danwiki/internal/infrastructure/logging"
	"github.com/GriffinCanCode/danwiki/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/danwiki/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/danwiki/internal/providers/browser"
	"github.com/GriffinCanCode/danwiki/internal/providers/http/client"
)

// App holds the wired components of one running instance.
type App struct {
	Config    *config.Config
	Logger    *logging.Logger
	Metrics   *monitoring.Metrics
	Tracer    *tracing.Tracer
	Store     *tags.Store
	Index     *suggest.Index
	Client    *client.Client
	Harvester *browser.Harvester
	Fetcher   *fetch.Fetcher
}

// New builds an App from cfg. The store is loaded before the fetcher starts,
// so cached tags are served immediately.
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("danwiki", logger)

	store := tags.NewStore(cfg.Store.Path, logger)
	store.Load()
	index := suggest.NewIndex()
	store.SetIndexer(index)
	store.SetObserver(metrics)

	pages := client.New(client.Config{
		Timeout:   cfg.HTTP.Timeout,
		Attempts:  cfg.HTTP.Attempts,
		Delay:     cfg.HTTP.Delay,
		Jitter:    cfg.HTTP.Jitter,
		RetryWait: cfg.HTTP.RetryWait,
		UserAgent: cfg.HTTP.UserAgent,
	}, logger, metrics)

	harvester := browser.NewHarvester(browser.NewFinder(cfg.Browser.Path), cfg.Browser.Timeout, logger, metrics)

	fetcher, err := fetch.New(fetch.Config{
		Store:       store,
		Index:       index,
		Pages:       pages,
		Credentials: harvester,
		Site:        cfg.Site.BaseURL,
		Logger:      logger,
		Metrics:     metrics,
		Tracer:      tracer,
	})
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}

	logger.Info("tag cache ready",
		zap.String("store", store.Path()),
		zap.Int("records", store.Len()),
		zap.Int("tokens", index.Len()),
		zap.String("site", fetcher.Site()),
	)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Metrics:   metrics,
		Tracer:    tracer,
		Store:     store,
		Index:     index,
		Client:    pages,
		Harvester: harvester,
		Fetcher:   fetcher,
	}, nil
}

// Close stops the fetcher, retries any store write that failed, drains
// pending spans, and flushes the logger.
func (a *App) Close() {
	a.Fetcher.Close()
	if err := a.Store.Persist(); err != nil {
		a.Logger.Error("records kept for this session were not saved", zap.String("store", a.Store.Path()), zap.Error(err))
	}
	a.Tracer.Close()
	_ = a.Logger.Sync()
}

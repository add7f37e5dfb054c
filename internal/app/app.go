package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/classifier"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/config"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/domain"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/filter"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/infrastructure/fetch"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/infrastructure/parser"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/infrastructure/scheduler"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/infrastructure/storage"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/infrastructure/telegram"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/logging"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/merge"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/ports"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/scanner"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/usecase"
)

const sqliteFile = "tracker.db"

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	close    func() error
}

// New builds a runnable application instance. The caller must Close it.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	fetcher := fetch.New(nil, fetch.Options{
		Retries:           cfg.Fetcher.Retries,
		Backoff:           cfg.Fetcher.Backoff,
		Timeout:           cfg.Fetcher.Timeout,
		UserAgent:         cfg.Fetcher.UserAgent,
		RequestsPerSecond: cfg.Fetcher.RequestsPerSecond,
	}, baseLogger.With("component", "fetcher"))

	filterRules := filter.DefaultRules()
	filterRules.MinLength = cfg.Filter.MinTitleLength
	filterRules.MaxLength = cfg.Filter.MaxTitleLength
	titleFilter := filter.New(filterRules)

	rules := classifier.DefaultRules()
	if cfg.Classifier.RulesFile != "" {
		loaded, err := classifier.LoadRules(cfg.Classifier.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("load classifier rules: %w", err)
		}
		rules = loaded
	}
	cls := classifier.New(rules)

	browser := parser.NewChromeBrowser(parser.ChromeOptions{
		ExecPath:  cfg.Browser.ExecPath,
		UserAgent: cfg.Fetcher.UserAgent,
		Settle:    cfg.Browser.Settle,
		Timeout:   cfg.Browser.Timeout,
	})

	registry := scanner.NewRegistry()
	registry.Register(parser.NewFeedScanner(fetcher, titleFilter, baseLogger.With("component", "scanner.feed")))
	registry.Register(parser.NewDocumentScanner(fetcher, titleFilter, baseLogger.With("component", "scanner.document")))
	registry.Register(parser.NewBrowserScanner(browser, titleFilter, baseLogger.With("component", "scanner.browser")))

	sources, err := parser.NewStrategySource(registry, cfg.Sources, baseLogger.With("component", "source")).Sources()
	if err != nil {
		return nil, fmt.Errorf("bind sources: %w", err)
	}

	store, history, closeStore, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Sources:     sources,
		Filter:      titleFilter,
		Classifier:  cls,
		Engine:      merge.New(cls.Fallback(), cls.Placeholder(), nil),
		Store:       store,
		History:     history,
		Notifier:    notifier,
		Logger:      baseLogger.With("component", "pipeline"),
		MaxParallel: cfg.Scan.MaxParallelSources,
	})

	return &Application{cfg: cfg, logger: baseLogger, pipeline: pipeline, close: closeStore}, nil
}

// openStore picks the item store and history log for the configured driver.
func openStore(ctx context.Context, cfg config.StorageConfig) (ports.ItemStore, ports.HistoryLog, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Driver {
	case "", config.DriverFile:
		fs := storage.NewFileStore(cfg.Dir)
		return fs, fs, noop, nil
	case config.DriverSQLite, config.DriverPostgres:
		dialect, err := storage.DialectFor(cfg.Driver)
		if err != nil {
			return nil, nil, nil, err
		}
		dsn := cfg.DSN
		if dsn == "" && cfg.Driver == config.DriverSQLite {
			dsn = filepath.Join(cfg.Dir, sqliteFile)
		}
		if dsn == "" {
			return nil, nil, nil, fmt.Errorf("storage driver %s requires a dsn", cfg.Driver)
		}
		s, err := storage.OpenSQLStore(ctx, dialect, dsn)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open store: %w", err)
		}
		return s, s, s.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Scan performs a single scan.
func (a *Application) Scan(ctx context.Context) (domain.ScanReport, error) {
	return a.pipeline.RunScan(ctx)
}

// Items returns the current item store.
func (a *Application) Items(ctx context.Context) (domain.StoreState, error) {
	return a.pipeline.Items(ctx)
}

// History returns the snapshots recorded on day.
func (a *Application) History(ctx context.Context, day time.Time) ([]domain.HistorySnapshot, error) {
	return a.pipeline.History(ctx, day)
}

// Watch scans on the configured interval until ctx is cancelled.
func (a *Application) Watch(ctx context.Context) error {
	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval, a.cfg.Scheduler.Location())
	sched := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("watching", "interval", a.cfg.Scheduler.Interval, "sources", len(a.cfg.Sources))

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sched.Stop(stopCtx)
}

// Close releases the store.
func (a *Application) Close() error {
	if a.close == nil {
		return nil
	}
	return a.close()
}

package app

import (
	"context"
	"log/slog"
	"net/http"

	"exam_project/internal/auth"
	"exam_project/internal/config"
	"exam_project/internal/db"
	"exam_project/internal/downloader"
	"exam_project/internal/exercises"
	"exam_project/internal/metrics"
	"exam_project/internal/models"
	"exam_project/internal/network"
	"exam_project/internal/service"
	"exam_project/internal/storage"
	"exam_project/internal/telegram"
)

// App wires the real components together from a Config.
type App struct {
	cfg     *config.Config
	client  *http.Client
	store   *storage.Store
	history *db.Store
	log     *slog.Logger
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	client, err := network.NewClient(network.Options{
		Timeout:   cfg.HTTPTimeout,
		ProxyAddr: cfg.ProxyAddr,
		UserAgent: cfg.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	history, err := db.Open(cfg.HistoryPath)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:     cfg,
		client:  client,
		store:   storage.New(cfg.ResourceDir()),
		history: history,
		log:     log,
	}, nil
}

func (a *App) Close() error {
	return a.history.Close()
}

// Run executes the whole download pipeline.
func (a *App) Run(ctx context.Context) (models.Summary, error) {
	browser, err := a.browser(ctx)
	if err != nil {
		return models.Summary{}, err
	}
	defer browser.Close()

	p := a.pipeline(browser)
	if !a.cfg.ExportExercises {
		p.Exporter = nil
	}

	a.log.Info("starting run",
		slog.String("resource", a.cfg.Resource),
		slog.Int("page_start", a.cfg.PageStart),
		slog.Int("page_count", a.cfg.PageCount),
		slog.String("output", a.store.Root()),
	)
	return p.Run(ctx, db.NewRunID())
}

// Export logs in and only exports the suggested exercises.
func (a *App) Export(ctx context.Context) ([]models.ExerciseLink, error) {
	browser, err := a.browser(ctx)
	if err != nil {
		return nil, err
	}
	defer browser.Close()

	return a.pipeline(browser).Export(ctx)
}

// History returns the most recent runs.
func (a *App) History(ctx context.Context, limit int) ([]models.Summary, error) {
	return a.history.ListRuns(ctx, limit)
}

func (a *App) browser(ctx context.Context) (*auth.Browser, error) {
	return auth.NewBrowser(ctx, auth.Options{
		LoginURL:      a.cfg.LoginURL(),
		Account:       a.cfg.Account,
		Password:      a.cfg.Password,
		Headless:      a.cfg.Headless(),
		ExecPath:      a.cfg.BrowserPath,
		ManualTimeout: a.cfg.LoginTimeout,
	}, a.log.With(slog.String("component", "auth")))
}

func (a *App) pipeline(browser *auth.Browser) *Pipeline {
	m := metrics.New()
	portal := service.NewPortalClient(a.client, a.cfg, a.log.With(slog.String("component", "portal")))
	manager := downloader.NewManager(portal, a.store, downloader.Options{
		Workers:    a.cfg.Workers,
		MaxRetries: a.cfg.MaxRetries,
		RetryBase:  a.cfg.RetryBase,
		Observer:   m,
	}, a.log.With(slog.String("component", "downloader")))

	p := &Pipeline{
		Resource:  a.cfg.Resource,
		PageStart: a.cfg.PageStart,
		PageCount: a.cfg.PageCount,

		Auth: browser,
		InstallCookies: func(cookies []*http.Cookie) error {
			return network.SetCookies(a.client, a.cfg.BaseURL, cookies)
		},
		Fetcher:    portal,
		Downloader: manager,

		Exporter:     exercises.NewExporter(browser, a.store, a.log.With(slog.String("component", "exercises"))),
		ExercisesURL: a.cfg.ExercisesURL(),

		History:        a.history,
		Summaries:      a.store,
		Metrics:        m,
		PushgatewayURL: a.cfg.PushgatewayURL,

		Log: a.log,
	}

	if a.cfg.TelegramToken != "" {
		n, err := telegram.NewNotifier(a.cfg.TelegramToken, a.cfg.TelegramChatID, a.cfg.HTTPTimeout, a.log)
		if err != nil {
			a.log.Warn("telegram notifications disabled", slog.Any("error", err))
		} else {
			p.Notifier = n
		}
	}

	return p
}

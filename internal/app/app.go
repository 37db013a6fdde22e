package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/smoke-bot/internal/config"
	"github.com/ykvlv/smoke-bot/internal/domain"
	"github.com/ykvlv/smoke-bot/internal/metrics"
	"github.com/ykvlv/smoke-bot/internal/scheduler"
	"github.com/ykvlv/smoke-bot/internal/store"
	"github.com/ykvlv/smoke-bot/internal/telegram"
	"github.com/ykvlv/smoke-bot/internal/tracker"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	metrics *metrics.Metrics
	clock   domain.Clock
	window  domain.ActiveWindow
	repo    store.Repo
	router  *telegram.Router
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	window, err := cfg.ReminderWindow()
	if err != nil {
		return nil, err
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	m := metrics.New()
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{
		cfg:     cfg,
		log:     log,
		bot:     bot,
		httpSrv: srv,
		metrics: m,
		clock:   domain.NewZoneClock(loc),
		window:  window,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting smoke-bot",
		zap.String("bot", a.bot.Self.UserName),
		zap.String("http", a.cfg.HTTPAddr),
		zap.String("tz", a.cfg.ReferenceTZ),
		zap.String("reminderHours", a.window.String()),
	)

	// Open SQLite and run migrations.
	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready", zap.String("path", a.cfg.DBPath))

	svc := tracker.NewService(a.repo, a.clock, a.cfg.ProfileDefaults(), a.metrics, a.log)
	a.router = telegram.NewRouter(a.bot, a.log, svc, a.metrics)

	if _, err := a.bot.Request(telegram.Commands()); err != nil {
		a.log.Warn("set commands failed", zap.Error(err))
	}

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(a.repo, a.log, a.router, a.clock, a.window, a.metrics, a.cfg.ReminderPoll)
	go sched.Run(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			a.bot.StopReceivingUpdates()

			// Create a short-lived shutdown context and cancel it immediately after use.
			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()

			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}
			if err := a.repo.Close(); err != nil {
				a.log.Warn("sqlite close error", zap.Error(err))
			}
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}

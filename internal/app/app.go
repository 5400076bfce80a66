package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lukasbauer/hypoteka/internal/crm"
	"github.com/lukasbauer/hypoteka/internal/engine"
	"github.com/lukasbauer/hypoteka/internal/eventlog"
	"github.com/lukasbauer/hypoteka/internal/httpapi"
	"github.com/lukasbauer/hypoteka/internal/jobs"
	"github.com/lukasbauer/hypoteka/internal/leadgate"
	"github.com/lukasbauer/hypoteka/internal/notifications"
	"github.com/lukasbauer/hypoteka/internal/store"
)

type App struct {
	cfg        Config
	logger     *log.Logger
	db         *pgxpool.Pool
	store      *store.Store
	eventLog   *eventlog.Logger
	dispatcher *leadgate.Dispatcher
	service    *engine.Service
	discord    *notifications.Discord
	live       *httpapi.LiveHub
	turns      *httpapi.TurnRegistry
	leadRetry  *jobs.LeadRetryJob
}

func New(cfg Config, logger *log.Logger) (*App, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s := store.New(db)
	el := eventlog.New(db)

	// Migrations are applied externally (hypoctl migrate).
	// No automatic migration runner at startup.

	var submitter crm.Submitter
	if cfg.CRMWebhookURL != "" {
		submitter = crm.NewWebhookSubmitter(cfg.CRMWebhookURL, cfg.CRMAPIToken, logger)
	} else {
		logger.Println("app: CRM_WEBHOOK_URL not set, leads are only logged")
		submitter = crm.NewLogSubmitter(logger)
	}

	dispatcher := leadgate.NewDispatcher(submitter, s, el, logger, cfg.CRMTimeout)

	discord := notifications.NewDiscord(cfg.DiscordWebhookURL, logger)
	if discord.Enabled() {
		dispatcher.AddNotifier(discord)
	}

	apns, err := notifications.NewAPNsClient(notifications.APNsConfig{
		KeyPath:    cfg.APNsKeyPath,
		KeyID:      cfg.APNsKeyID,
		TeamID:     cfg.APNsTeamID,
		BundleID:   cfg.APNsBundleID,
		Production: cfg.APNsProduction,
	}, logger)
	if err != nil {
		// Push is optional; a broken key must not keep the server down.
		logger.Printf("app: APNs disabled: %v", err)
	}
	if apns != nil {
		dispatcher.AddNotifier(notifications.NewLeadPusher(apns, s, logger))
	}

	service := engine.NewService(engine.ServiceConfig{
		Sessions:   s,
		Config:     s,
		Fragments:  s,
		Dispatcher: dispatcher,
		Events:     el,
		Logger:     logger,
		CacheTTL:   cfg.PromptCacheTTL,
	})

	var live *httpapi.LiveHub
	if cfg.LiveFeedEnabled {
		live = httpapi.NewLiveHub(logger)
		service.AddObserver(live)
	}

	var exhausted jobs.ExhaustedNotifier
	if discord.Enabled() {
		exhausted = discord
	}
	leadRetry := jobs.NewLeadRetryJob(s, dispatcher, exhausted, el, logger, jobs.LeadRetryConfig{
		Interval:    cfg.LeadRetryInterval,
		MaxAttempts: cfg.LeadRetryMaxAttempts,
		BaseBackoff: cfg.LeadRetryBackoff,
		BatchSize:   cfg.LeadRetryBatchSize,
		Timeout:     cfg.CRMTimeout,
	})

	return &App{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		store:      s,
		eventLog:   el,
		dispatcher: dispatcher,
		service:    service,
		discord:    discord,
		live:       live,
		turns:      httpapi.NewTurnRegistry(),
		leadRetry:  leadRetry,
	}, nil
}

func (a *App) Router() http.Handler {
	routerCfg := httpapi.RouterConfig{
		JWTSecret:    a.cfg.JWTSecret,
		AdminPhones:  a.cfg.AdminPhones,
		TurnTimeout:  a.cfg.TurnTimeout,
		MaxBodyBytes: a.cfg.MaxBodyBytes,
	}
	return httpapi.NewRouter(routerCfg, a.logger, a.service, a.store, a.turns, a.live)
}

// Start launches background jobs.
func (a *App) Start() {
	a.leadRetry.Start()
}

// Drain stops accepting turns and waits for in-flight ones, up to ctx.
func (a *App) Drain(ctx context.Context) error {
	a.turns.StartDraining()
	a.logger.Printf("app: draining, %d turns in flight", a.turns.ActiveCount())

	done := make(chan struct{})
	go func() {
		a.turns.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close waits for pending lead submissions, notifications and event writes,
// then releases the database.
func (a *App) Close() error {
	a.leadRetry.Stop()
	a.dispatcher.Wait()
	a.discord.Wait()
	a.eventLog.Wait()
	if a.live != nil {
		a.live.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	return nil
}

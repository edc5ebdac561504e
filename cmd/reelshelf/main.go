package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/reelshelf/reelshelf/internal/api"
	"github.com/reelshelf/reelshelf/internal/catalog"
	"github.com/reelshelf/reelshelf/internal/catalog/tmdb"
	"github.com/reelshelf/reelshelf/internal/collection"
	"github.com/reelshelf/reelshelf/internal/config"
	"github.com/reelshelf/reelshelf/internal/database"
	"github.com/reelshelf/reelshelf/internal/logger"
	"github.com/reelshelf/reelshelf/internal/notification"
	"github.com/reelshelf/reelshelf/internal/recommend"
	"github.com/reelshelf/reelshelf/internal/scheduler"
	"github.com/reelshelf/reelshelf/internal/scheduler/tasks"
	"github.com/reelshelf/reelshelf/internal/startup"
	"github.com/reelshelf/reelshelf/internal/storage"
	"github.com/reelshelf/reelshelf/internal/websocket"
)

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Path:       cfg.Logging.Path,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
		TailSize:   1000,
	})
	defer log.Close()

	log.Info().
		Str("version", config.Version).
		Str("logLevel", cfg.Logging.Level).
		Msg("starting ReelShelf")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startupLog := log.WithComponent("startup")

	var db *database.DB
	err = startup.WithRetry(ctx, "open database", startup.DefaultRetryConfig(), func() error {
		db, err = database.New(cfg.Database.Path)
		return err
	}, startupLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	log.Info().Msg("running database migrations")
	if err := startup.WithRetry(ctx, "migrate database", startup.DefaultRetryConfig(), db.Migrate, startupLog); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	hub := websocket.NewHub()
	go hub.Run(ctx)

	notifier := notification.NewHubNotifier(hub, log.Logger)

	slot := storage.NewSettingsSlot(db.Conn(), collection.SlotKey)
	store := collection.NewStore(ctx, slot, notifier, log.Logger, collection.WithBroadcaster(hub))

	client := tmdb.NewClient(cfg.TMDB, log.Logger)
	if !client.IsConfigured() {
		log.Warn().Msg("TMDB API key not configured, catalog requests will fail")
	}
	cat := catalog.NewService(client, notifier, catalog.DefaultBreakerConfig(), log.Logger)

	questions, err := recommend.LoadQuestions(cfg.Quiz.QuestionsFile)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Quiz.QuestionsFile).Msg("failed to load quiz questions")
	}

	engine := recommend.NewEngine(questions, cat, store, log.Logger,
		recommend.WithCloseDelay(cfg.Quiz.CloseDelay),
		recommend.WithSeed(cfg.Quiz.Seed),
		recommend.WithChangeHook(func(snap recommend.Snapshot) {
			if err := hub.Broadcast(recommend.EventUpdated, snap); err != nil {
				log.Warn().Err(err).Str("session", snap.ID).Msg("failed to broadcast quiz update")
			}
		}),
	)
	sessions := recommend.NewSessions(engine, cfg.Quiz.SessionTTL)

	sched, err := scheduler.New(log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}
	if err := tasks.RegisterQuizJanitorTask(sched, sessions, cfg.Quiz); err != nil {
		log.Fatal().Err(err).Msg("failed to register quiz cleanup task")
	}
	sched.Start()

	server := api.NewServer(cfg, api.Services{
		Catalog:    cat,
		Collection: store,
		Quiz:       sessions,
		Scheduler:  sched,
		Hub:        hub,
		Logs:       log,
		DB:         db.Conn(),
		Schema:     db,
	}, log.Logger)

	go func() {
		if err := server.Start(cfg.Server.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	if err := sched.Stop(); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown error")
	}

	log.Info().Msg("server stopped")
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/estatedesk/backend/internal/config"
	"github.com/estatedesk/backend/internal/db"
	httpapi "github.com/estatedesk/backend/internal/http"
	"github.com/estatedesk/backend/internal/notify"
	"github.com/estatedesk/backend/internal/scheduler"
	"github.com/estatedesk/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "estatedesk-backend").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	var notifier notify.Notifier
	if cfg.NotifyWebhookURL == "" {
		notifier = notify.LogNotifier{Logger: logger}
		logger.Info().Msg("using log notifier")
	} else {
		notifier = notify.NewWebhookNotifier(cfg.NotifyWebhookURL)
	}

	engine := &service.Engine{
		Store:    store,
		Notifier: notifier,
		Logger:   logger,
	}

	if cfg.SchedulerEnabled {
		sched := &scheduler.Scheduler{
			Store:    store,
			Engine:   engine,
			Logger:   logger,
			Interval: cfg.SchedulerInterval,
		}
		go sched.Run(ctx)
	}

	router := httpapi.Router(cfg, store, engine, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}

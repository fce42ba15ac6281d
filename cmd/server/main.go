package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"familytasks/internal/config"
	"familytasks/internal/handlers"
	"familytasks/internal/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	log := logger.Init("familytasks", cfg.LogLevel)
	if err := cfg.ValidateServer(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if cfg.UsesDefaultTokenSecret() {
		log.Warn("TOKEN_SECRET is not set, signing tokens with the development secret")
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped with error")
	}
	log.Info("server stopped")
}

// run listens straight away and serves 503s until initialization finishes
func run(cfg *config.Config, log *logrus.Entry) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	readiness := handlers.NewReadiness(stepDatabase, stepMigrations, stepServices, stepSeed)

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      readiness,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("addr", addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("server shutting down")
		readiness.MarkNotReady("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	var app *application
	g.Go(func() error {
		a, err := newApplication(gctx, cfg, log, readiness)
		if err != nil {
			return err
		}
		app = a
		readiness.MarkReady(a.router)
		log.Info("server ready")

		a.cleanupExpiredSessions(gctx)
		return nil
	})

	err := g.Wait()
	if app != nil {
		app.Close()
	}
	return err
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bcardoso2/mycar/internal/api"
	"github.com/Bcardoso2/mycar/internal/auth"
	"github.com/Bcardoso2/mycar/internal/config"
	"github.com/Bcardoso2/mycar/internal/db"
	"github.com/Bcardoso2/mycar/internal/feed"
	"github.com/Bcardoso2/mycar/internal/ledger"
	"github.com/Bcardoso2/mycar/internal/logging"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Main entry point: loads configuration, migrates the database and serves the API
func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, MaxSize: cfg.LogMaxSize})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		return err
	}

	database, err := db.NewDB(ctx, cfg.DatabaseURL, db.Options{MaxConns: cfg.MaxConns, LockTimeout: cfg.LockTimeout})
	if err != nil {
		return err
	}
	defer database.Close(context.Background())

	auctions := ledger.New(database, ledger.Config{
		StoreTimeout: cfg.StoreTimeout,
		MaxRetries:   cfg.BidMaxRetries,
	}, logger.WithField("component", "ledger"))

	hub := feed.NewHub(logger.WithField("component", "feed"), cfg.CORSOrigins)
	auctions.SetPublisher(hub)

	authService := auth.NewAuthService(database, cfg.JWTSecret, cfg.JWTTTL)
	handler := api.NewHandler(auctions, authService, logger.WithField("component", "api"))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler.Routes(cfg.CORSOrigins, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", srv.Addr).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		hub.Close()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

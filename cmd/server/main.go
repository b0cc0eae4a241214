package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/feldrin/vtt-backend/internal/config"
	"github.com/feldrin/vtt-backend/internal/gateway"
	"github.com/feldrin/vtt-backend/internal/httpapi"
	"github.com/feldrin/vtt-backend/internal/logging"
	"github.com/feldrin/vtt-backend/internal/maps"
	"github.com/feldrin/vtt-backend/internal/store"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogDev)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mapStore maps.Store
	if cfg.DatabaseURL != "" {
		db, err := store.Open(cfg.DatabaseURL, log)
		if err != nil {
			log.Fatal("open database", zap.Error(err))
		}
		if err := store.Migrate(db); err != nil {
			log.Fatal("migrate database", zap.Error(err))
		}
		mapStore = store.NewMapRepo(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store")
		mapStore = store.NewMemStore()
	}

	hub := gateway.NewHub(ctx, log)
	svc := maps.NewService(mapStore, hub, log)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(svc, hub, cfg.AllowedOrigins, log),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hub.Inbox() <- gateway.Shutdown{}
		return srv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

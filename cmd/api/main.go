package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/sky-inn/backend/internal/app"
	"github.com/zhouzirui/sky-inn/backend/internal/config"
	"github.com/zhouzirui/sky-inn/backend/internal/dao"
	"github.com/zhouzirui/sky-inn/backend/internal/handler"
	"github.com/zhouzirui/sky-inn/backend/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	lg, err := logger.Init(cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	db, err := dao.Open(cfg.Store)
	if err != nil {
		lg.Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer func() { _ = dao.Close(db) }()

	a, err := app.Build(ctx, cfg, db, lg)
	if err != nil {
		lg.Fatal("failed to build services", zap.Error(err))
	}

	router := handler.NewRouter(a.Personas, a.Store, a.Conversation, lg)
	startServer(ctx, cfg.Server, router, lg)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, lg *zap.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	lg.Info("Sky Inn backend listening", zap.String("addr", serverCfg.Addr))
	if err := runServer(ctx, srv); err != nil {
		lg.Fatal("server error", zap.Error(err))
	}
	lg.Info("server stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

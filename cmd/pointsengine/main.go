// Package main запускает HTTP-сервер движка начисления баллов.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/gamification-system/internal/analytics"
	"github.com/mmeshcher/gamification-system/internal/audit"
	"github.com/mmeshcher/gamification-system/internal/catalog"
	"github.com/mmeshcher/gamification-system/internal/config"
	"github.com/mmeshcher/gamification-system/internal/events"
	"github.com/mmeshcher/gamification-system/internal/handler"
	"github.com/mmeshcher/gamification-system/internal/middleware"
	"github.com/mmeshcher/gamification-system/internal/repository"
	"github.com/mmeshcher/gamification-system/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		sugar.Fatalw("catalog load error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI, cat.Levels())
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Выбор канала публикации событий: Redis, HTTP-коллектор или лог.
	var emitter service.EventEmitter
	switch {
	case cfg.EventsRedisAddr != "":
		redisEmitter := events.NewRedisEmitter(cfg.EventsRedisAddr, cfg.EventsChannel)
		defer redisEmitter.Close()
		emitter = redisEmitter
	case cfg.AnalyticsAddress != "":
		httpEmitter := events.NewHTTPEmitter(analytics.NewClient(cfg.AnalyticsAddress), 256, logger)
		httpEmitter.Start(ctx)
		emitter = httpEmitter
	default:
		emitter = events.NewLogEmitter(logger)
	}

	svc := service.NewService(repo, cat, audit.NewZapRecorder(logger), emitter, logger)
	defer svc.Close()

	authSecret := cfg.AuthSecret
	if authSecret == "" {
		authSecret = "gamification-secret"
	}
	authMiddleware := middleware.NewAuthMiddleware(authSecret)

	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting points engine server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

// Package main запускает HTTP-сервер сервиса гольф-лиги.
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

	"github.com/birdieway/golf-league/internal/config"
	"github.com/birdieway/golf-league/internal/handler"
	"github.com/birdieway/golf-league/internal/mailer"
	"github.com/birdieway/golf-league/internal/middleware"
	"github.com/birdieway/golf-league/internal/payments"
	"github.com/birdieway/golf-league/internal/repository"
	"github.com/birdieway/golf-league/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	gateway := payments.NewGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)

	var mailClient service.Mailer
	if cfg.EmailAddress != "" {
		mc, err := mailer.NewClient(cfg.SMTPHost, cfg.SMTPPort, cfg.EmailAddress, cfg.EmailPassword)
		if err != nil {
			sugar.Fatalw("mail client initialization error", "error", err.Error())
		}
		mailClient = mc
	} else {
		sugar.Info("email address not configured, notifications disabled")
	}

	svc := service.NewService(gateway, mailClient, repo, logger, cfg.BaseURL)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.SessionSecret)
	h := handler.NewHandler(svc, logger, authMiddleware, cfg.AdminPassword)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting league server", "addr", cfg.RunAddress)
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

// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/unclebandit/dialer-campaign-backend/internal/app"
	"github.com/unclebandit/dialer-campaign-backend/internal/config"
	"github.com/unclebandit/dialer-campaign-backend/internal/controller"
	"github.com/unclebandit/dialer-campaign-backend/internal/handler"
	"github.com/unclebandit/dialer-campaign-backend/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	campaignController := &controller.CampaignController{
		CampaignService: a.Campaigns,
		Cascade:         a.Cascade,
		Subscribers:     a.Outcomes,
		Logger:          logger,
	}
	contactController := &controller.ContactController{ContactService: a.Contacts}
	dialerHandler := &handler.DialerHandler{Outcomes: a.Outcomes, Logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := a.DB.PingContext(r.Context()); err != nil {
			controller.WriteProblem(w, http.StatusServiceUnavailable, "database unavailable", err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	campaignController.Routes(r)
	contactController.Routes(r)
	dialerHandler.Routes(r)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.HTTPAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

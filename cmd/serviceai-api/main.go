package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpadapter "github.com/PabloGalante/serviceai-agent/internal/adapters/http"
	"github.com/PabloGalante/serviceai-agent/internal/app/feedback"
	"github.com/PabloGalante/serviceai-agent/internal/bootstrap"
	"github.com/PabloGalante/serviceai-agent/internal/config"
	"github.com/PabloGalante/serviceai-agent/internal/observability"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fatal("invalid configuration", err)
	}
	observability.SetLevel(cfg.LogLevel)
	log := observability.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		fatal("error initializing service", err)
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpadapter.NewServer(app.Workspace, feedback.NewService(app.Data)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown failed", "error", err)
		}
	}()

	log.Info("ServiceAI API listening", "port", cfg.Port, "mode", string(cfg.Mode))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal("http server failed", err)
	}
}

func fatal(msg string, err error) {
	observability.Logger().Error(msg, "error", err)
	os.Exit(1)
}

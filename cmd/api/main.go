package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redmonkez12/meetos/internal/app"
	"github.com/redmonkez12/meetos/internal/config"
	httpServer "github.com/redmonkez12/meetos/internal/http"
	"github.com/redmonkez12/meetos/internal/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("meetos: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting meet-os",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"db", cfg.Database.Driver,
		"email", cfg.Email.Mode,
		"admins", len(cfg.App.Admins),
	)

	// SIGINT or SIGTERM cancels ctx, which stops the server and the
	// background rate limiter sweep.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	site, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := site.Close(); err != nil {
			logger.Error("failed to close resources", "error", err)
		}
	}()

	return httpServer.NewServer(cfg.Server, site.Router, logger).Run(ctx)
}

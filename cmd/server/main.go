package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/XutaxKamay/css-enhanced-waf/internal/app"
	"github.com/XutaxKamay/css-enhanced-waf/internal/config"
	"github.com/XutaxKamay/css-enhanced-waf/internal/telemetry"
)

func main() {
	logger := telemetry.WrapLogger(log.Default())

	cfg, err := config.FromEnvironment(os.LookupEnv, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg, app.Options{Logger: logger}); err != nil {
		log.Fatalf("%v", err)
	}
}

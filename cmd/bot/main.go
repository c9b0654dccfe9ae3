package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/muratoffalex/memebot/internal/app"
)

var (
	version   string
	buildTime string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if app.ImportRequested() {
		if err := app.Import(ctx); err != nil {
			log.Fatalf("Import failed: %v", err)
		}
		return
	}

	fmt.Printf("Starting memebot version: %s (built at: %s)\n", version, buildTime)
	application, err := app.New(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer application.Shutdown()

	if err := application.Start(); err != nil {
		application.Logger.WithError(err).Error("Application failed")
	}
}

package main

import (
	"context"
	"encoding/hex"
	"log"
	"os"
	"os/signal"
	"syscall"

	"datalens/internal"
	"datalens/internal/config"
	"datalens/internal/devbackend"
	"datalens/internal/export"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := internal.NewLogger(internal.ParseLogLevel(cfg.Log.Level))
	if cfg.DevServer.GinMode != "" {
		gin.SetMode(cfg.DevServer.GinMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tables, err := devbackend.LoadDir(ctx, cfg.DevServer.DataDir, logger)
	if err != nil {
		log.Fatalf("Failed to load datasets from %s: %v", cfg.DevServer.DataDir, err)
	}

	var key []byte
	if cfg.DevServer.Key != "" {
		if key, err = hex.DecodeString(cfg.DevServer.Key); err != nil {
			log.Fatalf("Invalid DEVSERVER_KEY: %v", err)
		}
	}

	exports, err := export.NewStore(cfg.UI.ExportDir)
	if err != nil {
		log.Fatalf("Failed to open export directory: %v", err)
	}

	srv, err := devbackend.New(tables, devbackend.Options{
		Restricted: cfg.DevServer.Restricted,
		Token:      cfg.Backend.Token,
		Key:        key,
		Exports:    exports,
		Logger:     logger,
	})
	if err != nil {
		log.Fatalf("Failed to create dev backend: %v", err)
	}
	if key == nil {
		logger.Info("download key for this run: %s", hex.EncodeToString(srv.Key()))
	}

	logger.Info("exports from %s are browsable at /exports/", cfg.UI.ExportDir)
	if err := srv.Run(ctx, ":"+cfg.DevServer.Port); err != nil {
		log.Fatalf("Dev backend failed: %v", err)
	}
	logger.Info("dev backend stopped")
}

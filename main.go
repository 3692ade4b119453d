package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"datalens/domain/core"
	"datalens/internal"
	"datalens/internal/config"
	"datalens/internal/container"
	"datalens/ui/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: datalens <dataset-id>")
		os.Exit(2)
	}
	id, err := core.ParseDatasetID(os.Args[1])
	if err != nil {
		log.Fatalf("Invalid dataset id: %v", err)
	}

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// The workspace owns the terminal; log lines go to LOG_FILE or nowhere.
	if appConfig.Log.File != "" {
		closer, err := internal.RedirectToFile(appConfig.Log.File)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer closer.Close()
	} else {
		log.SetOutput(io.Discard)
	}
	logger := internal.NewLogger(internal.ParseLogLevel(appConfig.Log.Level))

	if err := run(id, appConfig, logger); err != nil {
		fmt.Fprintln(os.Stderr, "datalens:", err)
		os.Exit(1)
	}
}

// run wires the workspace and blocks until the user quits
func run(id core.DatasetID, appConfig *config.Config, logger *internal.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := container.New(appConfig, logger)
	if err != nil {
		return err
	}
	if err := c.Init(ctx); err != nil {
		return err
	}
	defer c.Shutdown(ctx)

	model := tui.New(tui.Deps{
		Context:   ctx,
		DatasetID: id,
		Gateway:   c.Gateway,
		Store:     c.Store,
		Exports:   c.Exports,
		UI:        appConfig.UI,
		Logger:    logger,
	})
	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

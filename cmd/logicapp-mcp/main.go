package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Azure/logicapp-mcp/internal/config"
	"github.com/Azure/logicapp-mcp/internal/logger"
	"github.com/Azure/logicapp-mcp/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.NewConfig()
	if err := cfg.ParseFlags(os.Args[1:]); err != nil {
		if errors.Is(err, config.ErrHelp) {
			return nil
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		logger.Warnf("Ignoring log level %q: %v", cfg.LogLevel, err)
	}

	validator := config.NewValidator(cfg)
	if !validator.Validate() {
		validator.PrintErrors()
		return errors.New("invalid configuration")
	}
	for _, warning := range validator.GetWarnings() {
		logger.Warnf("%s", warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service := server.NewService(cfg)
	if err := service.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	runErr := service.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := service.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Shutdown failed: %v", err)
	}
	return runErr
}

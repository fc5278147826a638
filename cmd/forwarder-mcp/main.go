// forwarder-mcp serves read-only forwarder status to MCP clients over stdio.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/DevRickLin/msg-forwarder/internal/conf"
	"github.com/DevRickLin/msg-forwarder/internal/data"
	"github.com/DevRickLin/msg-forwarder/internal/mcp"
	"github.com/DevRickLin/msg-forwarder/internal/telemetry"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath, envFile string

	flagSet := pflag.NewFlagSet("forwarder-mcp", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", conf.DefaultConfigPath(), "path to the JSON config file")
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file with credentials")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	envErr := conf.LoadEnvFile(envFile)

	cfg := conf.Load(configPath)
	cfg.ApplyEnv()

	// stdout carries the protocol, so logs go to stderr only
	logger := slog.New(telemetry.NewHandler(os.Stderr, cfg.LogLevel)).With("app", "forwarder-mcp")
	if envErr != nil {
		logger.Warn("env file not loaded", "path", envFile, "error", envErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := mcp.NewServer(cfg, data.NewStateRepo(cfg.StatePath, logger), version, logger)
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// forwarderd polls the local WhatsApp message store and forwards new
// inbound messages to one recipient through the configured transport.
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

	"github.com/DevRickLin/msg-forwarder/internal/biz"
	"github.com/DevRickLin/msg-forwarder/internal/biz/usecase"
	"github.com/DevRickLin/msg-forwarder/internal/conf"
	"github.com/DevRickLin/msg-forwarder/internal/data"
	"github.com/DevRickLin/msg-forwarder/internal/infra/lock"
	"github.com/DevRickLin/msg-forwarder/internal/service"
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
	var quiet, once, showVersion bool

	flagSet := pflag.NewFlagSet("forwarderd", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", conf.DefaultConfigPath(), "path to the JSON config file")
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file with credentials (ignored when missing)")
	flagSet.BoolVarP(&quiet, "quiet", "q", false, "log to the log file only")
	flagSet.BoolVar(&once, "once", false, "run a single poll cycle and exit")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Println("forwarderd", version)
		return nil
	}

	envErr := conf.LoadEnvFile(envFile)

	cfg := conf.Load(configPath)
	cfg.ApplyEnv()

	logger, closer, err := telemetry.NewLogger(cfg.LogPath, cfg.LogLevel, "forwarderd", quiet)
	if err != nil {
		logger = slog.New(telemetry.NewHandler(os.Stderr, cfg.LogLevel)).With("app", "forwarderd")
		logger.Warn("log file unavailable, logging to stderr", "path", cfg.LogPath, "error", err)
	} else {
		defer closer.Close()
	}
	log := logger.With("component", "main")

	if envErr != nil {
		log.Warn("env file not loaded", "path", envFile, "error", envErr)
	}
	for _, w := range cfg.Warnings {
		log.Warn("config warning", "event", "config", "detail", w)
	}

	guard, ok := lock.Acquire(cfg.LockPath)
	if !ok {
		// exit 0 so the service manager does not restart us in a loop
		log.Info("another instance holds the lock, exiting", "event", "lock", "path", cfg.LockPath)
		return nil
	}
	defer guard.Release()

	repos, err := data.NewRepositories(cfg, logger)
	if err != nil {
		// sends will fail and be counted until the config is fixed
		log.Error("transport unavailable", "event", "startup", "transport", cfg.Transport, "error", err)
	}
	defer repos.Close()

	uc := &biz.Usecases{
		Source:   usecase.NewSourceUsecase(repos.Messages, cfg.ToSourceConfig(), logger),
		Gate:     usecase.NewGateUsecase(repos.Presence, cfg.ToGateConfig()),
		Dispatch: usecase.NewDispatchUsecase(repos.Transport, cfg.ToDispatchConfig()),
	}

	poller := service.NewPoller(uc, repos.State, service.PollerConfig{
		PollInterval:        cfg.PollInterval(),
		AllowedSenders:      cfg.AllowedSenders,
		DedupeWindowSeconds: cfg.DedupeWindowSeconds,
		HousekeepingSpec:    cfg.HousekeepingSchedule,
	}, logger)

	log.Info("forwarder starting",
		"event", "startup",
		"version", version,
		"config", configPath,
		"gate_mode", cfg.GateMode,
		"transport", uc.Dispatch.TransportName(),
		"source", cfg.SourceDBPath,
		"state", cfg.StatePath,
		"recipient_set", cfg.Recipient != "",
	)
	if cfg.Recipient == "" {
		log.Warn("recipient not configured, every send will fail", "event", "startup")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if once {
		if poller.Seed(ctx) {
			res := poller.RunCycle(ctx)
			log.Info("single cycle complete", "fetched", res.Fetched, "sent", res.Sent,
				"skipped", res.Skipped, "failed", res.Failed, "cursor", res.Cursor)
		}
		return nil
	}

	return poller.Run(ctx)
}


package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mymmrac/telego"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/defizo/silentwatch/internal/ceremony"
	"github.com/defizo/silentwatch/internal/channels/telegram"
	"github.com/defizo/silentwatch/internal/config"
	"github.com/defizo/silentwatch/internal/health"
	"github.com/defizo/silentwatch/internal/metrics"
	"github.com/defizo/silentwatch/internal/monitor"
	"github.com/defizo/silentwatch/internal/registry"
)

func runCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the bot, the monitor supervisor, and the health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(envFile)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", "", "optional .env file to load before reading the environment")
	return cmd
}

func runBot(envFile string) error {
	// A missing .env file is fine; real deployments set the environment
	// directly.
	if envFile != "" {
		_ = godotenv.Load(envFile)
	} else {
		_ = godotenv.Load()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bot, err := telego.NewBot(cfg.TelegramBotToken)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	store := registry.New()
	client := ceremony.NewClient(cfg.CeremonyBaseURL)
	sender := telegram.NewSender(bot)
	supervisor := monitor.New(client, store, sender, collector)
	channel := telegram.New(bot, sender, store, client, supervisor)
	healthSrv := health.NewServer(cfg.Port, health.NewRouter(reg))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return healthSrv.Run(gctx) })
	g.Go(func() error { return channel.Run(gctx) })

	slog.Info("silentwatch started", "port", cfg.Port)
	err = g.Wait()
	supervisor.Shutdown()
	slog.Info("silentwatch stopped")
	return err
}

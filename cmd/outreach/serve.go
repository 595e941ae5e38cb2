package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Champ-Deep/ChampMail-sub000/internal/dispatch"
	"github.com/Champ-Deep/ChampMail-sub000/internal/logging"
	"github.com/Champ-Deep/ChampMail-sub000/internal/mail"
	"github.com/Champ-Deep/ChampMail-sub000/internal/server"
	"github.com/Champ-Deep/ChampMail-sub000/internal/server/ratelimit"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the send dispatcher",
		Long:  `Start an HTTP server exposing tracking, bounce, campaign generation and polling endpoints. When dispatch is enabled, due sends are mailed on the configured cron schedule.`,
		RunE:  runServe,
	}
	cmd.Flags().Int("port", 0, "Port to listen on (overrides PORT)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}

	logger := logging.NewLoggerWithService("outreach", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Dispatch.Enabled {
		dispatcher, err := dispatch.New(cfg.Dispatch, cfg.Scheduler.MaxPerMinute, dispatch.Deps{
			Sends:   a.db,
			Mailer:  mail.NewSender(cfg.SMTP),
			Links:   a.tracker,
			Store:   a.store,
			Keys:    a.keys,
			TTLs:    a.ttls,
			Metrics: a.metrics,
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		if err := dispatcher.Start(ctx); err != nil {
			return err
		}
		defer dispatcher.Stop()
	} else {
		logger.Info("Dispatch disabled; scheduled sends will not be mailed by this process")
	}

	limiter := ratelimit.NewLimiter(ratelimit.LoadConfig())
	srv, err := server.New(server.Config{Port: cfg.Port}, server.Deps{
		Tracker:   a.tracker,
		Pipeline:  a.pipeline,
		Schedules: a.scheduler,
		Campaigns: a.db,
		Tasks:     a.tasks,
		Checks: map[string]server.HealthCheck{
			"redis":    func(ctx context.Context) error { return a.redis.Ping(ctx).Err() },
			"database": a.db.Ping,
		},
		Limiter: limiter,
		Metrics: a.metrics,
		Logger:  logger.WithField("component", "server"),
	})
	if err != nil {
		return err
	}

	err = srv.Start(ctx)
	// Let accepted pipeline runs finish before the stores close
	a.tasks.Wait()
	return err
}

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func workerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run only the scoring worker",
		Run: func(cmd *cobra.Command, args []string) {
			if err := workerRun(cmd); err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
		},
	}
}

func workerRun(cmd *cobra.Command) error {
	logger := commonRun()
	cfg := loadConfig(cmd)
	if err := checkDeployment(cfg, true); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	worker, err := a.worker()
	if err != nil {
		return err
	}
	logger.Info("scoring worker started", "consumer_group", cfg.Scoring.ConsumerGroup)
	return worker.Run(ctx)
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func serveCommand() *cobra.Command {
	var withWorker bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Run: func(cmd *cobra.Command, args []string) {
			if err := serveRun(cmd, withWorker); err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
		},
	}
	cmd.Flags().BoolVar(&withWorker, "worker", false, "also run the scoring worker in this process")
	return cmd
}

func serveRun(cmd *cobra.Command, withWorker bool) error {
	logger := commonRun()
	cfg := loadConfig(cmd)
	if err := checkDeployment(cfg, false); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	router, err := a.router()
	if err != nil {
		return err
	}

	// Jobs published to gochannel never leave this process
	if a.redis == nil && !withWorker {
		logger.Info("no redis configured, running the scoring worker in process")
		withWorker = true
	}

	g, ctx := errgroup.WithContext(ctx)

	if withWorker {
		worker, err := a.worker()
		if err != nil {
			return err
		}
		g.Go(func() error {
			return worker.Run(ctx)
		})
		// Subscribe before accepting submissions
		select {
		case <-worker.Running():
		case <-ctx.Done():
			return g.Wait()
		}
	}

	servers := []*http.Server{{Addr: cfg.HTTP.Addr, Handler: router}}
	if cfg.HTTP.MetricsAddr != "" {
		servers = append(servers, &http.Server{
			Addr:    cfg.HTTP.MetricsAddr,
			Handler: promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
		})
	}
	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			logger.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

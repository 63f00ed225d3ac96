package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bsid.es/alarmclock"
	"bsid.es/alarmclock/mem"
	"bsid.es/alarmclock/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// NewRunCommand creates the command that runs the scheduler until it is
// interrupted.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the alarm scheduler",
		Long:  "Loads the stored alarms, arms the scheduler timer and fires alarms until SIGINT or SIGTERM.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runScheduler(ctx, rootOpts, cmd.ErrOrStderr())
		},
	}
}

func runScheduler(ctx context.Context, rootOpts *RootOptions, logOut io.Writer) error {
	cfg, err := rootOpts.loadConfig()
	if err != nil {
		return err
	}
	logger, err := cfg.NewLogger(logOut)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	recorder, err := metrics.New(reg)
	if err != nil {
		return err
	}

	dispatcher := mem.NewDispatcher(logger)
	if err := dispatcher.Run(ctx); err != nil {
		return err
	}
	defer dispatcher.Interrupt()

	console := mem.NewLogger(logger)
	s, err := rootOpts.openSession(logOut,
		alarmclock.WithTimer(mem.TimerFunc),
		alarmclock.WithExecutor(dispatcher),
		alarmclock.WithDisplay(console),
		alarmclock.WithSoundPlayer(console),
		alarmclock.WithMetrics(recorder),
	)
	if err != nil {
		return err
	}
	defer s.Close()
	s.manager.SetFireNotifier(console.Notify)

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", slog.String("error", err.Error()))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", slog.String("addr", cfg.Metrics.Addr))
	}

	if deadline, ok := s.manager.NextDeadline(); ok {
		logger.Info("scheduler running", slog.Time("next_deadline", deadline))
	} else {
		logger.Info("scheduler running, no alarms")
	}
	<-ctx.Done()
	logger.Info("scheduler stopping")
	return nil
}

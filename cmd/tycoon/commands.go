package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tycoon-engine/internal/config"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and event delivery until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.migrate(ctx); err != nil {
				return err
			}
			config.Watch(a.viper, a.balance)
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(ctx)
		return nil
	})
	if a.telegram != nil {
		g.Go(func() error {
			a.telegram.Run(ctx)
			return nil
		})
	}

	if addr := a.cfg.Notify.WebsocketAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/events", a.hub)
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			if err := a.pool.HealthCheck(r.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			log.Info().Str("addr", addr).Msg("Event stream listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("event stream server: %w", err)
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

	g.Go(func() error {
		a.coordinator.Start(ctx)
		return nil
	})

	log.Info().Msg("Engine is running. Press Ctrl+C to stop.")
	err := g.Wait()
	log.Info().Msg("Shutting down...")
	return err
}

func newTickCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Run every due job kind once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			rep := a.coordinator.RunDue(ctx)
			for kind, err := range rep.Failed {
				log.Error().Err(err).Str("job", kind).Msg("Job failed")
			}
			if !rep.OK() {
				return fmt.Errorf("%d job kinds failed", len(rep.Failed))
			}
			return nil
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema and seed the achievement catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.migrate(ctx); err != nil {
				return err
			}
			log.Info().Msg("Schema is up to date")
			return nil
		},
	}
}

func newCatchUpCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "catchup <user-id>",
		Short: "Credit a returning user's offline income",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q: %w", args[0], err)
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			step, err := a.income.CatchUp(ctx, userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "credited %d for %s (%s discarded)\n", step.Credit, step.Elapsed, step.Discarded)
			return nil
		},
	}
}

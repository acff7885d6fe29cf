package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/connect4-backend/internal/config"
	"github.com/DoyleJ11/connect4-backend/internal/httpapi"
	"github.com/DoyleJ11/connect4-backend/internal/hub"
	"github.com/DoyleJ11/connect4-backend/internal/metrics"
	"github.com/DoyleJ11/connect4-backend/internal/ws"
)

const shutdownGrace = 10 * time.Second

func serveCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(envFile)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck
			return serve(cmd.Context(), cfg, log)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file to load before the environment")
	return cmd
}

func serve(parent context.Context, cfg config.Config, log *zap.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Rooms outlive the signal context so they can be shut down in order.
	h := hub.NewHub(context.Background(), hub.Options{
		Store:        st,
		Logger:       log,
		Metrics:      m,
		StoreTimeout: cfg.StoreTimeout,
	})

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:          h,
			Store:        st,
			Logger:       log,
			Gatherer:     reg,
			StoreTimeout: cfg.StoreTimeout,
			WS: ws.Config{
				ReadTimeout:    cfg.WSReadTimeout,
				WriteTimeout:   cfg.WSWriteTimeout,
				OutboxSize:     cfg.OutboxSize,
				OriginPatterns: cfg.AllowedOrigins,
				Logger:         log,
			},
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		// Closing every room first ends the websocket handlers, which Shutdown
		// does not wait for.
		h.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	router "github.com/dkeye/voxify/internal/adapters/http"
	"github.com/dkeye/voxify/internal/adapters/rtc"
	wsignal "github.com/dkeye/voxify/internal/adapters/signal"
	"github.com/dkeye/voxify/internal/app"
	"github.com/dkeye/voxify/internal/app/relay"
	"github.com/dkeye/voxify/internal/metrics"
	"github.com/dkeye/voxify/internal/repository"
	transport "github.com/dkeye/voxify/internal/transport/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signaling relay",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := repository.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer repository.Close(db)
	if err := repository.Migrate(db); err != nil {
		return err
	}

	presence := app.NewPresenceTracker(repository.NewGormPresenceRepository(db), cfg.Presence.WriteTimeout)
	if cfg.Presence.PurgeOnStart {
		if _, err := presence.Purge(ctx); err != nil {
			return err
		}
	}

	ice := rtc.Configuration(cfg.ICEServers)
	if err := rtc.Validate(ice); err != nil {
		return err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	registry := app.NewRegistry()
	auth := app.NewCachedAuthorizer(repository.NewGormMembershipRepository(db), cfg.Auth.CacheTTL)
	relayRouter := &relay.Router{
		Registry: registry,
		Presence: presence,
		Auth:     auth,
		Policy:   app.PolicyFromConfig(cfg.SlowConsumer),
		Metrics:  metrics.New(promReg),
	}
	gateway := relay.NewGateway(relayRouter, app.NewRateLimiter(cfg.RateLimit.Events, cfg.RateLimit.Interval))

	signalCtl := wsignal.NewSignalWSController(cfg, gateway, router.SessionIdentity)
	r := router.SetupRouter(ctx, cfg, router.Deps{
		Signal:   signalCtl,
		Handlers: &transport.Handlers{
			Registry: registry,
			Presence: presence,
			Auth:     auth,
			ICE:      ice,
			Identity: router.SessionIdentity,
			OpsToken: cfg.OpsToken,
		},
		Gatherer: promReg,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("voxify relay started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if !signalCtl.Wait(5 * time.Second) {
		log.Warn().Msg("disconnect cleanup did not finish")
	}
	log.Info().Msg("server exited gracefully")
	return nil
}

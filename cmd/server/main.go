package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fuelprice/internal/app"
	"fuelprice/internal/config"
	"fuelprice/internal/logging"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logging.New("info", "text").Fatalf("config: %v", err)
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatalf("build: %v", err)
	}
	defer a.Close()

	if cfg.Route.APIKey == "" {
		log.Warn("ORS_API_KEY not set; route calculation will fail upstream")
	}

	runTimeout := time.Duration(cfg.Server.RequestTimeoutSec) * time.Second
	h := &api{
		store:      a.Store,
		sweeper:    a.Orchestrator,
		resolver:   a.Resolver,
		stations:   a.Live,
		planner:    a.Planner,
		log:        log.WithField("component", "http"),
		runTimeout: runTimeout,
	}

	if cfg.Schedule.Enabled {
		sched, err := newScheduler(ctx, cfg.Schedule.Cron, a.Location, a.Orchestrator, runTimeout, log.WithField("component", "schedule"))
		if err != nil {
			log.Fatalf("schedule: %v", err)
		}
		sched.Start()
		defer func() { <-sched.Stop().Done() }()
		log.WithField("cron", cfg.Schedule.Cron).Info("daily sweep scheduled")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           h.routes(a.Metrics),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// a manual sweep answers only after every pair is processed
		WriteTimeout: runTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// Package main is the entry point for kellyfolio, an HTTP service that
// computes constrained Kelly-criterion capital allocations and their
// descriptive risk analytics.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/kellyfolio/internal/archive"
	"github.com/aristath/kellyfolio/internal/config"
	"github.com/aristath/kellyfolio/internal/events"
	"github.com/aristath/kellyfolio/internal/health"
	"github.com/aristath/kellyfolio/internal/history"
	"github.com/aristath/kellyfolio/internal/httpapi"
	"github.com/aristath/kellyfolio/internal/kelly"
	"github.com/aristath/kellyfolio/internal/scheduler"
	"github.com/aristath/kellyfolio/pkg/logger"
)

func main() {
	var dataDirFlag string
	flag.StringVar(&dataDirFlag, "data-dir", "", "data directory path (overrides KELLYFOLIO_DATA_DIR/DATA_DIR)")
	flag.Parse()

	cfg, err := config.Load(dataDirFlag)
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})
	log.Info().Msg("starting kellyfolio")

	store, err := history.Open(filepath.Join(cfg.DataDir, "history.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open run-history store")
	}
	defer store.Close()

	bus := events.NewBus(log)
	bus.Subscribe(events.MaskSolved, func(e *events.Event) {
		log.Debug().Interface("data", e.Data).Msg("mask evaluated")
	})
	bus.Subscribe(events.AllocationFailed, func(e *events.Event) {
		log.Warn().Interface("data", e.Data).Msg("allocation failed")
	})

	uploader, err := archive.New(context.Background(), cfg.ArchiveBucket, cfg.ArchivePrefix, cfg.AWSRegion)
	if err != nil {
		log.Warn().Err(err).Msg("response archival disabled: failed to initialize S3 uploader")
	}

	solverCfg := kelly.DefaultSolverConfig()
	if cfg.SolverTolerance > 0 {
		solverCfg.Tolerance = cfg.SolverTolerance
	}
	if cfg.RelaxationFactor > 0 {
		solverCfg.RelaxationFactor = cfg.RelaxationFactor
	}
	if cfg.MaxIterations > 0 {
		solverCfg.MaxIterations = cfg.MaxIterations
	}

	healthReporter := health.New(store)

	// No out-of-band candidate source is wired by default; an operator
	// integrating this service supplies one (e.g. backed by their own
	// candidate-set repository) to enable scheduled recomputation.
	noCandidates := func(ctx context.Context) ([]kelly.AllocationInput, error) {
		return nil, nil
	}
	sched, err := scheduler.New(cfg.RecomputeCronSchedule, noCandidates, store, solverCfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure scheduler")
	}
	sched.Start()
	defer sched.Stop()

	api := httpapi.New(httpapi.Config{
		Log:        log,
		Store:      store,
		Bus:        bus,
		Archiver:   uploader,
		SolverCfg:  solverCfg,
		HealthInfo: healthReporter,
		DevMode:    cfg.DevMode,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: api.Router(),
	}

	go func() {
		log.Info().Int("port", cfg.Port).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server stopped")
}

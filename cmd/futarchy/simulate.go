package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"futarchy/internal/config"
	"futarchy/internal/engine"
	"futarchy/internal/metrics"
	"futarchy/internal/scenario"
	"futarchy/internal/storage"
	"futarchy/internal/storage/snapshot"
)

const snapshotCacheSize = 256

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	sc, err := scenario.Load(cfg.Scenario)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	var snapshots *snapshot.Store
	if cfg.SnapshotDir != "" {
		snapshots, err = snapshot.Open(cfg.SnapshotDir, snapshotCacheSize)
		if err != nil {
			return fmt.Errorf("open snapshot store: %w", err)
		}
		defer snapshots.Close()
	}

	journal := storage.NewJsonlStorage(cfg.Journal)
	errSink := storage.NewJsonlStorage(cfg.Errors)

	eng, clock, err := openEngine(cfg, snapshots, journal, m, logger)
	if err != nil {
		return err
	}

	runCfg := scenario.RunConfig{
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		StopOnError:       cfg.StopOnError,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}
	var snapshotter scenario.Snapshotter
	if snapshots != nil {
		snapshotter = snapshots
	}
	runner := scenario.NewRunner(runCfg, eng, clock, errSink, snapshotter, logger)

	logger.Info("simulate start",
		zap.String("scenario", sc.Name),
		zap.Int("steps", len(sc.Steps)),
		zap.String("journal", cfg.Journal),
		zap.String("errors", cfg.Errors),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
		zap.String("snapshot_dir", cfg.SnapshotDir),
	)

	stats, runErr := runner.Run(ctx, sc)

	logger.Info("simulate complete",
		zap.Int("steps", stats.Steps),
		zap.Int("committed", stats.Committed),
		zap.Int("rejected", stats.Rejected),
		zap.Int("unexpected", stats.Unexpected),
		zap.Uint64("slot", clock.Slot()),
	)

	if err := eng.CheckInvariants(); err != nil {
		logger.Error("ledger invariants violated", zap.Error(err))
		if runErr == nil {
			runErr = err
		}
	}

	if cfg.MetricsOut != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsOut, registry); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return runErr
}

// openEngine resumes from the stored snapshot when a checkpoint exists and
// starts a fresh ledger otherwise.
func openEngine(cfg config.Config, snapshots *snapshot.Store, sink engine.EventSink, m *metrics.Metrics, logger *zap.Logger) (*engine.Engine, *engine.ManualClock, error) {
	_, resume, err := scenario.NewCheckpointStore(cfg.Checkpoint, cfg.CheckpointEnabled && snapshots != nil).Load()
	if err != nil {
		return nil, nil, err
	}
	if !resume {
		clock := engine.NewManualClock(0)
		eng, err := engine.New(cfg.Engine, clock, sink, m, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("create engine: %w", err)
		}
		return eng, clock, nil
	}

	snap, err := snapshots.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load snapshot: %w", err)
	}
	clock := engine.NewManualClock(snap.Slot)
	eng, err := engine.Restore(cfg.Engine, snap, clock, sink, m, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("restore engine: %w", err)
	}
	logger.Info("ledger restored", zap.Uint64("slot", snap.Slot), zap.Uint64("seq", snap.Seq), zap.Int("pools", len(snap.Pools)), zap.Int("proposals", len(snap.Proposals)))
	return eng, clock, nil
}

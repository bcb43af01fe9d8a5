package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"futarchy/internal/config"
	"futarchy/internal/export"
	"futarchy/internal/storage/postgres"
)

func runExport(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadExport(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}

	windowSlots, err := config.ParseWindow(cfg.Window)
	if err != nil {
		return fmt.Errorf("invalid window: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink export.Sink
	var stateStore export.StateStore
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		sink = store
		stateStore, err = export.NewDBStateStore(store, cfg.StateName, windowSlots)
		if err != nil {
			return err
		}
	} else {
		sink = export.NewFileSink(cfg.OutDir)
	}
	if cfg.StateFile != "" {
		stateStore = &export.FileStateStore{Path: cfg.StateFile}
	}

	exporter := export.NewExporter(export.Config{
		WindowSlots:   windowSlots,
		BatchSize:     cfg.BatchSize,
		RecomputeFrom: cfg.RecomputeFrom,
		StateStore:    stateStore,
	}, sink, logger)

	logger.Info("export start",
		zap.String("input", cfg.Input),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("out_dir", cfg.OutDir),
		zap.Uint64("window_slots", windowSlots),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Uint64("recompute_from", cfg.RecomputeFrom),
	)

	stats, err := exporter.Run(ctx, cfg.Input)
	if err != nil {
		return err
	}
	logger.Info("export complete",
		zap.Int("events", stats.Total),
		zap.Int("windows", stats.Windows),
		zap.Int("proposals", stats.Proposals),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
	)
	return nil
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}

package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "futarchy",
		Short:        "Futarchy ledger simulator",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a scenario against the ledger",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("scenario", "", "scenario YAML path")
	simulateCmd.Flags().String("journal", "./data/events.jsonl", "output event journal JSONL")
	simulateCmd.Flags().String("errors", "./data/operation_errors.jsonl", "rejected operations JSONL")
	simulateCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	simulateCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	simulateCmd.Flags().String("snapshot-dir", "./data/snapshot", "ledger snapshot directory")
	simulateCmd.Flags().String("metrics-out", "", "write Prometheus metrics to this file when done")
	simulateCmd.Flags().Bool("stop-on-error", false, "stop at the first unexpected step result")
	simulateCmd.Flags().Int("batch-size", 100, "steps per checkpoint")
	simulateCmd.Flags().Int("max-retries", 3, "maximum snapshot save attempts")
	simulateCmd.Flags().Duration("retry-backoff", 200*time.Millisecond, "initial retry backoff")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print ledger accounts from a stored snapshot",
		RunE:  runInspect,
	}

	inspectCmd.Flags().String("snapshot-dir", "./data/snapshot", "ledger snapshot directory")
	inspectCmd.Flags().String("pool", "", "pool address to print")
	inspectCmd.Flags().Int64("proposal", -1, "proposal number to print")

	root.AddCommand(inspectCmd)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Aggregate the event journal into pool window metrics",
		RunE:  runExport,
	}

	exportCmd.Flags().String("in", "", "input event journal JSONL")
	exportCmd.Flags().String("window", "1h", "aggregation window as slots (9000) or duration (1h)")
	exportCmd.Flags().String("pg-dsn", "", "Postgres DSN; files are written to out-dir when empty")
	exportCmd.Flags().String("out-dir", "./data/export", "output directory for JSONL export")
	exportCmd.Flags().Int("batch-size", 1000, "batch size for writes")
	exportCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	exportCmd.Flags().String("state-name", "export", "progress key in the export_state table")
	exportCmd.Flags().Uint64("recompute-from", 0, "recompute from this slot")
	exportCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(exportCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

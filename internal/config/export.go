package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"futarchy/internal/governance"
)

// ExportConfig holds configuration for the export command.
type ExportConfig struct {
	Input         string
	Window        string
	PGDSN         string
	OutDir        string
	BatchSize     int
	StateFile     string
	StateName     string
	RecomputeFrom uint64
	LogLevel      string
}

// LoadExport merges config file, environment variables, and flags into ExportConfig.
func LoadExport(cfgFile string, flags *pflag.FlagSet) (ExportConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ExportConfig{}, err
	}
	v.SetDefault("in", "./data/events.jsonl")
	v.SetDefault("batch-size", 1000)
	v.SetDefault("window", "1h")
	v.SetDefault("out-dir", "./data/export")
	v.SetDefault("state-name", "export")

	cfg := ExportConfig{
		Input:         v.GetString("in"),
		Window:        v.GetString("window"),
		PGDSN:         v.GetString("pg-dsn"),
		OutDir:        v.GetString("out-dir"),
		BatchSize:     v.GetInt("batch-size"),
		StateFile:     v.GetString("state-file"),
		StateName:     v.GetString("state-name"),
		RecomputeFrom: v.GetUint64("recompute-from"),
		LogLevel:      v.GetString("log-level"),
	}
	return cfg, nil
}

// ParseWindow parses a window given as a slot count ("9000") or a
// duration ("1h"), converting durations at the ledger's slot rate.
func ParseWindow(input string) (uint64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, fmt.Errorf("window is required")
	}
	if isNumeric(input) {
		return strconv.ParseUint(input, 10, 64)
	}

	d, err := time.ParseDuration(input)
	if err != nil {
		return 0, fmt.Errorf("parse window %q: %w", input, err)
	}
	slots := uint64(d/time.Second) * governance.SlotsPerTenSeconds / 10
	if slots == 0 {
		return 0, fmt.Errorf("window %q is shorter than one slot", input)
	}
	return slots, nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}

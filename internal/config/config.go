// Package config loads command settings from flags, FUTARCHY_* environment
// variables and an optional config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"futarchy/internal/amm"
	"futarchy/internal/engine"
	"futarchy/internal/governance"
)

// Config holds settings for the simulate command.
type Config struct {
	Scenario          string
	Journal           string
	Errors            string
	Checkpoint        string
	CheckpointEnabled bool
	SnapshotDir       string
	MetricsOut        string
	StopOnError       bool
	BatchSize         int
	MaxRetries        int
	RetryBackoff      time.Duration
	LogLevel          string
	Engine            engine.Config
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("FUTARCHY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("futarchy")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Config{}, err
	}
	setEngineDefaults(v)
	v.SetDefault("journal", "./data/events.jsonl")
	v.SetDefault("errors", "./data/operation_errors.jsonl")
	v.SetDefault("checkpoint", "./data/checkpoint.json")
	v.SetDefault("checkpoint-enabled", true)
	v.SetDefault("snapshot-dir", "./data/snapshot")
	v.SetDefault("batch-size", 100)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 200*time.Millisecond)

	engineCfg, err := engineConfig(v)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Scenario:          v.GetString("scenario"),
		Journal:           v.GetString("journal"),
		Errors:            v.GetString("errors"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		SnapshotDir:       v.GetString("snapshot-dir"),
		MetricsOut:        v.GetString("metrics-out"),
		StopOnError:       v.GetBool("stop-on-error"),
		BatchSize:         v.GetInt("batch-size"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		LogLevel:          v.GetString("log-level"),
		Engine:            engineCfg,
	}
	if cfg.Scenario == "" {
		return Config{}, fmt.Errorf("scenario is required")
	}
	if cfg.BatchSize <= 0 {
		return Config{}, fmt.Errorf("batch size must be greater than zero")
	}
	return cfg, nil
}

func setEngineDefaults(v *viper.Viper) {
	params := governance.DefaultParams()
	v.SetDefault("dao.base-mint", "0x00000000000000000000000000000000000000b1")
	v.SetDefault("dao.base-decimals", 9)
	v.SetDefault("dao.base-symbol", "META")
	v.SetDefault("dao.quote-mint", "0x00000000000000000000000000000000000000b2")
	v.SetDefault("dao.quote-decimals", 6)
	v.SetDefault("dao.quote-symbol", "USDC")
	v.SetDefault("dao.mint-authority", "0x00000000000000000000000000000000000000aa")
	v.SetDefault("dao.first-proposal", 10)
	v.SetDefault("dao.pass-threshold-bps", params.PassThresholdBps)
	v.SetDefault("dao.proposal-duration-slots", params.ProposalDurationSlots)
	v.SetDefault("dao.finalize-window-slots", params.FinalizeWindowSlots)
	v.SetDefault("dao.min-base-liquidity", params.MinBaseLiquidity)
	v.SetDefault("dao.min-quote-liquidity", params.MinQuoteLiquidity)
	v.SetDefault("dao.swap-fee-bps", params.SwapFeeBps)
	v.SetDefault("dao.ltwap-decimals", params.LtwapDecimals)
	v.SetDefault("dao.proposal-fee-base", params.ProposalFeeBase)
	v.SetDefault("amm.min-fee-bps", amm.DefaultFeeBounds.Min)
	v.SetDefault("amm.max-fee-bps", amm.DefaultFeeBounds.Max)
}

func engineConfig(v *viper.Viper) (engine.Config, error) {
	base, err := address(v, "dao.base-mint")
	if err != nil {
		return engine.Config{}, err
	}
	quote, err := address(v, "dao.quote-mint")
	if err != nil {
		return engine.Config{}, err
	}
	authority, err := address(v, "dao.mint-authority")
	if err != nil {
		return engine.Config{}, err
	}
	params := governance.Params{
		PassThresholdBps:      v.GetUint64("dao.pass-threshold-bps"),
		ProposalDurationSlots: v.GetUint64("dao.proposal-duration-slots"),
		FinalizeWindowSlots:   v.GetUint64("dao.finalize-window-slots"),
		MinBaseLiquidity:      v.GetUint64("dao.min-base-liquidity"),
		MinQuoteLiquidity:     v.GetUint64("dao.min-quote-liquidity"),
		SwapFeeBps:            v.GetUint64("dao.swap-fee-bps"),
		LtwapDecimals:         uint8(v.GetUint("dao.ltwap-decimals")),
		ProposalFeeBase:       v.GetUint64("dao.proposal-fee-base"),
	}
	if err := params.Validate(); err != nil {
		return engine.Config{}, fmt.Errorf("dao params: %w", err)
	}
	bounds := amm.FeeBounds{Min: v.GetUint64("amm.min-fee-bps"), Max: v.GetUint64("amm.max-fee-bps")}
	if bounds.Min >= bounds.Max {
		return engine.Config{}, fmt.Errorf("fee bounds [%d, %d) are empty", bounds.Min, bounds.Max)
	}
	return engine.Config{
		BaseMint: engine.MintSpec{
			Address:  base,
			Decimals: uint8(v.GetUint("dao.base-decimals")),
			Symbol:   v.GetString("dao.base-symbol"),
		},
		QuoteMint: engine.MintSpec{
			Address:  quote,
			Decimals: uint8(v.GetUint("dao.quote-decimals")),
			Symbol:   v.GetString("dao.quote-symbol"),
		},
		MintAuthority:       authority,
		FirstProposalNumber: v.GetUint64("dao.first-proposal"),
		Governance:          params,
		FeeBounds:           bounds,
	}, nil
}

// LoadEngine reads only the engine settings, for commands that restore a
// stored snapshot.
func LoadEngine(cfgFile string, flags *pflag.FlagSet) (engine.Config, string, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return engine.Config{}, "", err
	}
	setEngineDefaults(v)
	cfg, err := engineConfig(v)
	return cfg, v.GetString("log-level"), err
}

func address(v *viper.Viper, key string) (common.Address, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", key, raw)
	}
	return common.HexToAddress(raw), nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"futarchy/internal/amm"
	"futarchy/internal/governance"
)

func TestParseWindow(t *testing.T) {
	slots, err := ParseWindow("9000")
	require.NoError(t, err)
	require.Equal(t, uint64(9000), slots)

	slots, err = ParseWindow("1h")
	require.NoError(t, err)
	require.Equal(t, uint64(9000), slots)

	slots, err = ParseWindow("24h")
	require.NoError(t, err)
	require.Equal(t, uint64(216_000), slots)

	_, err = ParseWindow("")
	require.Error(t, err)
	_, err = ParseWindow("100ms")
	require.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("scenario", "", "")
	require.NoError(t, flags.Parse([]string{"--scenario", "s.yaml"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	require.Equal(t, "s.yaml", cfg.Scenario)
	require.Equal(t, governance.DefaultParams(), cfg.Engine.Governance)
	require.Equal(t, amm.DefaultFeeBounds, cfg.Engine.FeeBounds)
	require.Equal(t, uint64(10), cfg.Engine.FirstProposalNumber)
	require.Equal(t, uint8(9), cfg.Engine.BaseMint.Decimals)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "futarchy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
scenario: run.yaml
dao:
  swap-fee-bps: 250
  proposal-duration-slots: 100
`), 0o644))
	t.Setenv("FUTARCHY_DAO_PASS_THRESHOLD_BPS", "700")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	require.Equal(t, "run.yaml", cfg.Scenario)
	require.Equal(t, uint64(250), cfg.Engine.Governance.SwapFeeBps)
	require.Equal(t, uint64(100), cfg.Engine.Governance.ProposalDurationSlots)
	require.Equal(t, uint64(700), cfg.Engine.Governance.PassThresholdBps)
}

func TestLoadRejectsBadParams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "futarchy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scenario: x\ndao:\n  proposal-duration-slots: 0\n"), 0o644))
	_, err := Load(path, nil)
	require.ErrorIs(t, err, governance.ErrInvalidParams)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
}

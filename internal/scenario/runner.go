package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"futarchy/internal/engine"
	"futarchy/internal/model"
)

// ExpectAnyError in a step's expect field accepts a failure of any class.
const ExpectAnyError = "error"

// RunConfig holds runtime settings for the runner.
type RunConfig struct {
	BatchSize         int
	CheckpointPath    string
	CheckpointEnabled bool
	StopOnError       bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// ErrorSink records rejected operations.
type ErrorSink interface {
	PutOperationErrors(errs []model.OperationError) error
}

// Snapshotter persists the ledger at each checkpoint.
type Snapshotter interface {
	Save(snap model.Snapshot) error
}

// Stats summarizes a run.
type Stats struct {
	Steps      int
	Committed  int
	Rejected   int
	Unexpected int
}

// Runner replays scenario steps against an engine.
type Runner struct {
	cfg        RunConfig
	engine     *engine.Engine
	clock      *engine.ManualClock
	errors     ErrorSink
	snapshots  Snapshotter
	logger     *zap.Logger
	checkpoint *CheckpointStore
	aliases    map[string]common.Address
}

// NewRunner builds a Runner. snapshots may be nil, in which case the
// checkpoint only records progress and cannot be resumed from.
func NewRunner(cfg RunConfig, eng *engine.Engine, clock *engine.ManualClock, errSink ErrorSink, snapshots Snapshotter, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		engine:     eng,
		clock:      clock,
		errors:     errSink,
		snapshots:  snapshots,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled && snapshots != nil),
		aliases:    make(map[string]common.Address),
	}
}

// Run executes the scenario from the step after the last checkpoint.
func (r *Runner) Run(ctx context.Context, sc Scenario) (Stats, error) {
	var stats Stats
	if r.engine == nil || r.clock == nil {
		return stats, fmt.Errorf("engine and clock are required")
	}
	if r.cfg.BatchSize <= 0 {
		return stats, fmt.Errorf("batch size must be greater than zero")
	}
	for name, hex := range sc.Accounts {
		if !common.IsHexAddress(hex) {
			return stats, fmt.Errorf("account %s: invalid address %q", name, hex)
		}
		r.aliases[name] = common.HexToAddress(hex)
	}

	from := 0
	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return stats, err
	}
	if ok {
		if cp.Scenario != sc.Name {
			return stats, fmt.Errorf("checkpoint belongs to scenario %q, not %q", cp.Scenario, sc.Name)
		}
		for name, hex := range cp.Aliases {
			r.aliases[name] = common.HexToAddress(hex)
		}
		from = cp.LastProcessedStep + 1
		r.logger.Info("resume from checkpoint", zap.Int("last_processed", cp.LastProcessedStep), zap.Int("from", from))
	}

	to := len(sc.Steps) - 1
	if from > to {
		r.logger.Info("nothing to run", zap.Int("from", from), zap.Int("steps", len(sc.Steps)))
		return stats, nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return stats, err
	}

	for _, stepRange := range ranges {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		var rejected []model.OperationError
		var stepErr error
		last := stepRange.From - 1
		for i := stepRange.From; i <= stepRange.To; i++ {
			opErr, err := r.step(i, sc.Steps[i], &stats)
			if opErr != nil {
				rejected = append(rejected, *opErr)
			}
			if err != nil {
				stepErr = err
				break
			}
			last = i
		}

		if len(rejected) > 0 && r.errors != nil {
			if err := r.errors.PutOperationErrors(rejected); err != nil {
				return stats, fmt.Errorf("store operation errors: %w", err)
			}
		}
		if last >= stepRange.From {
			if err := r.save(ctx, sc.Name, last); err != nil {
				return stats, err
			}
		}
		if stepErr != nil {
			return stats, stepErr
		}

		r.logger.Info("batch complete",
			zap.Int("from", stepRange.From),
			zap.Int("to", stepRange.To),
			zap.Int("rejected", len(rejected)),
			zap.Uint64("slot", r.clock.Slot()))
	}

	return stats, nil
}

// step runs one step and reports its rejection record, if any. The error
// return is set only when the run must stop.
func (r *Runner) step(i int, s Step, stats *Stats) (*model.OperationError, error) {
	stats.Steps++
	if s.Slot != 0 {
		if err := r.clock.Set(s.Slot); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}
	op, ok := operations[s.Op]
	if !ok {
		return nil, fmt.Errorf("step %d: unknown op %q", i, s.Op)
	}

	addr, err := op(r, s)
	if errors.Is(err, ErrBadStep) || errors.Is(err, ErrUnknownAccount) {
		return nil, fmt.Errorf("step %d (%s): %w", i, s.Op, err)
	}

	if err == nil {
		stats.Committed++
		if s.As != "" && addr != (common.Address{}) {
			r.aliases[s.As] = addr
		}
		if s.Expect != "" {
			stats.Unexpected++
			r.logger.Warn("step committed but a failure was expected",
				zap.Int("step", i), zap.String("op", s.Op), zap.String("expect", s.Expect))
			if r.cfg.StopOnError {
				return nil, fmt.Errorf("step %d (%s): expected %s failure", i, s.Op, s.Expect)
			}
		}
		return nil, nil
	}

	stats.Rejected++
	class := engine.ClassOf(err)
	rec := &model.OperationError{
		Step:      i,
		Slot:      r.clock.Slot(),
		Operation: s.Op,
		Class:     string(class),
		Error:     err.Error(),
	}
	if s.Expect == ExpectAnyError || s.Expect == string(class) {
		r.logger.Debug("step rejected as expected",
			zap.Int("step", i), zap.String("op", s.Op), zap.String("class", string(class)))
		return rec, nil
	}

	stats.Unexpected++
	r.logger.Warn("step rejected",
		zap.Int("step", i), zap.String("op", s.Op), zap.String("class", string(class)), zap.Error(err))
	if r.cfg.StopOnError {
		return rec, fmt.Errorf("step %d (%s): %w", i, s.Op, err)
	}
	return rec, nil
}

func (r *Runner) save(ctx context.Context, name string, last int) error {
	if r.snapshots == nil {
		return nil
	}
	snap := r.engine.Snapshot()
	policy := retryPolicy{retries: r.cfg.MaxRetries, backoff: r.cfg.RetryBackoff}
	err := policy.do(ctx, func() error {
		err := r.snapshots.Save(snap)
		if err != nil {
			r.logger.Warn("snapshot save failed", zap.Error(err), zap.Uint64("slot", snap.Slot))
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	aliases := make(map[string]string, len(r.aliases))
	for alias, addr := range r.aliases {
		aliases[alias] = addr.Hex()
	}
	return r.checkpoint.Save(Checkpoint{Scenario: name, LastProcessedStep: last, Aliases: aliases})
}

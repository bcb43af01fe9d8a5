// Package engine composes the token ledger, pools, vaults and governance
// into atomic operations. Every operation runs against a draft of the
// ledger that is committed only if the whole operation succeeds.
package engine

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"futarchy/internal/amm"
	"futarchy/internal/auth"
	"futarchy/internal/governance"
	"futarchy/internal/keys"
	"futarchy/internal/metrics"
	"futarchy/internal/model"
	"futarchy/internal/token"
	"futarchy/internal/vault"
)

// Built-in program identifiers.
var (
	TokenProgramID      = keys.Program("token")
	GovernanceProgramID = keys.Program("governance")
)

// GovernanceAuthority is the permissioned caller of every proposal pool.
var GovernanceAuthority = keys.Authority(GovernanceProgramID)

// MintSpec describes an underlying token created with the engine.
type MintSpec struct {
	Address  common.Address
	Decimals uint8
	Symbol   string
}

// Config holds engine settings.
type Config struct {
	BaseMint            MintSpec
	QuoteMint           MintSpec
	MintAuthority       common.Address
	FirstProposalNumber uint64
	Governance          governance.Params
	FeeBounds           amm.FeeBounds
}

// EventSink receives the events of each committed operation.
type EventSink interface {
	PutEvents(events []model.TypedEvent) error
}

type Engine struct {
	cfg      Config
	clock    Clock
	sink     EventSink
	metrics  *metrics.Metrics
	logger   *zap.Logger
	programs map[common.Address]Program

	mu  sync.Mutex
	st  *state
	seq uint64
}

// New creates an engine with a fresh ledger holding the two underlying
// mints and the DAO.
func New(cfg Config, clock Clock, sink EventSink, m *metrics.Metrics, logger *zap.Logger) (*Engine, error) {
	tokens := token.NewLedger()
	for _, spec := range []MintSpec{cfg.BaseMint, cfg.QuoteMint} {
		if err := tokens.CreateMint(spec.Address, spec.Decimals, cfg.MintAuthority, spec.Symbol); err != nil {
			return nil, err
		}
	}
	bounds := cfg.FeeBounds
	if bounds == (amm.FeeBounds{}) {
		bounds = amm.DefaultFeeBounds
	}
	if err := bounds.Check(cfg.Governance.SwapFeeBps); err != nil {
		return nil, fmt.Errorf("dao swap fee: %w", err)
	}
	dao, err := governance.NewDAO(cfg.BaseMint.Address, cfg.QuoteMint.Address, cfg.FirstProposalNumber, cfg.Governance)
	if err != nil {
		return nil, fmt.Errorf("create dao: %w", err)
	}
	st := &state{
		tokens:    tokens,
		dao:       dao,
		pools:     make(map[common.Address]*amm.Pool),
		proposals: make(map[uint64]*governance.Proposal),
		vaults:    make(map[common.Address]*vault.Vault),
	}
	return newEngine(cfg, clock, sink, m, logger, st, 0), nil
}

// Restore creates an engine from a snapshot.
func Restore(cfg Config, snap model.Snapshot, clock Clock, sink EventSink, m *metrics.Metrics, logger *zap.Logger) (*Engine, error) {
	st, err := stateFromSnapshot(snap)
	if err != nil {
		return nil, err
	}
	return newEngine(cfg, clock, sink, m, logger, st, snap.Seq), nil
}

func newEngine(cfg Config, clock Clock, sink EventSink, m *metrics.Metrics, logger *zap.Logger, st *state, seq uint64) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FeeBounds == (amm.FeeBounds{}) {
		cfg.FeeBounds = amm.DefaultFeeBounds
	}
	e := &Engine{
		cfg:      cfg,
		clock:    clock,
		sink:     sink,
		metrics:  m,
		logger:   logger,
		programs: make(map[common.Address]Program),
		st:       st,
		seq:      seq,
	}
	e.Register(TokenProgramID, ProgramFunc(executeTokenProgram))
	e.Register(GovernanceProgramID, ProgramFunc(executeGovernanceProgram))
	return e
}

// Register makes program callable from proposal instructions.
func (e *Engine) Register(id common.Address, program Program) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.programs[id] = program
}

type tx struct {
	st       *state
	now      uint64
	bounds   amm.FeeBounds
	programs map[common.Address]Program
	metrics  *metrics.Metrics
	events   []model.TypedEvent
	after    []func()
}

func (t *tx) emit(name string, addr common.Address, data interface{}, meta *model.PoolMeta) {
	t.events = append(t.events, model.TypedEvent{
		Slot:      t.now,
		Address:   addr.Hex(),
		EventName: name,
		Decoded:   data,
		PoolMeta:  meta,
	})
}

// exec runs fn against a draft and commits it if fn and the journal write
// both succeed. Callers arriving already routed through a program authority
// are refused: routing is granted only by the engine itself.
func (e *Engine) exec(op string, c auth.Caller, fn func(t *tx) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t := &tx{
		st:       e.st.clone(),
		now:      e.clock.Slot(),
		bounds:   e.cfg.FeeBounds,
		programs: e.programs,
		metrics:  e.metrics,
	}
	var err error
	if c.Routed() {
		err = fmt.Errorf("signer %s via %s: %w", c.Signer.Hex(), c.Via().Hex(), ErrRoutedCaller)
	} else {
		err = fn(t)
	}
	if err == nil {
		err = e.publish(t.events)
	}
	e.metrics.Operation(op, err)
	if err != nil {
		opErr := &Error{Op: op, Class: classify(err), Err: err}
		e.logger.Debug("operation rejected",
			zap.String("op", op),
			zap.Uint64("slot", t.now),
			zap.String("class", string(opErr.Class)),
			zap.Error(err),
		)
		return opErr
	}

	e.st = t.st
	for _, fn := range t.after {
		fn()
	}
	e.logger.Debug("operation committed",
		zap.String("op", op),
		zap.Uint64("slot", t.now),
		zap.Int("events", len(t.events)),
	)
	return nil
}

func (e *Engine) publish(events []model.TypedEvent) error {
	seq := e.seq
	for i := range events {
		seq++
		events[i].Seq = seq
	}
	if e.sink != nil && len(events) > 0 {
		if err := e.sink.PutEvents(events); err != nil {
			return fmt.Errorf("journal events: %w", err)
		}
	}
	e.seq = seq
	return nil
}

// Snapshot exports the committed ledger.
func (e *Engine) Snapshot() model.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := e.st.snapshot(e.clock.Slot())
	snap.Seq = e.seq
	return snap
}

// CheckInvariants verifies pool ownership and vault backing.
func (e *Engine) CheckInvariants() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.check()
}

func (e *Engine) DAO() model.DAO {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.dao.Record()
}

func (e *Engine) Pool(addr common.Address) (model.Pool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, err := e.st.pool(addr)
	if err != nil {
		return model.Pool{}, err
	}
	return p.Record(), nil
}

func (e *Engine) Proposal(number uint64) (model.Proposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, err := e.st.proposal(number)
	if err != nil {
		return model.Proposal{}, err
	}
	return p.Record(), nil
}

func (e *Engine) BalanceOf(mint, owner common.Address) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.tokens.BalanceOf(mint, owner)
}

func (e *Engine) Supply(mint common.Address) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.tokens.Supply(mint)
}

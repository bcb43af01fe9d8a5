package engine

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"futarchy/internal/amm"
	"futarchy/internal/governance"
	"futarchy/internal/model"
	"futarchy/internal/token"
	"futarchy/internal/vault"
)

// state is everything the engine owns. Operations run against a clone and
// the clone replaces the committed state only on success.
type state struct {
	tokens    *token.Ledger
	dao       *governance.DAO
	pools     map[common.Address]*amm.Pool
	proposals map[uint64]*governance.Proposal
	vaults    map[common.Address]*vault.Vault
}

func (s *state) clone() *state {
	out := &state{
		tokens:    s.tokens.Clone(),
		dao:       s.dao.Clone(),
		pools:     make(map[common.Address]*amm.Pool, len(s.pools)),
		proposals: make(map[uint64]*governance.Proposal, len(s.proposals)),
		vaults:    make(map[common.Address]*vault.Vault, len(s.vaults)),
	}
	for addr, p := range s.pools {
		out.pools[addr] = p.Clone()
	}
	for n, p := range s.proposals {
		out.proposals[n] = p.Clone()
	}
	for addr, v := range s.vaults {
		out.vaults[addr] = v.Clone()
	}
	return out
}

func (s *state) pool(addr common.Address) (*amm.Pool, error) {
	p, ok := s.pools[addr]
	if !ok {
		return nil, fmt.Errorf("pool %s: %w", addr.Hex(), ErrPoolNotFound)
	}
	return p, nil
}

func (s *state) proposal(number uint64) (*governance.Proposal, error) {
	p, ok := s.proposals[number]
	if !ok {
		return nil, fmt.Errorf("proposal %d: %w", number, ErrProposalNotFound)
	}
	return p, nil
}

func (s *state) vault(addr common.Address) (*vault.Vault, error) {
	v, ok := s.vaults[addr]
	if !ok {
		return nil, fmt.Errorf("vault %s: %w", addr.Hex(), ErrVaultNotFound)
	}
	return v, nil
}

func (s *state) snapshot(slot uint64) model.Snapshot {
	snap := model.Snapshot{
		Slot:      slot,
		DAO:       s.dao.Record(),
		Mints:     s.tokens.Mints(),
		Balances:  s.tokens.Balances(),
		Pools:     make([]model.Pool, 0, len(s.pools)),
		Proposals: make([]model.Proposal, 0, len(s.proposals)),
		Vaults:    make([]model.Vault, 0, len(s.vaults)),
	}
	for _, p := range s.pools {
		snap.Pools = append(snap.Pools, p.Record())
	}
	sort.Slice(snap.Pools, func(i, j int) bool {
		return bytes.Compare(snap.Pools[i].Address.Bytes(), snap.Pools[j].Address.Bytes()) < 0
	})
	for _, p := range s.proposals {
		snap.Proposals = append(snap.Proposals, p.Record())
	}
	sort.Slice(snap.Proposals, func(i, j int) bool {
		return snap.Proposals[i].Number < snap.Proposals[j].Number
	})
	for _, v := range s.vaults {
		snap.Vaults = append(snap.Vaults, v.Record())
	}
	sort.Slice(snap.Vaults, func(i, j int) bool {
		return bytes.Compare(snap.Vaults[i].Address.Bytes(), snap.Vaults[j].Address.Bytes()) < 0
	})
	return snap
}

func stateFromSnapshot(snap model.Snapshot) (*state, error) {
	tokens, err := token.Restore(snap.Mints, snap.Balances)
	if err != nil {
		return nil, fmt.Errorf("restore tokens: %w", err)
	}
	dao, err := governance.DAOFromRecord(snap.DAO)
	if err != nil {
		return nil, fmt.Errorf("restore dao: %w", err)
	}
	s := &state{
		tokens:    tokens,
		dao:       dao,
		pools:     make(map[common.Address]*amm.Pool, len(snap.Pools)),
		proposals: make(map[uint64]*governance.Proposal, len(snap.Proposals)),
		vaults:    make(map[common.Address]*vault.Vault, len(snap.Vaults)),
	}
	for _, rec := range snap.Pools {
		p, err := amm.FromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("restore pool %s: %w", rec.Address.Hex(), err)
		}
		s.pools[rec.Address] = p
	}
	for _, rec := range snap.Proposals {
		s.proposals[rec.Number] = governance.ProposalFromRecord(rec)
	}
	for _, rec := range snap.Vaults {
		s.vaults[rec.Address] = vault.FromRecord(rec)
	}
	return s, s.check()
}

// check verifies the cross-entity invariants.
func (s *state) check() error {
	for _, p := range s.pools {
		if err := p.CheckOwnership(); err != nil {
			return fmt.Errorf("pool %s: %w", p.Address().Hex(), err)
		}
	}
	for _, v := range s.vaults {
		if err := v.Check(s.tokens); err != nil {
			return fmt.Errorf("vault %s: %w", v.Address().Hex(), err)
		}
	}
	return nil
}

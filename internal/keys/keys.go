// Package keys derives deterministic entity addresses from stable inputs so
// that any caller can recompute where a record lives without a lookup table.
package keys

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Seed prefixes, one per entity kind.
const (
	poolSeed        = "amm"
	positionSeed    = "amm_position"
	proposalSeed    = "proposal"
	instructionSeed = "proposal_instructions"
	vaultSeed       = "conditional_vault"
	conditionalSeed = "conditional_mint"
	treasurySeed    = "dao_treasury"
	daoSeed         = "dao"
	authoritySeed   = "amm_auth"
	programSeed     = "program"
)

// Side selects one branch of a conditional pair.
type Side uint8

const (
	Pass Side = iota
	Fail
)

func (s Side) String() string {
	if s == Pass {
		return "pass"
	}
	return "fail"
}

func derive(seed string, parts ...[]byte) common.Address {
	data := make([][]byte, 0, len(parts)+1)
	data = append(data, []byte(seed))
	data = append(data, parts...)
	return common.BytesToAddress(crypto.Keccak256(data...))
}

func u64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

// Pool returns the address of the pool for a mint pair, fee and optional
// permissioned caller.
func Pool(base, quote common.Address, feeBps uint64, permissionedCaller common.Address) common.Address {
	return derive(poolSeed, base.Bytes(), quote.Bytes(), u64(feeBps), permissionedCaller.Bytes())
}

func Position(pool, owner common.Address) common.Address {
	return derive(positionSeed, pool.Bytes(), owner.Bytes())
}

func DAO(baseMint, quoteMint common.Address) common.Address {
	return derive(daoSeed, baseMint.Bytes(), quoteMint.Bytes())
}

func Treasury(dao common.Address) common.Address {
	return derive(treasurySeed, dao.Bytes())
}

func Proposal(dao common.Address, number uint64) common.Address {
	return derive(proposalSeed, dao.Bytes(), u64(number))
}

func Instructions(proposal common.Address) common.Address {
	return derive(instructionSeed, proposal.Bytes())
}

// Vault returns the conditional vault escrowing underlying for a proposal.
func Vault(proposal, underlying common.Address) common.Address {
	return derive(vaultSeed, proposal.Bytes(), underlying.Bytes())
}

func ConditionalMint(vault common.Address, side Side) common.Address {
	return derive(conditionalSeed, vault.Bytes(), []byte{byte(side)})
}

// Authority returns the identity a program uses when it invokes a
// permissioned pool on its own behalf.
func Authority(program common.Address) common.Address {
	return derive(authoritySeed, program.Bytes())
}

// Program returns the identifier of a built-in program.
func Program(name string) common.Address {
	return derive(programSeed, []byte(name))
}

package engine

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/near/borsh-go"

	"futarchy/internal/amm"
	"futarchy/internal/auth"
	"futarchy/internal/governance"
	"futarchy/internal/model"
	"futarchy/internal/token"
)

// Invocation is the context a program executes in.
type Invocation struct {
	Slot     uint64
	Accounts []model.AccountMeta
	Data     []byte
	Ledger   *token.Ledger
	DAO      *governance.DAO
	Fees     amm.FeeBounds
}

// signer returns the account at i, requiring it to be a signer.
func (inv Invocation) signer(i int) (auth.Caller, error) {
	if i >= len(inv.Accounts) {
		return auth.Caller{}, ErrBadAccounts
	}
	acc := inv.Accounts[i]
	if !acc.IsSigner {
		return auth.Caller{}, fmt.Errorf("account %s: %w", acc.Pubkey.Hex(), ErrMissingSigner)
	}
	return auth.Direct(acc.Pubkey), nil
}

// Program executes instructions addressed to its id.
type Program interface {
	Execute(inv Invocation) error
}

type ProgramFunc func(inv Invocation) error

func (f ProgramFunc) Execute(inv Invocation) error { return f(inv) }

// TransferArgs is the payload of a token program transfer.
type TransferArgs struct {
	Amount uint64
}

func executeTokenProgram(inv Invocation) error {
	if len(inv.Accounts) != 3 {
		return ErrBadAccounts
	}
	from, err := inv.signer(1)
	if err != nil {
		return err
	}
	var args TransferArgs
	if err := borsh.Deserialize(&args, inv.Data); err != nil {
		return fmt.Errorf("%v: %w", err, ErrBadPayload)
	}
	mint, to := inv.Accounts[0].Pubkey, inv.Accounts[2].Pubkey
	return inv.Ledger.Transfer(from.Signer, mint, from.Signer, to, args.Amount)
}

func executeGovernanceProgram(inv Invocation) error {
	if len(inv.Accounts) != 1 {
		return ErrBadAccounts
	}
	treasury, err := inv.signer(0)
	if err != nil {
		return err
	}
	var params governance.Params
	if err := borsh.Deserialize(&params, inv.Data); err != nil {
		return fmt.Errorf("%v: %w", err, ErrBadPayload)
	}
	// Every later proposal seeds its pools at this fee.
	if err := inv.Fees.Check(params.SwapFeeBps); err != nil {
		return fmt.Errorf("dao params: %w", err)
	}
	return inv.DAO.Update(treasury, params)
}

// TransferInstruction builds a token transfer signed by from.
func TransferInstruction(mint, from, to common.Address, amount uint64) (model.Instruction, error) {
	data, err := borsh.Serialize(TransferArgs{Amount: amount})
	if err != nil {
		return model.Instruction{}, err
	}
	return model.Instruction{
		ProgramID: TokenProgramID,
		Accounts: []model.AccountMeta{
			{Pubkey: mint},
			{Pubkey: from, IsSigner: true, IsWritable: true},
			{Pubkey: to, IsWritable: true},
		},
		Data: data,
	}, nil
}

// UpdateDAOInstruction builds a parameter update signed by the treasury.
func UpdateDAOInstruction(treasury common.Address, params governance.Params) (model.Instruction, error) {
	data, err := borsh.Serialize(params)
	if err != nil {
		return model.Instruction{}, err
	}
	return model.Instruction{
		ProgramID: GovernanceProgramID,
		Accounts:  []model.AccountMeta{{Pubkey: treasury, IsSigner: true, IsWritable: true}},
		Data:      data,
	}, nil
}

// dispatch runs a passed proposal's instructions in order. Only the
// treasury signs; any other signer flag on an account is dropped.
func (t *tx) dispatch(prop *governance.Proposal) error {
	treasury := t.st.dao.Treasury()
	for i, ix := range prop.Instructions() {
		program, ok := t.programs[ix.ProgramID]
		if !ok {
			return fmt.Errorf("instruction %d program %s: %w", i, ix.ProgramID.Hex(), ErrUnknownProgram)
		}
		accounts := make([]model.AccountMeta, len(ix.Accounts))
		for j, acc := range ix.Accounts {
			acc.IsSigner = acc.IsSigner && acc.Pubkey == treasury
			accounts[j] = acc
		}
		err := program.Execute(Invocation{
			Slot:     t.now,
			Accounts: accounts,
			Data:     ix.Data,
			Ledger:   t.st.tokens,
			DAO:      t.st.dao,
			Fees:     t.bounds,
		})
		if err != nil {
			return fmt.Errorf("instruction %d: %w", i, err)
		}
		t.emit(model.EventInstructionExecuted, prop.Address(), model.InstructionEventData{
			Index:     i,
			ProgramID: ix.ProgramID,
		}, nil)
		if ix.ProgramID == GovernanceProgramID {
			t.emit(model.EventDAOUpdated, t.st.dao.Address(), t.st.dao.Record(), nil)
		}
	}
	return nil
}

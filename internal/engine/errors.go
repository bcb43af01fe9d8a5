package engine

import (
	"errors"

	"futarchy/internal/amm"
	"futarchy/internal/fixedpoint"
	"futarchy/internal/governance"
	"futarchy/internal/token"
	"futarchy/internal/vault"
)

var (
	ErrPoolNotFound     = errors.New("pool not found")
	ErrPoolExists       = errors.New("pool already exists")
	ErrProposalNotFound = errors.New("proposal not found")
	ErrVaultNotFound    = errors.New("vault not found")
	ErrUnknownProgram   = errors.New("unknown program")
	ErrMissingSigner    = errors.New("required signer missing")
	ErrBadAccounts      = errors.New("instruction accounts do not match program")
	ErrBadPayload       = errors.New("instruction payload cannot be decoded")
	ErrNothingToDo      = errors.New("base and quote amounts are both zero")
	ErrRoutedCaller     = errors.New("caller is already routed through a program authority")
)

// Class groups failures by who is at fault and whether a retry can help.
type Class string

const (
	ClassArithmetic    Class = "arithmetic"
	ClassInvariant     Class = "invariant"
	ClassState         Class = "state"
	ClassAuthorization Class = "authorization"
	ClassBounds        Class = "bounds"
	ClassInternal      Class = "internal"
)

var classes = []struct {
	class Class
	errs  []error
}{
	{ClassInvariant, []error{
		amm.ErrSwapInvariant,
		amm.ErrOwnershipMismatch,
		amm.ErrInvalidAggregate,
		vault.ErrEscrowMismatch,
	}},
	{ClassArithmetic, []error{
		fixedpoint.ErrOverflow,
		fixedpoint.ErrUnderflow,
		fixedpoint.ErrDivideByZero,
		fixedpoint.ErrUnsupportedDecimals,
	}},
	{ClassAuthorization, []error{
		amm.ErrUnauthorized,
		governance.ErrUnauthorized,
		token.ErrUnauthorized,
		token.ErrMintAuthority,
		ErrMissingSigner,
		ErrRoutedCaller,
	}},
	{ClassState, []error{
		amm.ErrClockMovedBackwards,
		amm.ErrPositionExists,
		governance.ErrNonConsecutiveProposalNumber,
		governance.ErrInstructionsFrozen,
		governance.ErrProposalNotInitialized,
		governance.ErrProposalNotPending,
		governance.ErrProposalTooYoung,
		governance.ErrProposalAlreadyFinalized,
		governance.ErrProposalNotFinalized,
		governance.ErrMarketClosed,
		governance.ErrProposerLiquidityLocked,
		governance.ErrNoActiveProposals,
		vault.ErrVaultSettled,
		vault.ErrVaultActive,
		token.ErrMintExists,
		ErrPoolExists,
	}},
	{ClassBounds, []error{
		amm.ErrSameMint,
		amm.ErrInvalidSwapFee,
		amm.ErrPositionNotFound,
		amm.ErrZeroInput,
		amm.ErrEmptyPool,
		amm.ErrZeroOutput,
		amm.ErrSlippage,
		amm.ErrZeroLiquidity,
		amm.ErrAddLiquidityCalculation,
		amm.ErrInsufficientLiquidityMinted,
		amm.ErrInsufficientLiquidityBurned,
		amm.ErrInvalidBps,
		amm.ErrNoOwnership,
		governance.ErrInvalidParams,
		governance.ErrDescriptionTooLong,
		governance.ErrInsufficientUnderlying,
		governance.ErrInvalidInstruction,
		vault.ErrZeroAmount,
		vault.ErrNothingToRedeem,
		token.ErrUnknownMint,
		token.ErrInsufficientBalance,
		ErrPoolNotFound,
		ErrProposalNotFound,
		ErrVaultNotFound,
		ErrUnknownProgram,
		ErrBadAccounts,
		ErrBadPayload,
		ErrNothingToDo,
	}},
}

func classify(err error) Class {
	for _, group := range classes {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.class
			}
		}
	}
	return ClassInternal
}

// Error is returned by every rejected operation. Nothing the operation did
// is visible after it returns.
type Error struct {
	Op    string
	Class Class
	Err   error
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ClassOf returns the failure class of err, or "" for nil.
func ClassOf(err error) Class {
	if err == nil {
		return ""
	}
	var opErr *Error
	if errors.As(err, &opErr) {
		return opErr.Class
	}
	return classify(err)
}

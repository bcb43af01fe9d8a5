package governance

import "errors"

var (
	ErrInvalidParams                = errors.New("invalid governance parameters")
	ErrUnauthorized                 = errors.New("signer is not permitted")
	ErrNonConsecutiveProposalNumber = errors.New("proposal number is not the next in sequence")
	ErrDescriptionTooLong           = errors.New("description url too long")
	ErrInsufficientUnderlying       = errors.New("initial liquidity below minimum")
	ErrInstructionsFrozen           = errors.New("instructions are frozen once a proposal is submitted")
	ErrInvalidInstruction           = errors.New("instruction has no program")
	ErrProposalNotInitialized       = errors.New("proposal is not in initialize state")
	ErrProposalNotPending           = errors.New("proposal is not pending")
	ErrProposalTooYoung             = errors.New("proposal trading window has not elapsed")
	ErrProposalAlreadyFinalized     = errors.New("proposal already finalized")
	ErrProposalNotFinalized         = errors.New("proposal is not finalized")
	ErrMarketClosed                 = errors.New("proposal market is not open")
	ErrProposerLiquidityLocked      = errors.New("proposer cannot pull liquidity while the market is pending")
	ErrNoActiveProposals            = errors.New("no active proposals")
)

package vault

import "errors"

var (
	ErrZeroAmount      = errors.New("amount must be greater than zero")
	ErrVaultSettled    = errors.New("vault already settled")
	ErrVaultActive     = errors.New("cannot redeem conditional tokens before settlement")
	ErrEscrowMismatch  = errors.New("escrow balance does not match conditional supply")
	ErrNothingToRedeem = errors.New("no conditional tokens to redeem")
)

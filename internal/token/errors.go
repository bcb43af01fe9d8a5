package token

import "errors"

var (
	ErrUnknownMint         = errors.New("unknown mint")
	ErrMintExists          = errors.New("mint already exists")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnauthorized        = errors.New("signer does not own the source account")
	ErrMintAuthority       = errors.New("signer is not the mint authority")
)

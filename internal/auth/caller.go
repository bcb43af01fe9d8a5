// Package auth carries authenticated caller identities between services.
package auth

import "github.com/ethereum/go-ethereum/common"

// Caller is an authenticated invocation. Signer is the account that signed.
// The routing authority is unexported so that only Through can set it.
type Caller struct {
	Signer common.Address
	via    common.Address
}

func Direct(signer common.Address) Caller {
	return Caller{Signer: signer}
}

// Through returns a copy of c routed through authority.
func (c Caller) Through(authority common.Address) Caller {
	c.via = authority
	return c
}

// Via is the program authority the call was routed through, zero when the
// signer invoked directly.
func (c Caller) Via() common.Address {
	return c.via
}

// Routed reports whether c was routed through a program authority.
func (c Caller) Routed() bool {
	return c.via != (common.Address{})
}

// Permits reports whether c may act on an entity restricted to permissioned.
// A zero permissioned address means no restriction.
func (c Caller) Permits(permissioned common.Address) bool {
	if permissioned == (common.Address{}) {
		return true
	}
	return c.via == permissioned
}

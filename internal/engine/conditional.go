package engine

import (
	"errors"
	"fmt"

	"futarchy/internal/auth"
	"futarchy/internal/governance"
	"futarchy/internal/model"
	"futarchy/internal/vault"
)

// ConditionalResult reports the underlying moved by a vault operation.
type ConditionalResult struct {
	BaseAmount  uint64
	QuoteAmount uint64
}

func (t *tx) proposalVaults(number uint64) (*governance.Proposal, *vault.Vault, *vault.Vault, error) {
	prop, err := t.st.proposal(number)
	if err != nil {
		return nil, nil, nil, err
	}
	m := prop.Markets()
	base, err := t.st.vault(m.BaseVault)
	if err != nil {
		return nil, nil, nil, err
	}
	quote, err := t.st.vault(m.QuoteVault)
	if err != nil {
		return nil, nil, nil, err
	}
	return prop, base, quote, nil
}

// MintConditional deposits underlying into a proposal's vaults and mints
// both conditional sides to the signer. A zero amount skips that vault.
func (e *Engine) MintConditional(c auth.Caller, number, baseAmount, quoteAmount uint64) error {
	return e.exec("mint_conditional", c, func(t *tx) error {
		if baseAmount == 0 && quoteAmount == 0 {
			return ErrNothingToDo
		}
		prop, base, quote, err := t.proposalVaults(number)
		if err != nil {
			return err
		}
		if baseAmount > 0 {
			if err := base.Mint(t.st.tokens, c.Signer, baseAmount); err != nil {
				return fmt.Errorf("base: %w", err)
			}
		}
		if quoteAmount > 0 {
			if err := quote.Mint(t.st.tokens, c.Signer, quoteAmount); err != nil {
				return fmt.Errorf("quote: %w", err)
			}
		}
		t.emit(model.EventConditionalMinted, prop.Address(), model.ConditionalEventData{
			Holder:      c.Signer,
			BaseAmount:  baseAmount,
			QuoteAmount: quoteAmount,
		}, nil)
		return nil
	})
}

// MergeConditional burns equal pass and fail amounts and returns the
// underlying. It works before and after settlement.
func (e *Engine) MergeConditional(c auth.Caller, number, baseAmount, quoteAmount uint64) error {
	return e.exec("merge_conditional", c, func(t *tx) error {
		if baseAmount == 0 && quoteAmount == 0 {
			return ErrNothingToDo
		}
		prop, base, quote, err := t.proposalVaults(number)
		if err != nil {
			return err
		}
		if baseAmount > 0 {
			if err := base.Merge(t.st.tokens, c.Signer, baseAmount); err != nil {
				return fmt.Errorf("base: %w", err)
			}
		}
		if quoteAmount > 0 {
			if err := quote.Merge(t.st.tokens, c.Signer, quoteAmount); err != nil {
				return fmt.Errorf("quote: %w", err)
			}
		}
		t.emit(model.EventConditionalMerged, prop.Address(), model.ConditionalEventData{
			Holder:      c.Signer,
			BaseAmount:  baseAmount,
			QuoteAmount: quoteAmount,
		}, nil)
		return nil
	})
}

// RedeemConditional burns all of the signer's conditional tokens of a
// finalized proposal and pays out the winning side in underlying.
func (e *Engine) RedeemConditional(c auth.Caller, number uint64) (ConditionalResult, error) {
	var res ConditionalResult
	err := e.exec("redeem_conditional", c, func(t *tx) error {
		prop, base, quote, err := t.proposalVaults(number)
		if err != nil {
			return err
		}
		if !prop.State().Terminal() {
			return governance.ErrProposalNotFinalized
		}
		redeemed := 0
		for _, r := range []struct {
			v   *vault.Vault
			out *uint64
		}{{base, &res.BaseAmount}, {quote, &res.QuoteAmount}} {
			got, err := r.v.Redeem(t.st.tokens, c.Signer)
			if errors.Is(err, vault.ErrNothingToRedeem) {
				continue
			}
			if err != nil {
				return fmt.Errorf("vault %s: %w", r.v.Address().Hex(), err)
			}
			*r.out = got.Payout
			redeemed++
		}
		if redeemed == 0 {
			return vault.ErrNothingToRedeem
		}
		t.emit(model.EventConditionalRedeemed, prop.Address(), model.ConditionalEventData{
			Holder:      c.Signer,
			BaseAmount:  res.BaseAmount,
			QuoteAmount: res.QuoteAmount,
		}, nil)
		return nil
	})
	if err != nil {
		return ConditionalResult{}, err
	}
	return res, nil
}

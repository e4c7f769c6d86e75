package token

import (
	"context"
	"errors"
	"fmt"

	"starboard/internal/starboard"
)

// AssociatedAddress derives the canonical token account of owner for mint.
func AssociatedAddress(owner, mint starboard.Address) (starboard.Address, uint8, error) {
	return starboard.AssociatedTokenAddress(owner, mint)
}

// GetOrCreateAssociatedAccount returns owner's associated account for mint,
// creating an empty one if it does not exist yet.
func (p *Program) GetOrCreateAssociatedAccount(ctx context.Context, store starboard.Store, mint, owner starboard.Address) (starboard.Address, error) {
	signer, err := starboard.AssociatedAccountSigner(owner, mint)
	if err != nil {
		return starboard.Address{}, err
	}
	addr := signer.Key()

	err = store.Update(ctx, func(tx starboard.Tx) error {
		existing, err := p.Account(tx, addr)
		if err == nil {
			if existing.Mint != mint || existing.Owner != owner {
				return fmt.Errorf("%w: associated account %s", starboard.ErrRelationshipMismatch, addr)
			}
			return nil
		}
		if !errors.Is(err, starboard.ErrNotFound) {
			return err
		}
		return p.InitializeAccount(tx, addr, mint, owner, signer)
	})
	if err != nil {
		return starboard.Address{}, err
	}
	return addr, nil
}

// SyncNative credits lamports to a wrapped-native token account.
func (p *Program) SyncNative(ctx context.Context, store starboard.Store, addr starboard.Address, lamports uint64) error {
	return store.Update(ctx, func(tx starboard.Tx) error {
		acct, err := p.Account(tx, addr)
		if err != nil {
			return err
		}
		if !acct.IsNative {
			return fmt.Errorf("%w: %s is not a wrapped-native account", starboard.ErrMintMismatch, addr)
		}
		if acct.Amount+lamports < acct.Amount {
			return fmt.Errorf("funding %s: amount overflows", addr)
		}
		acct.Amount += lamports
		return p.put(tx, addr, acct)
	})
}

// Balance returns the amount held by a token account.
func (p *Program) Balance(ctx context.Context, store starboard.Store, addr starboard.Address) (uint64, error) {
	var amount uint64
	err := store.View(ctx, func(tx starboard.Tx) error {
		acct, err := p.Account(tx, addr)
		if err != nil {
			return err
		}
		amount = acct.Amount
		return nil
	})
	return amount, err
}

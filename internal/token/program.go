// Package token implements the token program the ledger moves stake through:
// token accounts, authority-checked transfers, associated accounts and
// wrapped-native funding.
package token

import (
	"fmt"

	"starboard/internal/starboard"
)

// Program owns every token account and enforces transfer authority.
type Program struct {
	id     starboard.Address
	logger starboard.Logger
}

var _ starboard.TokenProgram = (*Program)(nil)

// NewProgram returns the token program registered at starboard.TokenProgramID.
func NewProgram(logger starboard.Logger) *Program {
	return &Program{id: starboard.TokenProgramID, logger: logger}
}

func (p *Program) ID() starboard.Address { return p.id }

// InitializeAccount creates an empty token account at addr. The signer must
// prove control of addr, so only whoever derived the address can claim it.
func (p *Program) InitializeAccount(tx starboard.Tx, addr, mint, owner starboard.Address, signer starboard.Signer) error {
	key, err := starboard.Authorize(signer)
	if err != nil {
		return err
	}
	if key != addr {
		return fmt.Errorf("%w: %s cannot initialize %s", starboard.ErrUnauthorized, key, addr)
	}

	data, err := starboard.EncodeTokenAccount(&starboard.TokenAccount{
		Mint:     mint,
		Owner:    owner,
		IsNative: mint == starboard.NativeMint,
	})
	if err != nil {
		return err
	}
	if err := tx.Create(&starboard.Account{Address: addr, Owner: p.id, Data: data}); err != nil {
		return fmt.Errorf("creating token account %s: %w", addr, err)
	}

	p.logger.Debug("token account initialized", "account", addr, "mint", mint, "owner", owner)
	return nil
}

// Transfer moves amount from one account to another of the same mint. The
// authority must be the owner of the source account.
func (p *Program) Transfer(tx starboard.Tx, from, to starboard.Address, authority starboard.Signer, amount uint64) error {
	key, err := starboard.Authorize(authority)
	if err != nil {
		return err
	}

	src, err := p.Account(tx, from)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	dst, err := p.Account(tx, to)
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}

	if src.Owner != key {
		return fmt.Errorf("%w: %s does not own %s", starboard.ErrUnauthorized, key, from)
	}
	if src.Mint != dst.Mint {
		return fmt.Errorf("%w: %s and %s", starboard.ErrMintMismatch, src.Mint, dst.Mint)
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: %s holds %d, need %d", starboard.ErrInsufficientFunds, from, src.Amount, amount)
	}
	if from == to {
		return nil
	}

	src.Amount -= amount
	dst.Amount += amount
	if err := p.put(tx, from, src); err != nil {
		return err
	}
	if err := p.put(tx, to, dst); err != nil {
		return err
	}

	p.logger.Debug("tokens transferred", "from", from, "to", to, "amount", amount)
	return nil
}

// Account loads a token account. It fails with starboard.ErrNotFound when the
// address is empty and starboard.ErrWrongOwner when another program owns it.
func (p *Program) Account(tx starboard.Tx, addr starboard.Address) (*starboard.TokenAccount, error) {
	acct, err := tx.Get(addr)
	if err != nil {
		return nil, fmt.Errorf("loading token account %s: %w", addr, err)
	}
	if acct == nil {
		return nil, fmt.Errorf("%w: token account %s", starboard.ErrNotFound, addr)
	}
	if acct.Owner != p.id {
		return nil, fmt.Errorf("%w: token account %s", starboard.ErrWrongOwner, addr)
	}
	ta, err := starboard.DecodeTokenAccount(acct.Data)
	if err != nil {
		return nil, fmt.Errorf("token account %s: %w", addr, err)
	}
	return ta, nil
}

func (p *Program) put(tx starboard.Tx, addr starboard.Address, ta *starboard.TokenAccount) error {
	data, err := starboard.EncodeTokenAccount(ta)
	if err != nil {
		return err
	}
	if err := tx.Put(&starboard.Account{Address: addr, Owner: p.id, Data: data}); err != nil {
		return fmt.Errorf("writing token account %s: %w", addr, err)
	}
	return nil
}

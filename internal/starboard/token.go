package starboard

// TokenProgram moves token balances on behalf of the program. Calls run inside
// the caller's transaction so a failed transfer aborts the whole instruction.
type TokenProgram interface {
	// ID returns the token program's identity, the Owner of every token account.
	ID() Address

	// InitializeAccount creates a token account at addr for mint with the given
	// owner (authority). signer must prove control of addr itself.
	InitializeAccount(tx Tx, addr, mint, owner Address, signer Signer) error

	// Transfer moves amount from one token account to another. authority must
	// be the owner of from.
	Transfer(tx Tx, from, to Address, authority Signer, amount uint64) error

	// Account loads a token account.
	Account(tx Tx, addr Address) (*TokenAccount, error)
}

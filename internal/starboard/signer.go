package starboard

import "fmt"

// Signer is proof that an instruction may act on behalf of an address.
// Only the WalletSigner and DerivedSigner kinds are honoured; see Authorize.
type Signer interface {
	// Key returns the address the signer acts as.
	Key() Address
	// Verify checks the proof at execution time.
	Verify() error
}

// Authorize verifies s and returns the address it acts for. Signer
// implementations from outside this package are rejected.
func Authorize(s Signer) (Address, error) {
	switch s := s.(type) {
	case WalletSigner, DerivedSigner:
		if err := s.Verify(); err != nil {
			return Address{}, err
		}
		return s.Key(), nil
	default:
		return Address{}, fmt.Errorf("%w: unsupported signer %T", ErrInvalidSigner, s)
	}
}

// WalletSigner is an address whose transaction signature was already checked
// by the wallet and transaction layer in front of the ledger.
type WalletSigner Address

func (s WalletSigner) Key() Address { return Address(s) }

// Verify rejects keys that are not curve points. A derived address has no
// private key and can only sign through a DerivedSigner.
func (s WalletSigner) Verify() error {
	if !isOnCurve(s[:]) {
		return accountError(ErrInvalidSigner, "wallet key off curve", Address(s))
	}
	return nil
}

// DerivedSigner proves control of a program-derived address by its seeds.
// No private key exists for the address; the proof is re-deriving it.
// Values are only minted inside this package, so the zero value is the only
// one other packages can build and it never verifies.
type DerivedSigner struct {
	program Address
	key     Address
	seeds   [][]byte
	bump    uint8
}

func newDerivedSigner(program, key Address, bump uint8, seeds ...[]byte) DerivedSigner {
	cp := make([][]byte, len(seeds))
	for i, s := range seeds {
		cp[i] = append([]byte(nil), s...)
	}
	return DerivedSigner{program: program, key: key, seeds: cp, bump: bump}
}

func (s DerivedSigner) Key() Address { return s.key }

// Verify re-derives the address from the seeds and bump and compares it to the claimed key.
func (s DerivedSigner) Verify() error {
	seeds := make([][]byte, 0, len(s.seeds)+1)
	seeds = append(seeds, s.seeds...)
	seeds = append(seeds, []byte{s.bump})

	addr, err := CreateProgramAddress(seeds, s.program)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSigner, err)
	}
	if addr != s.key {
		return accountError(ErrInvalidSigner, "claimed", s.key)
	}
	return nil
}

// escrowTokenAuthority returns the proof that the program controls the vault address of escrow.
func (d *Deriver) escrowTokenAuthority(escrow Address) (DerivedSigner, error) {
	addr, bump, err := d.EscrowToken(escrow)
	if err != nil {
		return DerivedSigner{}, fmt.Errorf("deriving escrow vault: %w", err)
	}
	return newDerivedSigner(d.program, addr, bump, EscrowTokenSeed, escrow[:]), nil
}

// AssociatedTokenAddress derives the canonical token account of owner for mint
// under the associated token program.
func AssociatedTokenAddress(owner, mint Address) (Address, uint8, error) {
	return FindProgramAddress(associatedSeeds(owner, mint), AssociatedTokenProgramID)
}

// AssociatedAccountSigner proves control of the associated token account of
// owner for mint. The proof only ever covers an associated account address.
func AssociatedAccountSigner(owner, mint Address) (DerivedSigner, error) {
	seeds := associatedSeeds(owner, mint)
	addr, bump, err := FindProgramAddress(seeds, AssociatedTokenProgramID)
	if err != nil {
		return DerivedSigner{}, fmt.Errorf("deriving associated account: %w", err)
	}
	return newDerivedSigner(AssociatedTokenProgramID, addr, bump, seeds...), nil
}

func associatedSeeds(owner, mint Address) [][]byte {
	return [][]byte{owner[:], TokenProgramID[:], mint[:]}
}

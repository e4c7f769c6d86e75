package starboard

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// AddressLength is the size in bytes of every account address.
const AddressLength = 32

// Address identifies an account. Addresses are either wallet public keys or
// program-derived addresses (see FindProgramAddress).
type Address [AddressLength]byte

// NoRound is the sentinel stored in Feed.StakingRound before the first
// staking activation. It is also the "expected old" value a caller supplies
// when activating the first round of a feed.
var NoRound Address

// Well-known program identities.
var (
	DefaultProgramID         = MustParseAddress("Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS")
	TokenProgramID           = MustParseAddress("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgramID = MustParseAddress("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	NativeMint               = MustParseAddress("So11111111111111111111111111111111111111112")
)

// String returns the base58 encoding of the address.
func (a Address) String() string {
	return base58.Encode(a[:])
}

// IsZero reports whether a is the all-zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Bytes returns a copy of the address bytes, suitable as derivation seed material.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressLength)
	copy(b, a[:])
	return b
}

// MarshalText implements encoding.TextMarshaler so addresses round-trip through TOML.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress decodes a base58 address string.
func ParseAddress(s string) (Address, error) {
	var a Address
	if s == "" {
		return a, fmt.Errorf("empty address")
	}
	b := base58.Decode(s)
	if len(b) != AddressLength {
		return a, fmt.Errorf("invalid address %q: decoded to %d bytes, want %d", s, len(b), AddressLength)
	}
	copy(a[:], b)
	return a, nil
}

// MustParseAddress is like ParseAddress but panics on error.
// Use only for compile-time constants.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromBytes copies b into an Address. b must be exactly AddressLength bytes.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressLength {
		return a, fmt.Errorf("invalid address length: %d", len(b))
	}
	copy(a[:], b)
	return a, nil
}

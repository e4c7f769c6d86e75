package starboard

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/puzpuzpuz/xsync/v4"
)

const (
	// MaxSeeds is the maximum number of seeds accepted for one derivation, bump included.
	MaxSeeds = 16
	// MaxSeedLength is the maximum length of a single seed.
	MaxSeedLength = 32

	pdaMarker = "ProgramDerivedAddress"
)

// Seed prefixes for each derived entity.
var (
	FeedSeed        = []byte("Feed")
	RoundSeed       = []byte("Round")
	EscrowSeed      = []byte("Escrow")
	EscrowTokenSeed = []byte("EscrowToken")
	programSeed     = []byte("program")
	signerSeed      = []byte("signer")
)

// CreateProgramAddress hashes seeds with the program identity into an address.
// The result must not lie on the ed25519 curve, otherwise someone could hold
// its private key; such seed sets fail with ErrInvalidSeeds.
func CreateProgramAddress(seeds [][]byte, program Address) (Address, error) {
	var addr Address
	if len(seeds) > MaxSeeds {
		return addr, fmt.Errorf("%w: %d seeds exceeds maximum of %d", ErrInvalidSeeds, len(seeds), MaxSeeds)
	}

	var buf bytes.Buffer
	for i, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return addr, fmt.Errorf("%w: seed %d is %d bytes, maximum is %d", ErrInvalidSeeds, i, len(seed), MaxSeedLength)
		}
		buf.Write(seed)
	}
	buf.Write(program[:])
	buf.WriteString(pdaMarker)

	copy(addr[:], chainhash.HashB(buf.Bytes()))
	if isOnCurve(addr[:]) {
		return Address{}, ErrInvalidSeeds
	}
	return addr, nil
}

// FindProgramAddress searches bump values from 255 down to 0 and returns the
// first off-curve address for seeds+[bump] together with that bump.
func FindProgramAddress(seeds [][]byte, program Address) (Address, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return Address{}, 0, fmt.Errorf("%w: %d seeds leaves no room for a bump", ErrInvalidSeeds, len(seeds))
	}

	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, err := CreateProgramAddress(withBump, program)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if err != ErrInvalidSeeds {
			return Address{}, 0, err
		}
	}
	return Address{}, 0, ErrDerivationExhausted
}

func isOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

type derived struct {
	addr Address
	bump uint8
}

// Deriver computes the derived addresses of one program. Results are memoized;
// a Deriver is safe for concurrent use.
type Deriver struct {
	program Address
	cache   *xsync.Map[string, derived]
}

// NewDeriver returns a Deriver for the given program identity.
func NewDeriver(program Address) *Deriver {
	return &Deriver{
		program: program,
		cache:   xsync.NewMap[string, derived](),
	}
}

// Program returns the program identity addresses are derived under.
func (d *Deriver) Program() Address {
	return d.program
}

// Find is FindProgramAddress for this program, memoized.
func (d *Deriver) Find(seeds ...[]byte) (Address, uint8, error) {
	key := cacheKey(seeds)
	if hit, ok := d.cache.Load(key); ok {
		return hit.addr, hit.bump, nil
	}
	addr, bump, err := FindProgramAddress(seeds, d.program)
	if err != nil {
		return Address{}, 0, err
	}
	d.cache.Store(key, derived{addr: addr, bump: bump})
	return addr, bump, nil
}

// cacheKey length-prefixes every seed so distinct seed lists never collide.
func cacheKey(seeds [][]byte) string {
	var buf bytes.Buffer
	for _, s := range seeds {
		var n [2]byte
		binary.LittleEndian.PutUint16(n[:], uint16(len(s)))
		buf.Write(n[:])
		buf.Write(s)
	}
	return buf.String()
}

// Feed derives ("Feed", id).
func (d *Deriver) Feed(id [32]byte) (Address, uint8, error) {
	return d.Find(FeedSeed, id[:])
}

// Round derives ("Round", feed, [num]).
func (d *Deriver) Round(feed Address, num uint8) (Address, uint8, error) {
	return d.Find(RoundSeed, feed[:], []byte{num})
}

// Escrow derives ("Escrow", voter, round).
func (d *Deriver) Escrow(voter, round Address) (Address, uint8, error) {
	return d.Find(EscrowSeed, voter[:], round[:])
}

// EscrowToken derives ("EscrowToken", escrow), the vault of an escrow.
func (d *Deriver) EscrowToken(escrow Address) (Address, uint8, error) {
	return d.Find(EscrowTokenSeed, escrow[:])
}

// ProgramSigner derives ("program", "signer"), the key-less authority over every vault.
func (d *Deriver) ProgramSigner() (Address, uint8, error) {
	return d.Find(programSeed, signerSeed)
}

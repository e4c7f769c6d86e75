package starboard

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// MaxRounds bounds the round numbers a feed may open (0 through MaxRounds-1).
const MaxRounds = 5

// DescriptionLength is the fixed width of a feed description.
const DescriptionLength = 32

// Account is one entry in the ledger's address space.
type Account struct {
	Address Address
	// Owner is the program allowed to change Data.
	Owner Address
	Data  []byte
}

// Stage is the lifecycle stage of a round.
type Stage uint8

const (
	StageStandby Stage = iota
	StageStaking
)

func (s Stage) String() string {
	switch s {
	case StageStandby:
		return "standby"
	case StageStaking:
		return "staking"
	default:
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
}

// Feed is a registered data stream and its pointer to the round open for staking.
type Feed struct {
	ID             [32]byte
	Description    [DescriptionLength]byte
	UpdateInterval uint32
	// StakingRound is NoRound until the first activation. Once set it always
	// names a Round whose Feed field is this feed's address.
	StakingRound Address
	Started      bool
	Authority    Address
	Height       uint64
	RoundCount   uint8
	Bump         uint8
}

// HasStakingRound reports whether a round has ever been activated.
func (f *Feed) HasStakingRound() bool {
	return f.StakingRound != NoRound
}

// DescriptionString returns the description without null padding.
func (f *Feed) DescriptionString() string {
	return string(bytes.TrimRight(f.Description[:], "\x00"))
}

// PadDescription null-pads s into a fixed-width description.
func PadDescription(s string) ([DescriptionLength]byte, error) {
	var d [DescriptionLength]byte
	if len(s) > DescriptionLength {
		return d, fmt.Errorf("description %q is %d bytes, maximum is %d", s, len(s), DescriptionLength)
	}
	copy(d[:], s)
	return d, nil
}

// Round is one numbered staking period of a feed.
type Round struct {
	// Feed is a lookup key back to the parent feed, not an ownership edge.
	Feed         Address
	Num          uint8
	RoundHeight  uint64
	Stage        Stage
	StakingStart int64
	NumStakers   uint32
	Bump         uint8
}

// Escrow pairs one voter with one round. Its stake lives in the vault at
// ("EscrowToken", escrow), not in the record.
type Escrow struct {
	Voter        Address
	Round        Address
	Feed         Address
	RoundHeight  uint64
	Deposits     uint32
	LastStakedAt int64
	Bump         uint8
	VaultBump    uint8
}

// TokenAccount is the token program's balance record.
type TokenAccount struct {
	Mint Address
	// Owner is the authority allowed to move the balance.
	Owner    Address
	Amount   uint64
	IsNative bool
}

// Discriminators prefix encoded records so one kind can never be read as another.
var (
	feedDiscriminator         = discriminator("Feed")
	roundDiscriminator        = discriminator("Round")
	escrowDiscriminator       = discriminator("Escrow")
	tokenAccountDiscriminator = discriminator("TokenAccount")
)

func discriminator(name string) [8]byte {
	var d [8]byte
	copy(d[:], chainhash.HashB([]byte("account:"+name)))
	return d
}

func encodeRecord(disc [8]byte, v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(8 + binary.Size(v))
	buf.Write(disc[:])
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeRecord(disc [8]byte, data []byte, v any) error {
	if len(data) != 8+binary.Size(v) || !bytes.Equal(data[:8], disc[:]) {
		return ErrDidNotDeserialize
	}
	if err := binary.Read(bytes.NewReader(data[8:]), binary.LittleEndian, v); err != nil {
		return fmt.Errorf("%w: %v", ErrDidNotDeserialize, err)
	}
	return nil
}

// EncodeFeed serializes a feed record.
func EncodeFeed(f *Feed) ([]byte, error) { return encodeRecord(feedDiscriminator, f) }

// DecodeFeed parses a feed record.
func DecodeFeed(data []byte) (*Feed, error) {
	var f Feed
	if err := decodeRecord(feedDiscriminator, data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// EncodeRound serializes a round record.
func EncodeRound(r *Round) ([]byte, error) { return encodeRecord(roundDiscriminator, r) }

// DecodeRound parses a round record.
func DecodeRound(data []byte) (*Round, error) {
	var r Round
	if err := decodeRecord(roundDiscriminator, data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// EncodeEscrow serializes an escrow record.
func EncodeEscrow(e *Escrow) ([]byte, error) { return encodeRecord(escrowDiscriminator, e) }

// DecodeEscrow parses an escrow record.
func DecodeEscrow(data []byte) (*Escrow, error) {
	var e Escrow
	if err := decodeRecord(escrowDiscriminator, data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// EncodeTokenAccount serializes a token account record.
func EncodeTokenAccount(t *TokenAccount) ([]byte, error) {
	return encodeRecord(tokenAccountDiscriminator, t)
}

// DecodeTokenAccount parses a token account record.
func DecodeTokenAccount(data []byte) (*TokenAccount, error) {
	var t TokenAccount
	if err := decodeRecord(tokenAccountDiscriminator, data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

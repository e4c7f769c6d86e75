package testutil

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"testing"

	"starboard/internal/starboard"
	"starboard/internal/store"
	"starboard/internal/token"
)

// Ledger bundles a program with its store, token program and clock.
type Ledger struct {
	Store   starboard.Store
	Tokens  *token.Program
	Program *starboard.Program
	Clock   *StubClock
}

// NewLedger returns a program over an in-memory store with default params.
func NewLedger(t *testing.T) *Ledger {
	t.Helper()
	return NewLedgerWithStore(t, store.NewMemoryStore(), starboard.DefaultParams())
}

// NewLedgerWithStore returns a program over s.
func NewLedgerWithStore(t *testing.T, s starboard.Store, params starboard.Params) *Ledger {
	t.Helper()

	logger := starboard.NewNopLogger()
	clock := FixedClock()
	tokens := token.NewProgram(logger)
	return &Ledger{
		Store:   s,
		Tokens:  tokens,
		Program: starboard.NewProgram(s, tokens, logger, clock, params),
		Clock:   clock,
	}
}

// Wallet returns a deterministic wallet address distinct per seed byte. The
// address is a real ed25519 public key, so it can sign as a WalletSigner.
func Wallet(seed byte) starboard.Address {
	key := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{seed}, ed25519.SeedSize))
	return starboard.Address(key.Public().(ed25519.PublicKey))
}

// FundWallet creates owner's associated stake-mint account and credits it
// with amount. It returns the account address.
func (l *Ledger) FundWallet(t *testing.T, owner starboard.Address, amount uint64) starboard.Address {
	t.Helper()
	ctx := context.Background()

	acct, err := l.Tokens.GetOrCreateAssociatedAccount(ctx, l.Store, l.Program.Params().StakeMint, owner)
	if err != nil {
		t.Fatalf("creating associated account: %v", err)
	}
	if amount > 0 {
		if err := l.Tokens.SyncNative(ctx, l.Store, acct, amount); err != nil {
			t.Fatalf("funding associated account: %v", err)
		}
	}
	return acct
}

// Balance returns the amount held by a token account, failing the test on error.
func (l *Ledger) Balance(t *testing.T, acct starboard.Address) uint64 {
	t.Helper()
	amount, err := l.Tokens.Balance(context.Background(), l.Store, acct)
	if err != nil {
		t.Fatalf("reading balance of %s: %v", acct, err)
	}
	return amount
}

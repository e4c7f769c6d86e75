package client

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starboard/internal/starboard"
	"starboard/internal/testutil"
)

var (
	authority = starboard.WalletSigner(testutil.Wallet(0xA0))
	voter     = starboard.WalletSigner(testutil.Wallet(0xB1))
)

func newClient(t *testing.T, s starboard.Store) (*Client, *testutil.Ledger, *[]time.Duration) {
	t.Helper()
	l := testutil.NewLedgerWithStore(t, s, starboard.DefaultParams())
	c := New(l.Program, l.Tokens, l.Store, testutil.NewStubFeedIDs(), starboard.NewNopLogger(), DefaultOptions())

	var slept []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, l, &slept
}

// racingStore runs hook before each of the next races Updates, letting a
// competing caller commit between a client's read and its write.
type racingStore struct {
	starboard.Store
	races  int
	inHook bool
	hook   func()
}

func (r *racingStore) Update(ctx context.Context, fn func(tx starboard.Tx) error) error {
	if r.races > 0 && !r.inHook {
		r.races--
		r.inHook = true
		r.hook()
		r.inHook = false
	}
	return r.Store.Update(ctx, fn)
}

func TestCreateFeed(t *testing.T) {
	c, l, _ := newClient(t, testutil.NewTestStore(t))
	ctx := context.Background()

	feed, err := c.CreateFeed(ctx, authority, "SOL/USD", 30)
	require.NoError(t, err)

	// the stub hands out the zero id first
	want, _, err := l.Program.Deriver().Feed([32]byte{})
	require.NoError(t, err)
	assert.Equal(t, want, feed)

	second, err := c.CreateFeed(ctx, authority, "ETH/USD", 30)
	require.NoError(t, err)
	assert.NotEqual(t, feed, second)

	_, err = c.CreateFeed(ctx, authority, strings.Repeat("x", 40), 30)
	require.Error(t, err)
}

func TestRandomFeedIDs(t *testing.T) {
	a, err := RandomFeedIDs{}.NewFeedID()
	require.NoError(t, err)
	b, err := RandomFeedIDs{}.NewFeedID()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCreateRounds(t *testing.T) {
	c, _, _ := newClient(t, testutil.NewTestStore(t))
	ctx := context.Background()

	feed, err := c.CreateFeed(ctx, authority, "SOL/USD", 30)
	require.NoError(t, err)

	rounds, err := c.CreateRounds(ctx, authority, feed, starboard.MaxRounds)
	require.NoError(t, err)
	assert.Len(t, rounds, starboard.MaxRounds)

	_, err = c.CreateRounds(ctx, authority, feed, starboard.MaxRounds+1)
	require.ErrorIs(t, err, starboard.ErrInvalidRoundNumber)
}

// setupRace creates a feed with five rounds behind a racingStore whose hook
// activates the rounds in order, closing each window as it goes.
func setupRace(t *testing.T) (*Client, *testutil.Ledger, *racingStore, starboard.Address, []starboard.Address, *[]time.Duration) {
	t.Helper()
	ctx := context.Background()

	racing := &racingStore{Store: testutil.NewTestStore(t)}
	c, l, slept := newClient(t, racing)

	feed, err := c.CreateFeed(ctx, authority, "SOL/USD", 30)
	require.NoError(t, err)
	rounds, err := c.CreateRounds(ctx, authority, feed, starboard.MaxRounds)
	require.NoError(t, err)

	next := 0
	racing.hook = func() {
		expected := starboard.NoRound
		if next > 0 {
			expected = rounds[next-1]
		}
		require.NoError(t, l.Program.StartStaking(ctx, authority, feed, rounds[next], expected))
		next++
		l.Clock.Advance(30 * time.Second)
	}
	return c, l, racing, feed, rounds, slept
}

func TestStartStaking_RetriesAfterLostRace(t *testing.T) {
	c, l, racing, feed, rounds, slept := setupRace(t)
	ctx := context.Background()
	racing.races = 1

	require.NoError(t, c.StartStaking(ctx, authority, feed, rounds[4]))

	f, err := l.Program.Feed(ctx, feed)
	require.NoError(t, err)
	assert.Equal(t, rounds[4], f.StakingRound)
	assert.Equal(t, uint64(2), f.Height)
	assert.Equal(t, []time.Duration{DefaultOptions().InitialDelay}, *slept)
}

func TestStartStaking_GivesUp(t *testing.T) {
	c, l, racing, feed, rounds, slept := setupRace(t)
	ctx := context.Background()
	c.opts.MaxRetries = 2
	racing.races = 3

	err := c.StartStaking(ctx, authority, feed, rounds[4])
	require.ErrorIs(t, err, starboard.ErrConcurrencyConflict)

	f, err := l.Program.Feed(ctx, feed)
	require.NoError(t, err)
	assert.Equal(t, rounds[2], f.StakingRound)

	d := DefaultOptions().InitialDelay
	assert.Equal(t, []time.Duration{d, 2 * d}, *slept)
}

func TestStartStaking_OtherErrorsAreNotRetried(t *testing.T) {
	c, _, _, feed, rounds, slept := setupRace(t)

	err := c.StartStaking(context.Background(), voter, feed, rounds[0])
	require.ErrorIs(t, err, starboard.ErrUnauthorized)
	assert.Empty(t, *slept)
}

func TestStake_ResolvesActiveRound(t *testing.T) {
	c, l, _ := newClient(t, testutil.NewTestStore(t))
	ctx := context.Background()
	amount := l.Program.Params().StakeAmount

	feed, err := c.CreateFeed(ctx, authority, "SOL/USD", 30)
	require.NoError(t, err)
	rounds, err := c.CreateRounds(ctx, authority, feed, 2)
	require.NoError(t, err)

	_, err = c.Stake(ctx, voter, feed)
	require.ErrorIs(t, err, starboard.ErrRoundNotActive)

	require.NoError(t, c.StartStaking(ctx, authority, feed, rounds[0]))
	_, err = c.Fund(ctx, voter.Key(), 2*amount)
	require.NoError(t, err)

	receipt, err := c.Stake(ctx, voter, feed)
	require.NoError(t, err)

	escrow, err := l.Program.Escrow(ctx, receipt.Escrow)
	require.NoError(t, err)
	assert.Equal(t, rounds[0], escrow.Round)

	balance, err := c.Balance(ctx, voter.Key())
	require.NoError(t, err)
	assert.Equal(t, amount, balance)
}

func TestBatch(t *testing.T) {
	c, l, _ := newClient(t, testutil.NewTestStore(t))
	ctx := context.Background()
	amount := l.Program.Params().StakeAmount

	id := strings.Repeat("00", 32)
	feed, _, err := l.Program.Deriver().Feed([32]byte{})
	require.NoError(t, err)

	voters := []starboard.Address{testutil.Wallet(1), testutil.Wallet(2), testutil.Wallet(3)}

	instructions := []Instruction{
		{Kind: KindInitFeed, ID: id, Description: "SOL/USD", Interval: 30},
	}
	for num := 0; num < 3; num++ {
		instructions = append(instructions, Instruction{Kind: KindInitRound, Wave: 1, Feed: feed.String(), Num: num})
	}
	for _, v := range voters {
		instructions = append(instructions, Instruction{Kind: KindFund, Wave: 1, Signer: v.String(), Amount: amount})
	}
	instructions = append(instructions, Instruction{Kind: KindStartStaking, Wave: 2, Feed: feed.String(), Num: 0})
	for _, v := range voters {
		instructions = append(instructions, Instruction{Kind: KindStake, Wave: 3, Signer: v.String(), Feed: feed.String()})
	}
	// fails: round 0 already exists
	instructions = append(instructions, Instruction{Kind: KindInitRound, Wave: 3, Feed: feed.String(), Num: 0})

	results, err := c.Batch(ctx, authority, instructions)
	require.NoError(t, err)
	require.Len(t, results, len(instructions))

	for i, r := range results[:len(results)-1] {
		assert.NoError(t, r.Err, "instruction %d (%s)", i, r.Kind)
		assert.Equal(t, i, r.Index)
	}
	last := results[len(results)-1]
	assert.ErrorIs(t, last.Err, starboard.ErrAlreadyExists)

	assert.Equal(t, feed, results[0].Address)

	round0, _, err := l.Program.Deriver().Round(feed, 0)
	require.NoError(t, err)
	r, err := l.Program.Round(ctx, round0)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(voters)), r.NumStakers)
}

func TestBatch_CancelledContext(t *testing.T) {
	c, _, _ := newClient(t, testutil.NewTestStore(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := c.Batch(ctx, authority, []Instruction{{Kind: KindInitFeed, Description: "SOL/USD", Interval: 30}})
	require.Error(t, err)
	require.Len(t, results, 1)
	assert.True(t, errors.Is(results[0].Err, context.Canceled))
}

func TestReadBatch(t *testing.T) {
	input := `
[[instruction]]
kind = "init_feed"
id = "0000000000000000000000000000000000000000000000000000000000000000"
description = "SOL/USD"
interval = 30

[[instruction]]
kind = "init_round"
wave = 1
feed = "11111111111111111111111111111111"
num = 2
`
	got, err := ReadBatch(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, KindInitFeed, got[0].Kind)
	assert.Equal(t, uint32(30), got[0].Interval)
	assert.Equal(t, 1, got[1].Wave)
	assert.Equal(t, 2, got[1].Num)

	t.Run("unknown kind", func(t *testing.T) {
		_, err := ReadBatch(strings.NewReader("[[instruction]]\nkind = \"withdraw\"\n"))
		require.Error(t, err)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := ReadBatch(strings.NewReader("[[instruction]]\nkind = \"stake\"\nvoter = \"x\"\n"))
		require.Error(t, err)
	})
}

func TestParseFeedID(t *testing.T) {
	id, err := ParseFeedID(strings.Repeat("ab", 32))
	require.NoError(t, err)
	assert.Equal(t, byte(0xab), id[31])

	_, err = ParseFeedID("abcd")
	require.Error(t, err)
	_, err = ParseFeedID(strings.Repeat("zz", 32))
	require.Error(t, err)
}

func TestWaves(t *testing.T) {
	got := waves([]Instruction{{Wave: 2}, {Wave: 0}, {Wave: 2}, {Wave: -1}})
	assert.Equal(t, [][]int{{3}, {1}, {0, 2}}, got)
}

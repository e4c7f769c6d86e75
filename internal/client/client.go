// Package client drives a starboard program the way an off-ledger caller
// would: it picks feed ids, resolves derived addresses and the active round,
// provisions token accounts, and resubmits transitions that lost a race.
package client

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"starboard/internal/starboard"
	"starboard/internal/token"
)

// FeedIDSource produces fresh feed ids.
type FeedIDSource interface {
	NewFeedID() ([32]byte, error)
}

// RandomFeedIDs draws feed ids from crypto/rand so they cannot be predicted
// and squatted.
type RandomFeedIDs struct{}

func (RandomFeedIDs) NewFeedID() ([32]byte, error) {
	var id [32]byte
	if _, err := rand.Read(id[:]); err != nil {
		return id, fmt.Errorf("generating feed id: %w", err)
	}
	return id, nil
}

// Options tunes retries and batch concurrency.
type Options struct {
	// MaxRetries bounds resubmissions after a concurrency conflict.
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// Workers is the number of instructions a batch submits at once.
	Workers int
	// QueueSize bounds pending batch tasks; 0 means unbounded.
	QueueSize int
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		MaxRetries:   5,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Workers:      4,
	}
}

// Client submits instructions to a program.
type Client struct {
	program *starboard.Program
	tokens  *token.Program
	store   starboard.Store
	ids     FeedIDSource
	logger  starboard.Logger
	opts    Options
	sleep   func(ctx context.Context, d time.Duration) error
}

// New creates a Client. store must be the store program executes against.
func New(program *starboard.Program, tokens *token.Program, store starboard.Store, ids FeedIDSource, logger starboard.Logger, opts Options) *Client {
	if ids == nil {
		ids = RandomFeedIDs{}
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultOptions().Workers
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = DefaultOptions().MaxDelay
	}
	return &Client{
		program: program,
		tokens:  tokens,
		store:   store,
		ids:     ids,
		logger:  logger,
		opts:    opts,
		sleep:   sleepContext,
	}
}

// Program returns the program the client drives.
func (c *Client) Program() *starboard.Program { return c.program }

// CreateFeed registers a feed under a fresh id and returns its address.
func (c *Client) CreateFeed(ctx context.Context, payer starboard.Signer, description string, updateInterval uint32) (starboard.Address, error) {
	desc, err := starboard.PadDescription(description)
	if err != nil {
		return starboard.Address{}, err
	}
	id, err := c.ids.NewFeedID()
	if err != nil {
		return starboard.Address{}, err
	}
	return c.program.InitFeed(ctx, payer, id, desc, updateInterval)
}

// CreateRounds initializes rounds 0 through n-1 of feed.
func (c *Client) CreateRounds(ctx context.Context, payer starboard.Signer, feed starboard.Address, n int) ([]starboard.Address, error) {
	if n < 0 || n > starboard.MaxRounds {
		return nil, fmt.Errorf("%w: cannot create %d rounds", starboard.ErrInvalidRoundNumber, n)
	}
	rounds := make([]starboard.Address, 0, n)
	for num := 0; num < n; num++ {
		addr, err := c.program.InitRound(ctx, payer, feed, uint8(num))
		if err != nil {
			return rounds, err
		}
		rounds = append(rounds, addr)
	}
	return rounds, nil
}

// ActiveRound returns the feed's current staking round. It fails with
// starboard.ErrRoundNotActive when no round was ever activated.
func (c *Client) ActiveRound(ctx context.Context, feed starboard.Address) (starboard.Address, error) {
	f, err := c.program.Feed(ctx, feed)
	if err != nil {
		return starboard.Address{}, err
	}
	if !f.HasStakingRound() {
		return starboard.Address{}, fmt.Errorf("%w: feed %s has no staking round", starboard.ErrRoundNotActive, feed)
	}
	return f.StakingRound, nil
}

// StartStaking activates round, reading the feed's current staking round as
// the expected old value. When another transition commits in between, it
// re-reads the feed and resubmits with exponential backoff.
func (c *Client) StartStaking(ctx context.Context, authority starboard.Signer, feed, round starboard.Address) error {
	delay := c.opts.InitialDelay
	for attempt := 0; ; attempt++ {
		f, err := c.program.Feed(ctx, feed)
		if err != nil {
			return err
		}

		err = c.program.StartStaking(ctx, authority, feed, round, f.StakingRound)
		if err == nil || !errors.Is(err, starboard.ErrConcurrencyConflict) {
			return err
		}
		if attempt >= c.opts.MaxRetries {
			return fmt.Errorf("giving up after %d attempts: %w", attempt+1, err)
		}

		c.logger.Info("staking round changed, retrying", "feed", feed, "round", round, "attempt", attempt+1, "delay", delay)
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
		delay = min(delay*2, c.opts.MaxDelay)
	}
}

// StakeAccount returns voter's associated account for the stake mint,
// creating it if needed.
func (c *Client) StakeAccount(ctx context.Context, voter starboard.Address) (starboard.Address, error) {
	return c.tokens.GetOrCreateAssociatedAccount(ctx, c.store, c.program.Params().StakeMint, voter)
}

// Fund credits lamports to owner's wrapped-native stake account.
func (c *Client) Fund(ctx context.Context, owner starboard.Address, lamports uint64) (starboard.Address, error) {
	acct, err := c.StakeAccount(ctx, owner)
	if err != nil {
		return starboard.Address{}, err
	}
	if err := c.tokens.SyncNative(ctx, c.store, acct, lamports); err != nil {
		return starboard.Address{}, err
	}
	return acct, nil
}

// Balance returns the stake-mint balance of owner's associated account.
func (c *Client) Balance(ctx context.Context, owner starboard.Address) (uint64, error) {
	acct, _, err := token.AssociatedAddress(owner, c.program.Params().StakeMint)
	if err != nil {
		return 0, err
	}
	return c.tokens.Balance(ctx, c.store, acct)
}

// Stake stakes from voter's associated account into the feed's active round.
func (c *Client) Stake(ctx context.Context, voter starboard.Signer, feed starboard.Address) (*starboard.StakeReceipt, error) {
	round, err := c.ActiveRound(ctx, feed)
	if err != nil {
		return nil, err
	}
	source, err := c.StakeAccount(ctx, voter.Key())
	if err != nil {
		return nil, err
	}
	return c.program.Stake(ctx, voter, feed, round, source)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

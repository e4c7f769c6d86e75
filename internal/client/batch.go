package client

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/alitto/pond/v2"

	"starboard/internal/starboard"
)

// Instruction kinds accepted in a batch.
const (
	KindInitFeed     = "init_feed"
	KindInitRound    = "init_round"
	KindStartFeed    = "start_feed"
	KindStartStaking = "start_staking"
	KindStake        = "stake"
	KindFund         = "fund"
)

// Instruction is one entry of a batch file. Addresses are base58; Signer
// defaults to the submitting wallet.
type Instruction struct {
	Kind string `toml:"kind"`
	// Wave orders dependent instructions: every instruction of a wave commits
	// or fails before the next wave starts. Within a wave order is unspecified.
	Wave   int    `toml:"wave"`
	Signer string `toml:"signer,omitempty"`
	// ID is a hex feed id for init_feed; empty draws a random one.
	ID          string `toml:"id,omitempty"`
	Feed        string `toml:"feed,omitempty"`
	Round       string `toml:"round,omitempty"`
	Num         int    `toml:"num,omitempty"`
	Description string `toml:"description,omitempty"`
	Interval    uint32 `toml:"interval,omitempty"`
	Amount      uint64 `toml:"amount,omitempty"`
}

// BatchFile is the TOML layout of a batch: a list of [[instruction]] tables.
type BatchFile struct {
	Instructions []Instruction `toml:"instruction"`
}

// ReadBatch decodes a batch file.
func ReadBatch(r io.Reader) ([]Instruction, error) {
	var f BatchFile
	md, err := toml.NewDecoder(r).Decode(&f)
	if err != nil {
		return nil, fmt.Errorf("decoding batch: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("decoding batch: unknown key %s", undecoded[0])
	}
	for i, ins := range f.Instructions {
		if !slices.Contains(kinds, ins.Kind) {
			return nil, fmt.Errorf("instruction %d: unknown kind %q", i, ins.Kind)
		}
	}
	return f.Instructions, nil
}

var kinds = []string{KindInitFeed, KindInitRound, KindStartFeed, KindStartStaking, KindStake, KindFund}

// Result is the outcome of one batch instruction.
type Result struct {
	Index int
	Kind  string
	// Address is the feed, round, escrow or token account the instruction produced.
	Address starboard.Address
	Err     error
}

// Batch submits instructions wave by wave, running each wave through a worker
// pool. Failures are reported per instruction and do not stop the batch.
// Results are returned in input order.
func (c *Client) Batch(ctx context.Context, wallet starboard.Signer, instructions []Instruction) ([]Result, error) {
	var opts []pond.Option
	if c.opts.QueueSize > 0 {
		opts = append(opts, pond.WithQueueSize(c.opts.QueueSize))
	}
	pool := pond.NewPool(c.opts.Workers, opts...)
	defer pool.StopAndWait()

	results := make([]Result, len(instructions))
	for i, ins := range instructions {
		results[i] = Result{Index: i, Kind: ins.Kind}
	}

	ran := make([]bool, len(instructions))
	skipped := func(err error) {
		for i := range results {
			if !ran[i] {
				results[i].Err = err
			}
		}
	}

	for _, wave := range waves(instructions) {
		if err := ctx.Err(); err != nil {
			skipped(err)
			return results, err
		}

		group := pool.NewGroupContext(ctx)
		groupCtx := group.Context()

		for _, i := range wave {
			group.Submit(func() {
				if err := groupCtx.Err(); err != nil {
					return
				}
				ran[i] = true
				results[i].Address, results[i].Err = c.submit(groupCtx, wallet, instructions[i])
			})
		}

		if err := group.Wait(); err != nil && !errors.Is(err, pond.ErrGroupStopped) && !errors.Is(err, context.Canceled) {
			return results, fmt.Errorf("batch wave: %w", err)
		}
		if err := ctx.Err(); err != nil {
			skipped(err)
			return results, err
		}
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	c.logger.Info("batch submitted", "instructions", len(instructions), "failed", failed)
	return results, nil
}

// waves groups instruction indexes by Wave in ascending order.
func waves(instructions []Instruction) [][]int {
	byWave := make(map[int][]int)
	for i, ins := range instructions {
		byWave[ins.Wave] = append(byWave[ins.Wave], i)
	}
	keys := make([]int, 0, len(byWave))
	for k := range byWave {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([][]int, 0, len(keys))
	for _, k := range keys {
		out = append(out, byWave[k])
	}
	return out
}

func (c *Client) submit(ctx context.Context, wallet starboard.Signer, ins Instruction) (starboard.Address, error) {
	signer := wallet
	if ins.Signer != "" {
		key, err := starboard.ParseAddress(ins.Signer)
		if err != nil {
			return starboard.Address{}, fmt.Errorf("signer: %w", err)
		}
		signer = starboard.WalletSigner(key)
	}

	switch ins.Kind {
	case KindInitFeed:
		if ins.ID == "" {
			return c.CreateFeed(ctx, signer, ins.Description, ins.Interval)
		}
		id, err := ParseFeedID(ins.ID)
		if err != nil {
			return starboard.Address{}, err
		}
		desc, err := starboard.PadDescription(ins.Description)
		if err != nil {
			return starboard.Address{}, err
		}
		return c.program.InitFeed(ctx, signer, id, desc, ins.Interval)

	case KindInitRound:
		feed, err := parseField("feed", ins.Feed)
		if err != nil {
			return starboard.Address{}, err
		}
		if ins.Num < 0 || ins.Num > 255 {
			return starboard.Address{}, fmt.Errorf("%w: %d", starboard.ErrInvalidRoundNumber, ins.Num)
		}
		return c.program.InitRound(ctx, signer, feed, uint8(ins.Num))

	case KindStartFeed:
		feed, err := parseField("feed", ins.Feed)
		if err != nil {
			return starboard.Address{}, err
		}
		return feed, c.program.StartFeed(ctx, signer, feed)

	case KindStartStaking:
		feed, err := parseField("feed", ins.Feed)
		if err != nil {
			return starboard.Address{}, err
		}
		round, err := c.roundOf(feed, ins)
		if err != nil {
			return starboard.Address{}, err
		}
		return round, c.StartStaking(ctx, signer, feed, round)

	case KindStake:
		feed, err := parseField("feed", ins.Feed)
		if err != nil {
			return starboard.Address{}, err
		}
		receipt, err := c.Stake(ctx, signer, feed)
		if err != nil {
			return starboard.Address{}, err
		}
		return receipt.Escrow, nil

	case KindFund:
		return c.Fund(ctx, signer.Key(), ins.Amount)

	default:
		return starboard.Address{}, fmt.Errorf("unknown instruction kind %q", ins.Kind)
	}
}

// roundOf resolves the round of ins: an explicit address, or the round
// derived from the feed and Num.
func (c *Client) roundOf(feed starboard.Address, ins Instruction) (starboard.Address, error) {
	if ins.Round != "" {
		return parseField("round", ins.Round)
	}
	if ins.Num < 0 || ins.Num >= starboard.MaxRounds {
		return starboard.Address{}, fmt.Errorf("%w: %d", starboard.ErrInvalidRoundNumber, ins.Num)
	}
	addr, _, err := c.program.Deriver().Round(feed, uint8(ins.Num))
	return addr, err
}

// ParseFeedID decodes a 64-character hex feed id.
func ParseFeedID(s string) ([32]byte, error) {
	var id [32]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("feed id: %w", err)
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("feed id is %d bytes, want %d", len(b), len(id))
	}
	copy(id[:], b)
	return id, nil
}

func parseField(name, value string) (starboard.Address, error) {
	if value == "" {
		return starboard.Address{}, fmt.Errorf("%s is required", name)
	}
	addr, err := starboard.ParseAddress(value)
	if err != nil {
		return starboard.Address{}, fmt.Errorf("%s: %w", name, err)
	}
	return addr, nil
}

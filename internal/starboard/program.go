package starboard

import (
	"context"
	"errors"
	"fmt"
)

// DefaultStakeAmount is the stake moved into a vault by each stake instruction
// when Params leaves it unset.
const DefaultStakeAmount = 1_000_000

// Params configures a Program.
type Params struct {
	// ProgramID is the identity every address is derived under.
	ProgramID Address
	// StakeAmount is the fixed protocol stake size, in base units of StakeMint.
	StakeAmount uint64
	// StakeMint is the mint of every escrow vault.
	StakeMint Address
}

// DefaultParams returns the parameters of the default deployment.
func DefaultParams() Params {
	return Params{
		ProgramID:   DefaultProgramID,
		StakeAmount: DefaultStakeAmount,
		StakeMint:   NativeMint,
	}
}

// Program executes starboard instructions against a Store. Every instruction
// runs as one Store.Update, so it either fully commits or leaves no trace.
type Program struct {
	store   Store
	tokens  TokenProgram
	deriver *Deriver
	logger  Logger
	clock   Clock
	params  Params
}

// NewProgram creates a Program with the provided dependencies.
func NewProgram(store Store, tokens TokenProgram, logger Logger, clock Clock, params Params) *Program {
	if params.ProgramID.IsZero() {
		params.ProgramID = DefaultProgramID
	}
	if params.StakeAmount == 0 {
		params.StakeAmount = DefaultStakeAmount
	}
	if params.StakeMint.IsZero() {
		params.StakeMint = NativeMint
	}
	return &Program{
		store:   store,
		tokens:  tokens,
		deriver: NewDeriver(params.ProgramID),
		logger:  logger,
		clock:   clock,
		params:  params,
	}
}

// ID returns the program identity.
func (p *Program) ID() Address { return p.params.ProgramID }

// Params returns the effective parameters.
func (p *Program) Params() Params { return p.params }

// Deriver returns the address deriver for this program.
func (p *Program) Deriver() *Deriver { return p.deriver }

// execute runs fn as one atomic instruction and appends the outcome to the
// instruction log. A failure to log is reported but does not fail the instruction.
func (p *Program) execute(ctx context.Context, name string, signer Signer, params string, fn func(tx Tx) error) error {
	key, err := Authorize(signer)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	rec := &InstructionRecord{
		Instruction: name,
		Signer:      key,
		Parameters:  params,
		StartedAt:   p.clock.Now(),
		Status:      StatusSuccess,
	}

	err = p.store.Update(ctx, fn)
	rec.FinishedAt = p.clock.Now()
	if err != nil {
		rec.Status = StatusError
		rec.Error = err.Error()
		if code, ok := CodeOf(err); ok {
			rec.ErrorCode = uint32(code)
		}
	}

	if lerr := p.store.RecordInstruction(ctx, rec); lerr != nil {
		p.logger.Warn("recording instruction failed", "instruction", name, "error", lerr)
	}

	if err != nil {
		p.logger.Warn("instruction failed", "instruction", name, "signer", key, "error", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	p.logger.Debug("instruction committed", "instruction", name, "id", rec.ID)
	return nil
}

// loadOwned fetches an account and checks that this program owns it.
func (p *Program) loadOwned(tx Tx, what string, addr Address) (*Account, error) {
	acct, err := tx.Get(addr)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", what, err)
	}
	if acct == nil {
		return nil, accountError(ErrNotFound, what, addr)
	}
	if acct.Owner != p.params.ProgramID {
		return nil, accountError(ErrWrongOwner, what, addr)
	}
	return acct, nil
}

func (p *Program) loadFeed(tx Tx, addr Address) (*Feed, error) {
	acct, err := p.loadOwned(tx, "feed", addr)
	if err != nil {
		return nil, err
	}
	feed, err := DecodeFeed(acct.Data)
	if err != nil {
		return nil, accountError(ErrDidNotDeserialize, "feed", addr)
	}
	return feed, nil
}

func (p *Program) loadRound(tx Tx, addr Address) (*Round, error) {
	acct, err := p.loadOwned(tx, "round", addr)
	if err != nil {
		return nil, err
	}
	round, err := DecodeRound(acct.Data)
	if err != nil {
		return nil, accountError(ErrDidNotDeserialize, "round", addr)
	}
	return round, nil
}

func (p *Program) loadEscrow(tx Tx, addr Address) (*Escrow, error) {
	acct, err := p.loadOwned(tx, "escrow", addr)
	if err != nil {
		return nil, err
	}
	escrow, err := DecodeEscrow(acct.Data)
	if err != nil {
		return nil, accountError(ErrDidNotDeserialize, "escrow", addr)
	}
	return escrow, nil
}

// loadFeedRound loads a feed and a round and checks that the round belongs to
// the feed, both by its back-reference and by re-deriving its address.
func (p *Program) loadFeedRound(tx Tx, feedAddr, roundAddr Address) (*Feed, *Round, error) {
	feed, err := p.loadFeed(tx, feedAddr)
	if err != nil {
		return nil, nil, err
	}
	round, err := p.loadRound(tx, roundAddr)
	if err != nil {
		return nil, nil, err
	}
	if round.Feed != feedAddr {
		return nil, nil, fmt.Errorf("%w: round %s references feed %s, not %s", ErrRelationshipMismatch, roundAddr, round.Feed, feedAddr)
	}
	expected, _, err := p.deriver.Round(feedAddr, round.Num)
	if err != nil {
		return nil, nil, err
	}
	if expected != roundAddr {
		return nil, nil, fmt.Errorf("%w: round %s is not derived from feed %s", ErrRelationshipMismatch, roundAddr, feedAddr)
	}
	return feed, round, nil
}

func (p *Program) create(tx Tx, addr Address, data []byte) error {
	return tx.Create(&Account{Address: addr, Owner: p.params.ProgramID, Data: data})
}

func (p *Program) put(tx Tx, addr Address, data []byte) error {
	return tx.Put(&Account{Address: addr, Owner: p.params.ProgramID, Data: data})
}

func (p *Program) putFeed(tx Tx, addr Address, feed *Feed) error {
	data, err := EncodeFeed(feed)
	if err != nil {
		return err
	}
	return p.put(tx, addr, data)
}

func (p *Program) putRound(tx Tx, addr Address, round *Round) error {
	data, err := EncodeRound(round)
	if err != nil {
		return err
	}
	return p.put(tx, addr, data)
}

// Feed fetches a feed record.
func (p *Program) Feed(ctx context.Context, addr Address) (*Feed, error) {
	var feed *Feed
	err := p.store.View(ctx, func(tx Tx) error {
		var err error
		feed, err = p.loadFeed(tx, addr)
		return err
	})
	return feed, err
}

// Round fetches a round record.
func (p *Program) Round(ctx context.Context, addr Address) (*Round, error) {
	var round *Round
	err := p.store.View(ctx, func(tx Tx) error {
		var err error
		round, err = p.loadRound(tx, addr)
		return err
	})
	return round, err
}

// Escrow fetches an escrow record.
func (p *Program) Escrow(ctx context.Context, addr Address) (*Escrow, error) {
	var escrow *Escrow
	err := p.store.View(ctx, func(tx Tx) error {
		var err error
		escrow, err = p.loadEscrow(tx, addr)
		return err
	})
	return escrow, err
}

// Vault fetches the token vault of an escrow.
func (p *Program) Vault(ctx context.Context, escrow Address) (*TokenAccount, error) {
	vault, _, err := p.deriver.EscrowToken(escrow)
	if err != nil {
		return nil, err
	}
	var acct *TokenAccount
	err = p.store.View(ctx, func(tx Tx) error {
		var err error
		acct, err = p.tokens.Account(tx, vault)
		return err
	})
	return acct, err
}

// RoundEntry is an existing round of a feed together with its address.
type RoundEntry struct {
	Address Address
	Round   *Round
}

// Rounds returns the rounds of a feed that have been created, in number order.
func (p *Program) Rounds(ctx context.Context, feed Address) ([]RoundEntry, error) {
	var entries []RoundEntry
	err := p.store.View(ctx, func(tx Tx) error {
		if _, err := p.loadFeed(tx, feed); err != nil {
			return err
		}
		for num := uint8(0); num < MaxRounds; num++ {
			addr, _, err := p.deriver.Round(feed, num)
			if err != nil {
				return err
			}
			round, err := p.loadRound(tx, addr)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			entries = append(entries, RoundEntry{Address: addr, Round: round})
		}
		return nil
	})
	return entries, err
}

// History returns the most recent executed instructions, newest first.
func (p *Program) History(ctx context.Context, limit int) ([]*InstructionRecord, error) {
	recs, err := p.store.ListInstructions(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing instructions: %w", err)
	}
	return recs, nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"starboard/internal/client"
	"starboard/internal/config"
	"starboard/internal/starboard"
	"starboard/internal/store"
	"starboard/internal/token"
)

// StarboardApp is the application layer between the CLI and the program.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw base58 strings, and manages the store lifecycle on Close.
type StarboardApp struct {
	cfg     *config.Config
	store   starboard.Store
	program *starboard.Program
	client  *client.Client
	signer  starboard.Signer
	logger  *slog.Logger
	op      *Operation
	logFile *os.File
}

// NewStarboardApp creates a fully wired StarboardApp from the given config.
// command identifies the CLI command being run (e.g. "feed init", "stake").
// The caller must call Close when done.
func NewStarboardApp(cfg *config.Config, command string) (*StarboardApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	params, err := ProgramParams(cfg.Program)
	if err != nil {
		return nil, err
	}

	var signer starboard.Signer
	if cfg.Wallet.Address != "" {
		key, err := starboard.ParseAddress(cfg.Wallet.Address)
		if err != nil {
			return nil, fmt.Errorf("wallet.address: %w", err)
		}
		signer = starboard.WalletSigner(key)
	}

	s, err := store.NewStoreFromConfig(cfg.Store, cfg.LedgerID)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}
	if sq, ok := s.(*store.SQLiteStore); ok {
		if err := sq.CheckMigrations(); err != nil {
			s.Close()
			return nil, fmt.Errorf("checking ledger schema: %w", err)
		}
	}

	op := NewOperation(command, time.Now().UTC())
	logger, logFile, err := newLogger(cfg.LogDir, op.ID)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	adapter := &slogAdapter{l: logger}
	tokens := token.NewProgram(adapter)
	program := starboard.NewProgram(s, tokens, adapter, starboard.RealClock{}, params)
	c := client.New(program, tokens, s, client.RandomFeedIDs{}, adapter, clientOptions(cfg))

	logger.Debug("command started", "command", command, "ledger", cfg.LedgerID, "program", program.ID())

	return &StarboardApp{
		cfg:     cfg,
		store:   s,
		program: program,
		client:  c,
		signer:  signer,
		logger:  logger,
		op:      op,
		logFile: logFile,
	}, nil
}

// ProgramParams converts the program section of the config into program
// parameters. Empty fields keep their defaults.
func ProgramParams(cfg config.ProgramConfig) (starboard.Params, error) {
	params := starboard.DefaultParams()
	if cfg.ProgramID != "" {
		id, err := starboard.ParseAddress(cfg.ProgramID)
		if err != nil {
			return params, fmt.Errorf("program.program_id: %w", err)
		}
		params.ProgramID = id
	}
	if cfg.StakeMint != "" {
		mint, err := starboard.ParseAddress(cfg.StakeMint)
		if err != nil {
			return params, fmt.Errorf("program.stake_mint: %w", err)
		}
		params.StakeMint = mint
	}
	if cfg.StakeAmount != 0 {
		params.StakeAmount = cfg.StakeAmount
	}
	return params, nil
}

func clientOptions(cfg *config.Config) client.Options {
	opts := client.DefaultOptions()
	opts.MaxRetries = cfg.Retry.MaxRetries
	if cfg.Retry.InitialDelayMS > 0 {
		opts.InitialDelay = time.Duration(cfg.Retry.InitialDelayMS) * time.Millisecond
	}
	if cfg.Submit.Workers > 0 {
		opts.Workers = cfg.Submit.Workers
	}
	opts.QueueSize = cfg.Submit.QueueSize
	return opts
}

// InitLedger creates or upgrades the schema of the configured SQLite ledger
// and returns its path.
func InitLedger(cfg *config.Config) (string, error) {
	s, err := store.NewStoreFromConfig(cfg.Store, cfg.LedgerID)
	if err != nil {
		return "", fmt.Errorf("creating store: %w", err)
	}
	defer s.Close()

	sq, ok := s.(*store.SQLiteStore)
	if !ok {
		return "", fmt.Errorf("store type %q has no schema to initialize", cfg.Store.Type)
	}
	if err := sq.MigrateUp(); err != nil {
		return "", fmt.Errorf("migrating ledger: %w", err)
	}
	return sq.Path(), nil
}

// Program returns the wired program.
func (a *StarboardApp) Program() *starboard.Program { return a.program }

// SetSigner overrides the configured wallet for the instructions this app
// submits. Wallet signatures are checked by the transaction layer in front of
// a ledger, which this CLI does not run, so any wallet key is accepted.
// Derived addresses are refused since nothing can sign for them.
func (a *StarboardApp) SetSigner(raw string) error {
	key, err := starboard.ParseAddress(raw)
	if err != nil {
		return fmt.Errorf("signer: %w", err)
	}
	if _, err := starboard.Authorize(starboard.WalletSigner(key)); err != nil {
		return fmt.Errorf("signer: %w", err)
	}
	a.signer = starboard.WalletSigner(key)
	return nil
}

func (a *StarboardApp) wallet() (starboard.Signer, error) {
	if a.signer == nil {
		return nil, errors.New("no wallet configured: set wallet.address or pass --as")
	}
	return a.signer, nil
}

// CreateFeed registers a feed under a fresh id and initializes its first
// rounds rounds. It returns the feed and round addresses.
func (a *StarboardApp) CreateFeed(ctx context.Context, description string, interval uint32, rounds int) (starboard.Address, []starboard.Address, error) {
	w, err := a.wallet()
	if err != nil {
		return starboard.Address{}, nil, err
	}
	feed, err := a.client.CreateFeed(ctx, w, description, interval)
	if err != nil {
		return starboard.Address{}, nil, a.op.Observe(err)
	}
	addrs, err := a.client.CreateRounds(ctx, w, feed, rounds)
	return feed, addrs, a.op.Observe(err)
}

// InitRound initializes round num of feed.
func (a *StarboardApp) InitRound(ctx context.Context, rawFeed string, num int) (starboard.Address, error) {
	w, err := a.wallet()
	if err != nil {
		return starboard.Address{}, err
	}
	feed, err := parseAddress("feed", rawFeed)
	if err != nil {
		return starboard.Address{}, err
	}
	if num < 0 || num >= starboard.MaxRounds {
		return starboard.Address{}, fmt.Errorf("%w: %d", starboard.ErrInvalidRoundNumber, num)
	}
	addr, err := a.program.InitRound(ctx, w, feed, uint8(num))
	return addr, a.op.Observe(err)
}

// StartFeed marks feed started.
func (a *StarboardApp) StartFeed(ctx context.Context, rawFeed string) error {
	w, err := a.wallet()
	if err != nil {
		return err
	}
	feed, err := parseAddress("feed", rawFeed)
	if err != nil {
		return err
	}
	return a.op.Observe(a.program.StartFeed(ctx, w, feed))
}

// StartStaking opens round num of feed for staking and returns the round address.
func (a *StarboardApp) StartStaking(ctx context.Context, rawFeed string, num int) (starboard.Address, error) {
	w, err := a.wallet()
	if err != nil {
		return starboard.Address{}, err
	}
	feed, err := parseAddress("feed", rawFeed)
	if err != nil {
		return starboard.Address{}, err
	}
	if num < 0 || num >= starboard.MaxRounds {
		return starboard.Address{}, fmt.Errorf("%w: %d", starboard.ErrInvalidRoundNumber, num)
	}
	round, _, err := a.program.Deriver().Round(feed, uint8(num))
	if err != nil {
		return starboard.Address{}, err
	}
	return round, a.op.Observe(a.client.StartStaking(ctx, w, feed, round))
}

// Stake stakes from the wallet into the feed's active round.
func (a *StarboardApp) Stake(ctx context.Context, rawFeed string) (*starboard.StakeReceipt, error) {
	w, err := a.wallet()
	if err != nil {
		return nil, err
	}
	feed, err := parseAddress("feed", rawFeed)
	if err != nil {
		return nil, err
	}
	receipt, err := a.client.Stake(ctx, w, feed)
	return receipt, a.op.Observe(err)
}

// Fund credits lamports to the stake account of owner, or of the wallet when
// owner is empty.
func (a *StarboardApp) Fund(ctx context.Context, rawOwner string, lamports uint64) (starboard.Address, error) {
	owner, err := a.ownerOrWallet(rawOwner)
	if err != nil {
		return starboard.Address{}, err
	}
	acct, err := a.client.Fund(ctx, owner, lamports)
	return acct, a.op.Observe(err)
}

// Balance returns the stake balance of owner, or of the wallet when owner is empty.
func (a *StarboardApp) Balance(ctx context.Context, rawOwner string) (uint64, error) {
	owner, err := a.ownerOrWallet(rawOwner)
	if err != nil {
		return 0, err
	}
	return a.client.Balance(ctx, owner)
}

func (a *StarboardApp) ownerOrWallet(raw string) (starboard.Address, error) {
	if raw != "" {
		return parseAddress("owner", raw)
	}
	w, err := a.wallet()
	if err != nil {
		return starboard.Address{}, err
	}
	return w.Key(), nil
}

// FeedReport is a feed together with the rounds created for it.
type FeedReport struct {
	Address starboard.Address
	Feed    *starboard.Feed
	Rounds  []starboard.RoundEntry
}

// ShowFeed reads a feed and its rounds.
func (a *StarboardApp) ShowFeed(ctx context.Context, rawFeed string) (*FeedReport, error) {
	addr, err := parseAddress("feed", rawFeed)
	if err != nil {
		return nil, err
	}
	feed, err := a.program.Feed(ctx, addr)
	if err != nil {
		return nil, err
	}
	rounds, err := a.program.Rounds(ctx, addr)
	if err != nil {
		return nil, err
	}
	return &FeedReport{Address: addr, Feed: feed, Rounds: rounds}, nil
}

// History returns the most recent executed instructions.
func (a *StarboardApp) History(ctx context.Context, limit int) ([]*starboard.InstructionRecord, error) {
	return a.program.History(ctx, limit)
}

// RunBatch submits the instructions of the batch file at path. Instructions
// without a signer are signed by the wallet.
func (a *StarboardApp) RunBatch(ctx context.Context, path string) ([]client.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening batch file: %w", err)
	}
	defer f.Close()

	instructions, err := client.ReadBatch(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	// A batch whose every instruction names its signer needs no wallet.
	w := a.signer
	if w == nil {
		w = starboard.WalletSigner(starboard.Address{})
		for i, ins := range instructions {
			if ins.Signer == "" {
				return nil, fmt.Errorf("instruction %d has no signer and no wallet is configured", i)
			}
		}
	}

	results, err := a.client.Batch(ctx, w, instructions)
	if err != nil {
		return results, a.op.Observe(err)
	}
	for _, r := range results {
		a.op.Observe(r.Err)
	}
	return results, nil
}

// Snapshot writes a consistent copy of the SQLite ledger to dest.
func (a *StarboardApp) Snapshot(dest string) error {
	sq, ok := a.store.(*store.SQLiteStore)
	if !ok {
		return fmt.Errorf("store type %q cannot be snapshotted", a.cfg.Store.Type)
	}
	return a.op.Observe(sq.BackupTo(dest))
}

// Schema returns the SQL schema of the SQLite ledger.
func (a *StarboardApp) Schema(ctx context.Context) (string, error) {
	sq, ok := a.store.(*store.SQLiteStore)
	if !ok {
		return "", fmt.Errorf("store type %q has no schema", a.cfg.Store.Type)
	}
	return sq.Schema(ctx)
}

// Close logs the outcome of the operation and closes the store and log file.
func (a *StarboardApp) Close() error {
	a.logger.Debug("command finished",
		"command", a.op.Command,
		"status", a.op.Status,
		"elapsed", time.Since(a.op.StartedAt).Truncate(time.Millisecond),
	)

	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}
	return firstErr
}

func parseAddress(name, raw string) (starboard.Address, error) {
	addr, err := starboard.ParseAddress(raw)
	if err != nil {
		return starboard.Address{}, fmt.Errorf("%s: %w", name, err)
	}
	return addr, nil
}

package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"starboard/internal/app"
	"starboard/internal/config"
	"starboard/internal/starboard"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a StarboardApp. The caller must defer a.Close().
// command identifies the CLI command being run (e.g. "feed init", "stake").
func newApp(cmd *cobra.Command, command string) (*app.StarboardApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewStarboardApp(cfg, command)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	if as, _ := cmd.Flags().GetString("as"); as != "" {
		if err := a.SetSigner(as); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func parseNum(raw string) (int, error) {
	num, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("round number %q: %w", raw, err)
	}
	return num, nil
}

var rootCmd = &cobra.Command{
	Use:          "starboard",
	Short:        "Staking ledger for price-feed rounds",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		ledgerID := uuid.New().String()
		cfg := config.NewConfig(ledgerID, defaults.BaseDir)
		if wallet, _ := cmd.Flags().GetString("wallet"); wallet != "" {
			if _, err := starboard.ParseAddress(wallet); err != nil {
				return fmt.Errorf("wallet: %w", err)
			}
			cfg.Wallet.Address = wallet
		}

		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Ledger ID: %s\n", ledgerID)
		fmt.Printf("Base Dir:  %s\n", defaults.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		params, err := app.ProgramParams(cfg.Program)
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Ledger ID:    %s\n", cfg.LedgerID)
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Store:        %s %s\n", cfg.Store.Type, cfg.Store.DataDir)
		fmt.Printf("Wallet:       %s\n", cfg.Wallet.Address)
		fmt.Printf("Program:      %s\n", params.ProgramID)
		fmt.Printf("Stake:        %d of %s\n", params.StakeAmount, params.StakeMint)
		return nil
	},
}

// ledger command
var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Manage the ledger store",
}

var ledgerInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or upgrade the ledger schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("getting defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults.ConfigPath)
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}

		path, err := app.InitLedger(cfg)
		if err != nil {
			return err
		}
		fmt.Printf("Ledger ready at %s\n", path)
		return nil
	},
}

var ledgerSnapshotCmd = &cobra.Command{
	Use:   "snapshot DEST",
	Short: "Write a consistent copy of the ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ledger snapshot")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Snapshot(args[0]); err != nil {
			return err
		}
		fmt.Printf("Snapshot written to %s\n", args[0])
		return nil
	},
}

var ledgerSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the ledger SQL schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ledger schema")
		if err != nil {
			return err
		}
		defer a.Close()

		schema, err := a.Schema(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Print(schema)
		return nil
	},
}

// feed command
var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Manage feeds",
}

var feedInitCmd = &cobra.Command{
	Use:   "init DESCRIPTION",
	Short: "Register a feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetUint32("interval")
		rounds, _ := cmd.Flags().GetInt("rounds")

		a, err := newApp(cmd, "feed init")
		if err != nil {
			return err
		}
		defer a.Close()

		feed, addrs, err := a.CreateFeed(cmd.Context(), args[0], interval, rounds)
		if err != nil {
			return err
		}

		fmt.Printf("Feed: %s\n", feed)
		for i, r := range addrs {
			fmt.Printf("Round %d: %s\n", i, r)
		}
		return nil
	},
}

var feedStartCmd = &cobra.Command{
	Use:   "start FEED",
	Short: "Start a feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "feed start")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.StartFeed(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Feed %s started\n", args[0])
		return nil
	},
}

var feedShowCmd = &cobra.Command{
	Use:   "show FEED",
	Short: "View a feed and its rounds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "feed show")
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.ShowFeed(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		f := report.Feed
		staking := "-"
		if f.HasStakingRound() {
			staking = f.StakingRound.String()
		}
		fmt.Printf("Feed:          %s\n", report.Address)
		fmt.Printf("Description:   %s\n", f.DescriptionString())
		fmt.Printf("Interval:      %ds\n", f.UpdateInterval)
		fmt.Printf("Authority:     %s\n", f.Authority)
		fmt.Printf("Started:       %t\n", f.Started)
		fmt.Printf("Height:        %d\n", f.Height)
		fmt.Printf("Staking round: %s\n", staking)

		for _, e := range report.Rounds {
			r := e.Round
			start := "-"
			if r.Stage == starboard.StageStaking {
				start = time.Unix(r.StakingStart, 0).UTC().Format("2006-01-02 15:04:05")
			}
			fmt.Printf("  #%d  %s  %-8s  height:%d  stakers:%d  since:%s\n",
				r.Num, e.Address, r.Stage, r.RoundHeight, r.NumStakers, start)
		}
		return nil
	},
}

// round command
var roundCmd = &cobra.Command{
	Use:   "round",
	Short: "Manage rounds",
}

var roundInitCmd = &cobra.Command{
	Use:   "init FEED NUM",
	Short: "Initialize a round of a feed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		num, err := parseNum(args[1])
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "round init")
		if err != nil {
			return err
		}
		defer a.Close()

		round, err := a.InitRound(cmd.Context(), args[0], num)
		if err != nil {
			return err
		}
		fmt.Printf("Round %d: %s\n", num, round)
		return nil
	},
}

// staking command
var stakingCmd = &cobra.Command{
	Use:   "staking",
	Short: "Manage staking windows",
}

var stakingStartCmd = &cobra.Command{
	Use:   "start FEED NUM",
	Short: "Open a round for staking",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		num, err := parseNum(args[1])
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "staking start")
		if err != nil {
			return err
		}
		defer a.Close()

		round, err := a.StartStaking(cmd.Context(), args[0], num)
		if err != nil {
			return err
		}
		fmt.Printf("Staking open on round %d: %s\n", num, round)
		return nil
	},
}

// stake command
var stakeCmd = &cobra.Command{
	Use:   "stake FEED",
	Short: "Stake into the feed's active round",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "stake")
		if err != nil {
			return err
		}
		defer a.Close()

		receipt, err := a.Stake(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Staked %d\n", receipt.Amount)
		fmt.Printf("Escrow:   %s\n", receipt.Escrow)
		fmt.Printf("Vault:    %s\n", receipt.Vault)
		fmt.Printf("Deposits: %d\n", receipt.Deposits)
		return nil
	},
}

// wallet command
var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage stake balances",
}

var walletFundCmd = &cobra.Command{
	Use:   "fund AMOUNT",
	Short: "Credit lamports to a wrapped-native stake account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("amount %q: %w", args[0], err)
		}
		owner, _ := cmd.Flags().GetString("owner")

		a, err := newApp(cmd, "wallet fund")
		if err != nil {
			return err
		}
		defer a.Close()

		acct, err := a.Fund(cmd.Context(), owner, amount)
		if err != nil {
			return err
		}
		fmt.Printf("Funded %s with %d\n", acct, amount)
		return nil
	},
}

var walletBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "View a stake balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetString("owner")

		a, err := newApp(cmd, "wallet balance")
		if err != nil {
			return err
		}
		defer a.Close()

		balance, err := a.Balance(cmd.Context(), owner)
		if err != nil {
			return err
		}
		fmt.Println(balance)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View executed instructions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "history")
		if err != nil {
			return err
		}
		defer a.Close()

		recs, err := a.History(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if len(recs) == 0 {
			fmt.Println("No instructions recorded.")
			return nil
		}

		for _, r := range recs {
			d := r.FinishedAt.Sub(r.StartedAt).Truncate(time.Millisecond)
			line := fmt.Sprintf("#%d  %-13s  %s  %-7s  %s  %s",
				r.ID,
				r.Instruction,
				r.StartedAt.Format("2006-01-02 15:04:05"),
				r.Status,
				d,
				r.Signer,
			)
			if r.Status == starboard.StatusError {
				line += fmt.Sprintf("  [%d] %s", r.ErrorCode, r.Error)
			}
			fmt.Println(line)
		}
		return nil
	},
}

// batch command
var batchCmd = &cobra.Command{
	Use:   "batch FILE",
	Short: "Submit the instructions of a TOML batch file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "batch")
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.RunBatch(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
				fmt.Printf("%3d  %-13s  FAILED  %v\n", r.Index, r.Kind, r.Err)
				continue
			}
			fmt.Printf("%3d  %-13s  ok      %s\n", r.Index, r.Kind, r.Address)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d instructions failed", failed, len(results))
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("as", "", "Sign as this base58 wallet address instead of the configured wallet (signatures are not checked locally)")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configInitCmd.Flags().String("wallet", "", "Base58 wallet address to sign instructions as")

	// ledger subcommands
	ledgerCmd.AddCommand(ledgerInitCmd)
	ledgerCmd.AddCommand(ledgerSnapshotCmd)
	ledgerCmd.AddCommand(ledgerSchemaCmd)

	// feed subcommands
	feedCmd.AddCommand(feedInitCmd)
	feedCmd.AddCommand(feedStartCmd)
	feedCmd.AddCommand(feedShowCmd)
	feedInitCmd.Flags().Uint32P("interval", "i", 60, "Staking window length in seconds")
	feedInitCmd.Flags().IntP("rounds", "r", starboard.MaxRounds, "Number of rounds to initialize")

	roundCmd.AddCommand(roundInitCmd)
	stakingCmd.AddCommand(stakingStartCmd)

	// wallet subcommands
	walletCmd.AddCommand(walletFundCmd)
	walletCmd.AddCommand(walletBalanceCmd)
	walletFundCmd.Flags().String("owner", "", "Fund this owner instead of the wallet")
	walletBalanceCmd.Flags().String("owner", "", "Show this owner's balance instead of the wallet's")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(roundCmd)
	rootCmd.AddCommand(stakingCmd)
	rootCmd.AddCommand(stakeCmd)
	rootCmd.AddCommand(walletCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of instructions to show")
	rootCmd.AddCommand(batchCmd)
}

package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for starboard.
type Config struct {
	LedgerID string        `toml:"ledger_id"`
	BaseDir  string        `toml:"base_dir"`
	LogDir   string        `toml:"log_dir"`
	Wallet   WalletConfig  `toml:"wallet"`
	Program  ProgramConfig `toml:"program"`
	Store    StoreConfig   `toml:"store"`
	Submit   SubmitConfig  `toml:"submit"`
	Retry    RetryConfig   `toml:"retry"`
}

// WalletConfig names the address instructions are signed as.
// Signing itself happens outside starboard.
type WalletConfig struct {
	Address string `toml:"address"` // base58
}

// ProgramConfig holds the deployment parameters of the program.
// Empty fields fall back to the program defaults.
type ProgramConfig struct {
	ProgramID   string `toml:"program_id,omitempty"`
	StakeAmount uint64 `toml:"stake_amount,omitempty"`
	StakeMint   string `toml:"stake_mint,omitempty"`
}

// StoreConfig represents configuration for the account store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StoreConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// SubmitConfig sizes the worker pool used by batch submission.
type SubmitConfig struct {
	Workers   int `toml:"workers"`    // must be positive, defaults to 4
	QueueSize int `toml:"queue_size"` // 0 means unbounded
}

// RetryConfig controls client-side resubmission after a concurrency conflict.
type RetryConfig struct {
	MaxRetries     int `toml:"max_retries"`
	InitialDelayMS int `toml:"initial_delay_ms"`
}

// NewConfig creates a new Config for ledgerID rooted at baseDir, storing the
// ledger in SQLite under baseDir/ledger.
func NewConfig(ledgerID, baseDir string) *Config {
	return &Config{
		LedgerID: ledgerID,
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		Store: StoreConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "ledger"),
		},
		Submit: SubmitConfig{Workers: 4},
		Retry:  RetryConfig{MaxRetries: 5, InitialDelayMS: 50},
	}
}

// Validate checks that required fields are present and sane.
func (c *Config) Validate() error {
	if c.LedgerID == "" {
		return fmt.Errorf("ledger_id is required")
	}
	if c.Submit.Workers < 0 {
		return fmt.Errorf("submit.workers must not be negative, got %d", c.Submit.Workers)
	}
	if c.Submit.QueueSize < 0 {
		return fmt.Errorf("submit.queue_size must not be negative, got %d", c.Submit.QueueSize)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative, got %d", c.Retry.MaxRetries)
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to a new config file at path. It refuses to overwrite.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

// Save overwrites the config file at path.
func Save(path string, cfg *Config) error {
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}

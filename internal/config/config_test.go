package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_Read(t *testing.T) {
	input := `
ledger_id = "5f0c2a6e-8d7b-4c1e-9a3f-2b4d6e8f0a1c"
base_dir = "/home/user/.local/share/starboard"
log_dir = "/home/user/.local/share/starboard/log"

[wallet]
address = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"

[program]
stake_amount = 2500000

[store]
type = "sqlite"
data_dir = "/home/user/.local/share/starboard/ledger"

[submit]
workers = 8
queue_size = 64

[retry]
max_retries = 3
initial_delay_ms = 20
`
	m := &Manager{}
	got, err := m.Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.LedgerID != "5f0c2a6e-8d7b-4c1e-9a3f-2b4d6e8f0a1c" {
		t.Errorf("LedgerID = %q", got.LedgerID)
	}
	if got.Wallet.Address != "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T" {
		t.Errorf("Wallet.Address = %q", got.Wallet.Address)
	}
	if got.Program.StakeAmount != 2_500_000 {
		t.Errorf("Program.StakeAmount = %d, want 2500000", got.Program.StakeAmount)
	}
	if got.Program.ProgramID != "" {
		t.Errorf("Program.ProgramID = %q, want empty", got.Program.ProgramID)
	}
	if got.Store.Type != "sqlite" || got.Store.DataDir != "/home/user/.local/share/starboard/ledger" {
		t.Errorf("Store = %+v", got.Store)
	}
	if got.Submit.Workers != 8 || got.Submit.QueueSize != 64 {
		t.Errorf("Submit = %+v", got.Submit)
	}
	if got.Retry.MaxRetries != 3 || got.Retry.InitialDelayMS != 20 {
		t.Errorf("Retry = %+v", got.Retry)
	}
}

func TestManager_Read_InvalidTOML(t *testing.T) {
	m := &Manager{}
	if _, err := m.Read(strings.NewReader("ledger_id = ")); err == nil {
		t.Fatal("Read() expected error for malformed input")
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("ledger-1", "/data/starboard")

	if cfg.LedgerID != "ledger-1" {
		t.Errorf("LedgerID = %q, want %q", cfg.LedgerID, "ledger-1")
	}
	if cfg.LogDir != "/data/starboard/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/starboard/log")
	}
	if cfg.Store.Type != "sqlite" {
		t.Errorf("Store.Type = %q, want sqlite", cfg.Store.Type)
	}
	if cfg.Store.DataDir != "/data/starboard/ledger" {
		t.Errorf("Store.DataDir = %q, want %q", cfg.Store.DataDir, "/data/starboard/ledger")
	}
	if cfg.Submit.Workers != 4 {
		t.Errorf("Submit.Workers = %d, want 4", cfg.Submit.Workers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on new config = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"missing ledger id", func(c *Config) { c.LedgerID = "" }},
		{"negative workers", func(c *Config) { c.Submit.Workers = -1 }},
		{"negative queue size", func(c *Config) { c.Submit.QueueSize = -5 }},
		{"negative retries", func(c *Config) { c.Retry.MaxRetries = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("ledger-1", t.TempDir())
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() expected error")
			}
		})
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "nested", "starboard.toml")

		if err := Init(path, NewConfig("l1", dir)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "starboard.toml")
		cfg := NewConfig("l1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}
		if err := Init(path, cfg); err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestSaveAndReadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "starboard.toml")
	cfg := NewConfig("read-test", dir)
	cfg.Store = StoreConfig{Type: "memory"}

	if err := Init(path, cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	cfg.Wallet.Address = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := ReadFromFile(path)
	if err != nil {
		t.Fatalf("ReadFromFile() error = %v", err)
	}
	if got.LedgerID != "read-test" {
		t.Errorf("LedgerID = %q, want %q", got.LedgerID, "read-test")
	}
	if got.Store.Type != "memory" {
		t.Errorf("Store.Type = %q, want memory", got.Store.Type)
	}
	if got.Wallet.Address != cfg.Wallet.Address {
		t.Errorf("Wallet.Address = %q, want %q", got.Wallet.Address, cfg.Wallet.Address)
	}
}

func TestReadFromFile_Missing(t *testing.T) {
	if _, err := ReadFromFile("/nonexistent/path/starboard.toml"); err == nil {
		t.Fatal("ReadFromFile() expected error for missing file")
	}
}

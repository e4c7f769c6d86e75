package store

import (
	"os"
	"path/filepath"
	"testing"

	"starboard/internal/config"
)

func TestNewStoreFromConfig(t *testing.T) {
	t.Run("memory store", func(t *testing.T) {
		got, err := NewStoreFromConfig(config.StoreConfig{Type: "memory"}, "ledger-1")
		if err != nil {
			t.Fatalf("NewStoreFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		if _, ok := got.(*MemoryStore); !ok {
			t.Errorf("NewStoreFromConfig() = %T, want *MemoryStore", got)
		}
	})

	t.Run("sqlite store", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "ledger")
		got, err := NewStoreFromConfig(config.StoreConfig{Type: "sqlite", DataDir: dir}, "ledger-1")
		if err != nil {
			t.Fatalf("NewStoreFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		s, ok := got.(*SQLiteStore)
		if !ok {
			t.Fatalf("NewStoreFromConfig() = %T, want *SQLiteStore", got)
		}
		if want := filepath.Join(dir, "ledger-1.db"); s.Path() != want {
			t.Errorf("Path() = %q, want %q", s.Path(), want)
		}
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("data_dir not created: %v", err)
		}
	})

	t.Run("sqlite store without data_dir", func(t *testing.T) {
		got, err := NewStoreFromConfig(config.StoreConfig{Type: "sqlite"}, "ledger-1")
		if err == nil {
			t.Error("NewStoreFromConfig() expected error for missing data_dir, got nil")
		}
		if got != nil {
			t.Error("NewStoreFromConfig() should return nil on error")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, err := NewStoreFromConfig(config.StoreConfig{Type: "postgres"}, "ledger-1"); err == nil {
			t.Error("NewStoreFromConfig() expected error for unknown type, got nil")
		}
	})
}

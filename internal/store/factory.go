package store

import (
	"fmt"
	"os"
	"path/filepath"

	"starboard/internal/config"
	"starboard/internal/starboard"
)

// NewStoreFromConfig creates a Store implementation based on the store config type.
// A sqlite ledger lives at <data_dir>/<ledgerID>.db.
func NewStoreFromConfig(cfg config.StoreConfig, ledgerID string) (starboard.Store, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite store")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data_dir: %w", err)
		}
		s, err := NewSQLiteStore(filepath.Join(cfg.DataDir, ledgerID+".db"))
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}

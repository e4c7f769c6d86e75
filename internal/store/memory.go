package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"starboard/internal/starboard"
)

var errReadOnly = errors.New("write in read-only transaction")

// MemoryStore is an in-memory implementation of starboard.Store.
// Writers are serialized; each Update buffers its writes and applies them
// only when fn succeeds. This implementation is safe for concurrent use.
type MemoryStore struct {
	accounts     map[starboard.Address]*starboard.Account
	instructions []*starboard.InstructionRecord
	mu           sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[starboard.Address]*starboard.Account),
	}
}

// Update runs fn against a write buffer and commits the buffer if fn succeeds.
func (m *MemoryStore) Update(ctx context.Context, fn func(tx starboard.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{store: m, writes: make(map[starboard.Address]*starboard.Account)}
	if err := fn(tx); err != nil {
		return err
	}
	for addr, acct := range tx.writes {
		m.accounts[addr] = acct
	}
	return nil
}

// View runs fn with read-only access.
func (m *MemoryStore) View(ctx context.Context, fn func(tx starboard.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return fn(&memoryTx{store: m, readOnly: true})
}

// RecordInstruction appends rec to the instruction log and assigns its ID.
func (m *MemoryStore) RecordInstruction(ctx context.Context, rec *starboard.InstructionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.ID = int64(len(m.instructions)) + 1
	cp := *rec
	m.instructions = append(m.instructions, &cp)
	return nil
}

// ListInstructions returns up to limit records, newest first.
func (m *MemoryStore) ListInstructions(ctx context.Context, limit int) ([]*starboard.InstructionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*starboard.InstructionRecord
	for i := len(m.instructions) - 1; i >= 0 && (limit <= 0 || len(result) < limit); i-- {
		cp := *m.instructions[i]
		result = append(result, &cp)
	}
	return result, nil
}

// Len returns the number of accounts in the store.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts)
}

// Close always succeeds for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}

type memoryTx struct {
	store    *MemoryStore
	writes   map[starboard.Address]*starboard.Account
	readOnly bool
}

func (tx *memoryTx) Get(addr starboard.Address) (*starboard.Account, error) {
	if acct, ok := tx.writes[addr]; ok {
		return copyAccount(acct), nil
	}
	if acct, ok := tx.store.accounts[addr]; ok {
		return copyAccount(acct), nil
	}
	return nil, nil
}

func (tx *memoryTx) Create(acct *starboard.Account) error {
	if tx.readOnly {
		return errReadOnly
	}
	existing, _ := tx.Get(acct.Address)
	if existing != nil {
		return fmt.Errorf("%w: %s", starboard.ErrAlreadyExists, acct.Address)
	}
	tx.writes[acct.Address] = copyAccount(acct)
	return nil
}

func (tx *memoryTx) Put(acct *starboard.Account) error {
	if tx.readOnly {
		return errReadOnly
	}
	existing, _ := tx.Get(acct.Address)
	if existing == nil {
		return fmt.Errorf("%w: %s", starboard.ErrNotFound, acct.Address)
	}
	tx.writes[acct.Address] = copyAccount(acct)
	return nil
}

func copyAccount(acct *starboard.Account) *starboard.Account {
	return &starboard.Account{
		Address: acct.Address,
		Owner:   acct.Owner,
		Data:    append([]byte(nil), acct.Data...),
	}
}

var _ starboard.Store = (*MemoryStore)(nil)

package starboard

import (
	"context"
	"time"
)

// Tx is the view of the account space inside one atomic instruction.
// Writes become visible to other transactions only when the enclosing
// Store.Update returns nil.
type Tx interface {
	// Get returns the account at addr, or nil if it was never created.
	Get(addr Address) (*Account, error)

	// Create inserts a new account. It fails with ErrAlreadyExists if the
	// address is occupied: the first creator wins.
	Create(acct *Account) error

	// Put overwrites an existing account. It fails with ErrNotFound if the
	// address was never created.
	Put(acct *Account) error
}

// Store persists the account space and the instruction log.
type Store interface {
	// Update runs fn in a serializable read-write transaction. If fn returns
	// an error, none of its writes are applied.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(tx Tx) error) error

	// RecordInstruction appends an executed instruction to the log and sets rec.ID.
	RecordInstruction(ctx context.Context, rec *InstructionRecord) error

	// ListInstructions returns the most recent instructions, newest first.
	ListInstructions(ctx context.Context, limit int) ([]*InstructionRecord, error)

	// Close releases the store's resources.
	Close() error
}

// Instruction statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// InstructionRecord is one entry of the instruction log.
type InstructionRecord struct {
	ID          int64
	Instruction string
	Signer      Address
	Parameters  string
	StartedAt   time.Time
	FinishedAt  time.Time
	Status      string
	ErrorCode   uint32
	Error       string
}

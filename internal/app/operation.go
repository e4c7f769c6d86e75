package app

import (
	"time"

	"github.com/google/uuid"
)

// Operation statuses.
const (
	OperationSuccess = "success"
	OperationError   = "error"
)

// Operation tracks one CLI invocation. Its ID tags every log line the
// invocation writes, so the instructions of one command can be grepped together.
type Operation struct {
	ID        string
	Command   string
	StartedAt time.Time
	Status    string
}

// NewOperation starts tracking command.
func NewOperation(command string, now time.Time) *Operation {
	return &Operation{
		ID:        uuid.NewString(),
		Command:   command,
		StartedAt: now,
		Status:    OperationSuccess,
	}
}

// Observe marks the operation failed if err is non-nil and returns err.
func (op *Operation) Observe(err error) error {
	if err != nil {
		op.Status = OperationError
	}
	return err
}

// Failed reports whether any observed step failed.
func (op *Operation) Failed() bool {
	return op.Status == OperationError
}

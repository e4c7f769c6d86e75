package app

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewOperation(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	op := NewOperation("stake", now)

	if op.Command != "stake" {
		t.Errorf("Command = %q, want %q", op.Command, "stake")
	}
	if !op.StartedAt.Equal(now) {
		t.Errorf("StartedAt = %v, want %v", op.StartedAt, now)
	}
	if op.Status != OperationSuccess {
		t.Errorf("Status = %q, want %q", op.Status, OperationSuccess)
	}
	if _, err := uuid.Parse(op.ID); err != nil {
		t.Errorf("ID %q is not a uuid: %v", op.ID, err)
	}
	if other := NewOperation("stake", now); other.ID == op.ID {
		t.Error("two operations share an ID")
	}
}

func TestOperation_Observe(t *testing.T) {
	tests := []struct {
		name       string
		errs       []error
		wantFailed bool
	}{
		{name: "no steps", wantFailed: false},
		{name: "all succeed", errs: []error{nil, nil}, wantFailed: false},
		{name: "one fails", errs: []error{nil, errors.New("boom"), nil}, wantFailed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation("batch", time.Now())
			for _, err := range tt.errs {
				if got := op.Observe(err); got != err {
					t.Errorf("Observe(%v) = %v", err, got)
				}
			}
			if op.Failed() != tt.wantFailed {
				t.Errorf("Failed() = %v, want %v", op.Failed(), tt.wantFailed)
			}
		})
	}
}

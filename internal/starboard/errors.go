package starboard

import (
	"errors"
	"fmt"
)

// ErrorCode is the numeric code reported for a failed instruction.
type ErrorCode uint32

// Codes start at 6000 so they never overlap the token program's own codes.
const (
	CodeAlreadyExists ErrorCode = 6000 + iota
	CodeNotFound
	CodeRelationshipMismatch
	CodeConcurrencyConflict
	CodeRoundNotActive
	CodeInsufficientFunds
	CodeDerivationExhausted
	CodeUnauthorized
	CodeInvalidSigner
	CodeInvalidSeeds
	CodeNoRounds
	CodeFeedStarted
	CodeRoundNotReady
	CodeStakingInProgress
	CodeInvalidRoundNumber
	CodeAccountOwnedByWrongProgram
	CodeAccountDidNotDeserialize
	CodeMintMismatch
	CodeInvalidUpdateInterval
)

// ProgramError is a distinguishable instruction failure. The package-level
// Err* values are the only instances; match them with errors.Is.
type ProgramError struct {
	Code ErrorCode
	Name string
	Msg  string
}

func (e *ProgramError) Error() string {
	return e.Msg
}

func newProgramError(code ErrorCode, name, msg string) *ProgramError {
	return &ProgramError{Code: code, Name: name, Msg: msg}
}

var (
	ErrAlreadyExists        = newProgramError(CodeAlreadyExists, "AlreadyExists", "account already in use")
	ErrNotFound             = newProgramError(CodeNotFound, "NotFound", "account not initialized")
	ErrRelationshipMismatch = newProgramError(CodeRelationshipMismatch, "RelationshipMismatch", "round does not belong to feed")
	ErrConcurrencyConflict  = newProgramError(CodeConcurrencyConflict, "ConcurrencyConflict", "staking round changed since it was read")
	ErrRoundNotActive       = newProgramError(CodeRoundNotActive, "RoundNotActive", "round not active for staking")
	ErrInsufficientFunds    = newProgramError(CodeInsufficientFunds, "InsufficientFunds", "insufficient funds")
	ErrDerivationExhausted  = newProgramError(CodeDerivationExhausted, "DerivationExhausted", "unable to find a viable program address bump seed")
	ErrUnauthorized         = newProgramError(CodeUnauthorized, "Unauthorized", "signer is not the account authority")
	ErrInvalidSigner        = newProgramError(CodeInvalidSigner, "InvalidSigner", "signer proof does not match the claimed address")
	ErrInvalidSeeds         = newProgramError(CodeInvalidSeeds, "InvalidSeeds", "provided seeds do not result in a valid address")
	ErrNoRounds             = newProgramError(CodeNoRounds, "NoRounds", "no rounds initialized for the feed")
	ErrFeedStarted          = newProgramError(CodeFeedStarted, "FeedStarted", "feed already started")
	ErrRoundNotReady        = newProgramError(CodeRoundNotReady, "RoundNotReady", "round not ready to change state")
	ErrStakingInProgress    = newProgramError(CodeStakingInProgress, "StakingInProgress", "staking for this feed already in progress")
	ErrInvalidRoundNumber   = newProgramError(CodeInvalidRoundNumber, "InvalidRoundNumber", "invalid round number")
	ErrWrongOwner           = newProgramError(CodeAccountOwnedByWrongProgram, "AccountOwnedByWrongProgram", "account owned by a different program")
	ErrDidNotDeserialize    = newProgramError(CodeAccountDidNotDeserialize, "AccountDidNotDeserialize", "failed to deserialize the account")
	ErrMintMismatch         = newProgramError(CodeMintMismatch, "MintMismatch", "token accounts have different mints")

	ErrInvalidUpdateInterval = newProgramError(CodeInvalidUpdateInterval, "InvalidUpdateInterval", "update interval must be at least one second")
)

// CodeOf returns the code of the first ProgramError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var perr *ProgramError
	if errors.As(err, &perr) {
		return perr.Code, true
	}
	return 0, false
}

// accountError annotates a ProgramError with the address it concerns.
func accountError(err *ProgramError, what string, addr Address) error {
	return fmt.Errorf("%w: %s %s", err, what, addr)
}

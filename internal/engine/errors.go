package engine

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindNotYourTurn        ErrorKind = "not_your_turn"
	KindAlreadyConsumed    ErrorKind = "already_consumed"
	KindFearlessExcluded   ErrorKind = "fearless_excluded"
	KindSeriesNotActive    ErrorKind = "series_not_active"
	KindInvalidItem        ErrorKind = "invalid_item"
	KindSwapNotAllowed     ErrorKind = "swap_not_allowed"
	KindNoPendingSwap      ErrorKind = "no_pending_swap"
	KindSwapPending        ErrorKind = "swap_pending"
	KindNotParticipant     ErrorKind = "not_participant"
	KindAlreadyStarted     ErrorKind = "already_started"
	KindUnsupportedCommand ErrorKind = "unsupported_command"
)

// DraftError is a rejected command. The state it was applied to is unchanged
// and the caller may retry with a different command.
type DraftError struct {
	Kind    ErrorKind
	Message string
}

func (e *DraftError) Error() string { return e.Message }

var (
	ErrNotYourTurn        = &DraftError{Kind: KindNotYourTurn, Message: "not your turn"}
	ErrAlreadyConsumed    = &DraftError{Kind: KindAlreadyConsumed, Message: "already banned or picked this game"}
	ErrFearlessExcluded   = &DraftError{Kind: KindFearlessExcluded, Message: "already used earlier in this fearless series"}
	ErrSeriesNotActive    = &DraftError{Kind: KindSeriesNotActive, Message: "series is not in progress"}
	ErrInvalidItem        = &DraftError{Kind: KindInvalidItem, Message: "invalid item"}
	ErrSwapNotAllowed     = &DraftError{Kind: KindSwapNotAllowed, Message: "swap not allowed"}
	ErrNoPendingSwap      = &DraftError{Kind: KindNoPendingSwap, Message: "no pending swap request"}
	ErrSwapPending        = &DraftError{Kind: KindSwapPending, Message: "a swap request is pending"}
	ErrNotParticipant     = &DraftError{Kind: KindNotParticipant, Message: "not a participant of this series"}
	ErrAlreadyStarted     = &DraftError{Kind: KindAlreadyStarted, Message: "series already started"}
	ErrUnsupportedCommand = &DraftError{Kind: KindUnsupportedCommand, Message: "unsupported command"}
)

// KindOf returns the kind of a rejected command, or "" if err is not a DraftError.
func KindOf(err error) ErrorKind {
	var de *DraftError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// CorruptionError reports broken invariants. A series in this state cannot
// be repaired and must be discarded.
type CorruptionError struct {
	Violations error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("series state corrupted: %v", e.Violations)
}

func (e *CorruptionError) Unwrap() error { return e.Violations }

func IsCorruption(err error) bool {
	var ce *CorruptionError
	return errors.As(err, &ce)
}

package approval

import "errors"

var (
	// ErrInvalidTransition is returned when an action is not permitted from the current status
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when every guard for an action fails
	ErrGuardFailed = errors.New("guard condition failed")

	// ErrUnknownAction is returned when an action is not a requestable workflow action
	ErrUnknownAction = errors.New("unknown action")
)

package tello

import "errors"

var (
	// ErrUnknownCommand is returned by ParseCommand for text outside the
	// drone command set.
	ErrUnknownCommand = errors.New("unknown drone command")

	// ErrBadArgument is returned by ParseCommand when a known command has a
	// missing, extra or out-of-range argument.
	ErrBadArgument = errors.New("bad drone command argument")

	// ErrEmptyCommand is returned by Execute for the zero Command.
	ErrEmptyCommand = errors.New("empty drone command")

	// ErrSequenceComplete is returned by Sequencer.Step when every
	// connection step has already been issued.
	ErrSequenceComplete = errors.New("connection sequence already complete")

	// ErrInvalidState is returned when a ConnectionState marks a step as
	// issued while an earlier one is not.
	ErrInvalidState = errors.New("connection state skips a step")
)

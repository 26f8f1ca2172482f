package modem

import "errors"

var (
	// ErrNoDialer is returned when a Link is opened without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// establish a connection to the modem.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotInitialized is returned when an operation is attempted on a Link
	// that has no transport.
	//
	// This can occur if the Dialer returned a nil Transport or if the Link
	// was not created via Open or NewLink.
	ErrNotInitialized = errors.New("modem not initialized")

	// ErrAlreadyClosed is returned when Close is called on a Link that has
	// already been closed, and by reads and writes after Close.
	ErrAlreadyClosed = errors.New("modem already closed")

	// ErrInvalidBufferSize is returned by the config builder when a transmit
	// or receive buffer size is not positive.
	ErrInvalidBufferSize = errors.New("buffer size must be positive")
)

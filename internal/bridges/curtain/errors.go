package curtain

import "errors"

// Domain errors for the curtain bridge package.
var (
	// ErrNotConnected is returned when an operation requires a connection
	// but the coordinator is not connected to the hub.
	ErrNotConnected = errors.New("curtain: not connected to hub")

	// ErrConnectionFailed is returned when the connection to the hub fails.
	ErrConnectionFailed = errors.New("curtain: connection to hub failed")

	// ErrInvalidAddress is returned when a device address string cannot
	// be parsed.
	ErrInvalidAddress = errors.New("curtain: invalid device address")

	// ErrInvalidFrame is returned when a frame is malformed (wrong length
	// or missing marker).
	ErrInvalidFrame = errors.New("curtain: invalid frame")

	// ErrCRCMismatch is returned when a frame's trailing CRC does not match
	// the computed CRC of its header bytes.
	ErrCRCMismatch = errors.New("curtain: frame CRC mismatch")

	// ErrInvalidPosition is returned when a commanded position is outside
	// the 0-100 percent range.
	ErrInvalidPosition = errors.New("curtain: position out of range")

	// ErrSendFailed is returned when writing a command frame to the hub fails.
	ErrSendFailed = errors.New("curtain: command send failed")

	// ErrClosed is returned when an operation is attempted on a coordinator
	// that has been shut down.
	ErrClosed = errors.New("curtain: coordinator closed")
)

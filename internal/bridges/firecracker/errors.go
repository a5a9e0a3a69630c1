package firecracker

import "errors"

// Domain errors for the firecracker bridge package.
var (
	// ErrInvalidHouse is returned when a house index or letter is outside A-P.
	ErrInvalidHouse = errors.New("firecracker: invalid house code")

	// ErrInvalidModule is returned when a module index or number is outside 1-16.
	ErrInvalidModule = errors.New("firecracker: invalid module code")

	// ErrTransportOpen is returned when the serial port cannot be opened.
	ErrTransportOpen = errors.New("firecracker: opening transport failed")

	// ErrTransportClose is returned when the serial port cannot be closed.
	// The session keeps the port so Close can be retried.
	ErrTransportClose = errors.New("firecracker: closing transport failed")

	// ErrTransportSetLines is returned when setting RTS/DTR fails mid-frame.
	// The frame is abandoned, not resumed.
	ErrTransportSetLines = errors.New("firecracker: setting control lines failed")

	// ErrNotOpen is returned by SendCommand when no port has been opened.
	ErrNotOpen = errors.New("firecracker: port not open")

	// ErrListPorts is returned when serial port enumeration fails.
	ErrListPorts = errors.New("firecracker: listing ports failed")

	// ErrUnknownDevice is returned when a device ID has no X10 address.
	ErrUnknownDevice = errors.New("firecracker: unknown device")

	// ErrInvalidCommand is returned for commands other than on and off.
	ErrInvalidCommand = errors.New("firecracker: invalid command")
)

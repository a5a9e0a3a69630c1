package device

import "errors"

var (
	// ErrDeviceNotFound means no device has the requested ID.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists means a device with the same ID is already stored.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDevice wraps field validation failures other than the
	// address.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidAddress means the house letter or unit number is outside
	// A-P / 1-16.
	ErrInvalidAddress = errors.New("device: invalid address")
)

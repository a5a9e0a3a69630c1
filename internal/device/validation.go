package device

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	maxIDLength   = 64
	maxNameLength = 100
	minUnit       = 1
	maxUnit       = 16
)

// ValidateDevice checks the device fields and normalises the house letter
// to upper case.
func ValidateDevice(d *Device) error {
	if d == nil {
		return fmt.Errorf("%w: device is nil", ErrInvalidDevice)
	}

	if d.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidDevice)
	}
	if len(d.ID) > maxIDLength {
		return fmt.Errorf("%w: id exceeds %d characters", ErrInvalidDevice, maxIDLength)
	}
	if strings.ContainsAny(d.ID, "/+# ") {
		return fmt.Errorf("%w: id %q contains characters not allowed in MQTT topics", ErrInvalidDevice, d.ID)
	}
	if utf8.RuneCountInString(d.Name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidDevice, maxNameLength)
	}

	house := strings.ToUpper(strings.TrimSpace(d.House))
	if len(house) != 1 || house[0] < 'A' || house[0] > 'P' {
		return fmt.Errorf("%w: house %q must be A-P", ErrInvalidAddress, d.House)
	}
	d.House = house

	if d.Unit < minUnit || d.Unit > maxUnit {
		return fmt.Errorf("%w: unit %d must be %d-%d", ErrInvalidAddress, d.Unit, minUnit, maxUnit)
	}

	return nil
}

// GenerateID returns a new random device ID.
func GenerateID() string {
	return "x10-" + uuid.NewString()[:8]
}

package device

import (
	"strconv"
	"time"
)

// Device is an X10 module reachable through the transmitter.
type Device struct {
	// ID is the stable identifier used in topics and API paths.
	ID string `json:"id"`

	// Name is a human-readable label.
	Name string `json:"name"`

	// House is the X10 house letter, "A" through "P".
	House string `json:"house"`

	// Unit is the X10 unit number, 1 through 16.
	Unit int `json:"unit"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Address returns the X10 address, e.g. "C5".
func (d *Device) Address() string {
	return d.House + strconv.Itoa(d.Unit)
}

// Copy returns a copy of the device. Device has no reference fields, so a
// value copy is deep.
func (d *Device) Copy() *Device {
	c := *d
	return &c
}

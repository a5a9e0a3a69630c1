package firecracker

import (
	"context"
	"fmt"
	"sort"
)

// PortInfo describes a serial port found on the host.
type PortInfo struct {
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer,omitempty"`
	IsUSB        bool   `json:"is_usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
}

// ListPorts returns the ports reported by en, sorted by name.
// It touches no session state.
func ListPorts(ctx context.Context, en Enumerator) ([]PortInfo, error) {
	if en == nil {
		return nil, fmt.Errorf("%w: no enumerator configured", ErrListPorts)
	}

	ports, err := en.ListPorts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListPorts, err)
	}

	sort.Slice(ports, func(i, j int) bool { return ports[i].Name < ports[j].Name })
	return ports, nil
}

package serialport

import (
	"context"
	"errors"
	"fmt"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/nerrad567/gray-logic-firecracker/internal/bridges/firecracker"
)

const dataBits = 8

// controlLines is the part of serial.Port the transmitter needs.
type controlLines interface {
	SetRTS(rts bool) error
	SetDTR(dtr bool) error
	Close() error
}

// Opener opens real serial ports. It implements firecracker.Opener.
type Opener struct{}

// Open opens name at baud, 8N1.
func (Opener) Open(ctx context.Context, name string, baud int) (firecracker.Port, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: dataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, describe(err)
	}
	return &Port{lines: p}, nil
}

// Port drives the control lines of an open serial port.
type Port struct {
	lines controlLines
}

// SetLines sets RTS then DTR.
func (p *Port) SetLines(_ context.Context, state firecracker.LineState) error {
	if err := p.lines.SetRTS(state.RTS); err != nil {
		return fmt.Errorf("set RTS: %w", describe(err))
	}
	if err := p.lines.SetDTR(state.DTR); err != nil {
		return fmt.Errorf("set DTR: %w", describe(err))
	}
	return nil
}

// Close closes the port.
func (p *Port) Close() error {
	if err := p.lines.Close(); err != nil {
		return describe(err)
	}
	return nil
}

// Enumerator lists the host's serial ports. It implements
// firecracker.Enumerator.
type Enumerator struct{}

// ListPorts returns every port the OS reports, with USB details when known.
func (Enumerator) ListPorts(ctx context.Context) ([]firecracker.PortInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, describe(err)
	}

	ports := make([]firecracker.PortInfo, 0, len(details))
	for _, d := range details {
		if d == nil {
			continue
		}
		ports = append(ports, portInfo(d))
	}
	return ports, nil
}

// portInfo converts enumerator details. The enumerator exposes the USB
// product string rather than a manufacturer, so that is what is reported.
func portInfo(d *enumerator.PortDetails) firecracker.PortInfo {
	return firecracker.PortInfo{
		Name:         d.Name,
		Manufacturer: d.Product,
		IsUSB:        d.IsUSB,
		VID:          d.VID,
		PID:          d.PID,
		SerialNumber: d.SerialNumber,
	}
}

// describe turns serial.PortError codes into readable errors while keeping
// the original error wrapped.
func describe(err error) error {
	code, ok := portErrorCode(err)
	if !ok {
		return err
	}

	switch code {
	case serial.PortNotFound:
		return fmt.Errorf("port not found: %w", err)
	case serial.PortBusy:
		return fmt.Errorf("port busy: %w", err)
	case serial.PermissionDenied:
		return fmt.Errorf("permission denied: %w", err)
	case serial.PortClosed:
		return fmt.Errorf("port closed: %w", err)
	default:
		return err
	}
}

// portErrorCode extracts the code from a serial.PortError returned either
// by value or by pointer.
func portErrorCode(err error) (serial.PortErrorCode, bool) {
	var byValue serial.PortError
	if errors.As(err, &byValue) {
		return byValue.Code(), true
	}
	var byPointer *serial.PortError
	if errors.As(err, &byPointer) && byPointer != nil {
		return byPointer.Code(), true
	}
	return 0, false
}

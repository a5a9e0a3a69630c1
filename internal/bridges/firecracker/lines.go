package firecracker

import (
	"context"
	"time"
)

// LineState is the level of the two modem control lines the transmitter
// is powered and clocked from.
type LineState struct {
	RTS bool
	DTR bool
}

// Line patterns. A 1 bit raises RTS, a 0 bit raises DTR, and raising both
// marks the bit boundary for the receiver.
var (
	lineOne  = LineState{RTS: true, DTR: false}
	lineZero = LineState{RTS: false, DTR: true}
	lineSync = LineState{RTS: true, DTR: true}
)

// lineForBit returns the control-line pattern that encodes b.
func lineForBit(b byte) LineState {
	if b != 0 {
		return lineOne
	}
	return lineZero
}

// Lines sets the control lines of an open port.
type Lines interface {
	SetLines(ctx context.Context, state LineState) error
}

// Port is an open serial connection to the transmitter.
type Port interface {
	Lines
	Close() error
}

// Opener opens a serial port by name at the given baud rate.
type Opener interface {
	Open(ctx context.Context, name string, baud int) (Port, error)
}

// Enumerator lists the serial ports present on the host.
type Enumerator interface {
	ListPorts(ctx context.Context) ([]PortInfo, error)
}

// Sleeper waits for d or until ctx is done, whichever is first.
// It is injectable so tests can run the engine on a fake clock.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper, backed by a timer.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

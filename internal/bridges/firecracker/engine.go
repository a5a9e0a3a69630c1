package firecracker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultBitInterval is how long each half of a bit is held on the lines.
const DefaultBitInterval = time.Millisecond

// EngineState is the phase of the transmission state machine.
type EngineState int32

const (
	// StateIdle means no frame is on the lines.
	StateIdle EngineState = iota

	// StateSendingBit means a data bit is being held on the lines.
	StateSendingBit

	// StateSynchronizing means the bit-boundary pulse is being held.
	StateSynchronizing

	// StateFailed means the last frame was abandoned after a line failure.
	StateFailed
)

// String returns the state name.
func (s EngineState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSendingBit:
		return "sending_bit"
	case StateSynchronizing:
		return "synchronizing"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// EngineStats holds transmission counters.
type EngineStats struct {
	FramesSent   uint64
	FramesFailed uint64
	BitsSent     uint64
	LastActivity time.Time
	State        EngineState
}

// Engine clocks frames out onto a port's control lines.
//
// One frame is on the lines at a time. The transmit token is a weighted
// semaphore of size one, so waiting callers are served in arrival order
// and can give up through their context.
//
// Thread Safety: All methods are safe for concurrent use.
type Engine struct {
	token    *semaphore.Weighted
	interval time.Duration
	sleep    Sleeper

	state        atomic.Int32
	framesSent   atomic.Uint64
	framesFailed atomic.Uint64
	bitsSent     atomic.Uint64
	lastActivity atomic.Int64 // Unix nanoseconds
}

// NewEngine creates an engine holding each half-bit for interval.
// A zero interval selects DefaultBitInterval and a nil sleep selects
// SleepContext.
func NewEngine(interval time.Duration, sleep Sleeper) *Engine {
	if interval <= 0 {
		interval = DefaultBitInterval
	}
	if sleep == nil {
		sleep = SleepContext
	}
	return &Engine{
		token:    semaphore.NewWeighted(1),
		interval: interval,
		sleep:    sleep,
	}
}

// Transmit waits for the transmit token, then clocks bits onto lines.
//
// ctx only bounds the wait for the token. Once the first line is set the
// frame runs to completion or to the first SetLines failure; a failed
// frame is abandoned and the error wraps ErrTransportSetLines. bits is
// copied before transmission starts.
func (e *Engine) Transmit(ctx context.Context, lines Lines, bits Bits) error {
	if err := e.acquire(ctx); err != nil {
		return err
	}
	defer e.release()

	return e.transmitLocked(ctx, lines, bits)
}

func (e *Engine) acquire(ctx context.Context) error {
	if err := e.token.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("firecracker: waiting for transmitter: %w", err)
	}
	return nil
}

func (e *Engine) release() {
	e.token.Release(1)
}

// transmitLocked runs the state machine. The caller holds the token.
func (e *Engine) transmitLocked(ctx context.Context, lines Lines, bits Bits) error {
	frame := append(Bits(nil), bits...)

	// A started frame is never cut short by the caller.
	ctx = context.WithoutCancel(ctx)

	for i, b := range frame {
		e.setState(StateSendingBit)
		if err := lines.SetLines(ctx, lineForBit(b)); err != nil {
			return e.fail(i, err)
		}
		e.sleep(ctx, e.interval) //nolint:errcheck // ctx cannot be cancelled

		e.setState(StateSynchronizing)
		if err := lines.SetLines(ctx, lineSync); err != nil {
			return e.fail(i, err)
		}
		e.sleep(ctx, e.interval) //nolint:errcheck // ctx cannot be cancelled

		e.bitsSent.Add(1)
		e.touch()
	}

	e.framesSent.Add(1)
	e.setState(StateIdle)
	return nil
}

func (e *Engine) fail(bit int, err error) error {
	e.framesFailed.Add(1)
	e.setState(StateFailed)
	e.touch()
	return fmt.Errorf("%w: bit %d: %w", ErrTransportSetLines, bit, err)
}

func (e *Engine) setState(s EngineState) {
	e.state.Store(int32(s))
}

func (e *Engine) touch() {
	e.lastActivity.Store(time.Now().UnixNano())
}

// State returns the current state machine phase.
func (e *Engine) State() EngineState {
	return EngineState(e.state.Load())
}

// Stats returns a snapshot of the transmission counters.
func (e *Engine) Stats() EngineStats {
	stats := EngineStats{
		FramesSent:   e.framesSent.Load(),
		FramesFailed: e.framesFailed.Load(),
		BitsSent:     e.bitsSent.Load(),
		State:        e.State(),
	}
	if ns := e.lastActivity.Load(); ns != 0 {
		stats.LastActivity = time.Unix(0, ns)
	}
	return stats
}

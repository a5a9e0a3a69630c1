package firecracker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultBaud is the line rate the port is opened at. Only RTS and DTR
	// carry data, so the rate is nominal.
	DefaultBaud = 9600

	// DefaultWarmup is how long the transmitter needs after the port opens
	// before it accepts frames. It is powered from the control lines.
	DefaultWarmup = 500 * time.Millisecond
)

// SessionOptions configures a Session. Zero values select the defaults.
type SessionOptions struct {
	// Opener opens the serial port. Required.
	Opener Opener

	// Baud is the rate passed to Opener. Default: 9600
	Baud int

	// BitInterval is the hold time of each half-bit. Default: 1ms
	BitInterval time.Duration

	// Warmup is the delay after a successful open. Default: 500ms
	Warmup time.Duration

	// Sleeper performs every timed wait. Default: SleepContext
	Sleeper Sleeper

	// Logger is optional.
	Logger Logger
}

// Session owns one transmitter on one serial port.
//
// At most one port is held at a time and at most one frame is on its
// lines. Open, Close and SendCommand all take the engine's transmit token,
// so a send issued while the port is warming up waits for the warm-up to
// finish, and Close waits for an in-flight frame.
//
// Thread Safety: All methods are safe for concurrent use.
type Session struct {
	opener Opener
	baud   int
	warmup time.Duration
	sleep  Sleeper
	engine *Engine

	mu       sync.RWMutex
	port     Port
	portName string

	logger   Logger
	loggerMu sync.RWMutex
}

// NewSession creates a session with no port open.
func NewSession(opts SessionOptions) *Session {
	baud := opts.Baud
	if baud <= 0 {
		baud = DefaultBaud
	}
	warmup := opts.Warmup
	if warmup <= 0 {
		warmup = DefaultWarmup
	}
	sleep := opts.Sleeper
	if sleep == nil {
		sleep = SleepContext
	}

	return &Session{
		opener: opts.Opener,
		baud:   baud,
		warmup: warmup,
		sleep:  sleep,
		engine: NewEngine(opts.BitInterval, sleep),
		logger: opts.Logger,
	}
}

// Open closes any port already held, opens name and waits out the
// transmitter warm-up before returning.
//
// An error closing the previous port is returned and nothing new is
// opened. If the warm-up wait is cancelled the new port is closed again.
func (s *Session) Open(ctx context.Context, name string) error {
	if s.opener == nil {
		return fmt.Errorf("%w: no opener configured", ErrTransportOpen)
	}

	if err := s.engine.acquire(ctx); err != nil {
		return err
	}
	defer s.engine.release()

	if err := s.closeLocked(); err != nil {
		return err
	}

	port, err := s.opener.Open(ctx, name, s.baud)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTransportOpen, name, err)
	}

	if err := s.sleep(ctx, s.warmup); err != nil {
		if cerr := port.Close(); cerr != nil {
			s.logError("closing port after interrupted warm-up", cerr)
		}
		return fmt.Errorf("firecracker: warm-up of %s interrupted: %w", name, err)
	}

	s.mu.Lock()
	s.port = port
	s.portName = name
	s.mu.Unlock()

	s.logInfo("transmitter ready", "port", name, "baud", s.baud, "warmup", s.warmup)
	return nil
}

// Close releases the port. It waits for the transmit token, so a Close
// racing an Open in warm-up closes the port that Open attaches. Closing a
// session that holds no port succeeds without touching the transport. If
// the transport fails to close, the port is kept and the error wraps
// ErrTransportClose.
func (s *Session) Close(ctx context.Context) error {
	if err := s.engine.acquire(ctx); err != nil {
		return err
	}
	defer s.engine.release()

	return s.closeLocked()
}

// closeLocked closes the held port. The caller holds the transmit token.
func (s *Session) closeLocked() error {
	s.mu.RLock()
	port, name := s.port, s.portName
	s.mu.RUnlock()

	if port == nil {
		return nil
	}

	if err := port.Close(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTransportClose, name, err)
	}

	s.mu.Lock()
	s.port = nil
	s.portName = ""
	s.mu.Unlock()

	s.logInfo("port closed", "port", name)
	return nil
}

// SendCommand encodes (house, module, on) and transmits the frame.
//
// Invalid indices fail with ErrInvalidHouse or ErrInvalidModule before the
// transport is touched. Without an open port it returns ErrNotOpen.
func (s *Session) SendCommand(ctx context.Context, house, module int, on bool) error {
	bits, err := Encode(house, module, on)
	if err != nil {
		return err
	}

	if err := s.engine.acquire(ctx); err != nil {
		return err
	}
	defer s.engine.release()

	s.mu.RLock()
	port := s.port
	s.mu.RUnlock()
	if port == nil {
		return ErrNotOpen
	}

	start := time.Now()
	if err := s.engine.transmitLocked(ctx, port, bits); err != nil {
		s.logError("frame abandoned", err)
		return err
	}

	s.logDebug("frame sent",
		"address", Address(house, module),
		"on", on,
		"duration", time.Since(start))
	return nil
}

// Send is SendCommand for a Command value.
func (s *Session) Send(ctx context.Context, cmd Command) error {
	return s.SendCommand(ctx, cmd.House, cmd.Module, cmd.On)
}

// IsOpen reports whether a port is held.
func (s *Session) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.port != nil
}

// PortName returns the name of the held port, or "".
func (s *Session) PortName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.portName
}

// Stats returns the engine counters for this session.
func (s *Session) Stats() EngineStats {
	return s.engine.Stats()
}

// SetLogger sets the logger for the session.
func (s *Session) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

func (s *Session) getLogger() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	return s.logger
}

func (s *Session) logInfo(msg string, keysAndValues ...any) {
	if logger := s.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (s *Session) logDebug(msg string, keysAndValues ...any) {
	if logger := s.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

func (s *Session) logError(msg string, err error) {
	if logger := s.getLogger(); logger != nil {
		logger.Error(msg, "error", err)
	}
}

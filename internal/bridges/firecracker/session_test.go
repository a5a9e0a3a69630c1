package firecracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

const testWarmup = 500 * time.Millisecond

func newTestSession(t *testing.T) (*Session, *mockOpener, *mockPort, *fakeClock) {
	t.Helper()
	clock := &fakeClock{}
	port := &mockPort{clock: clock}
	opener := &mockOpener{port: port}
	s := NewSession(SessionOptions{
		Opener:  opener,
		Warmup:  testWarmup,
		Sleeper: clock.Sleep,
	})
	return s, opener, port, clock
}

func TestSession_OpenWaitsWarmup(t *testing.T) {
	s, opener, _, clock := newTestSession(t)

	if err := s.Open(context.Background(), "/dev/ttyUSB0"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !s.IsOpen() || s.PortName() != "/dev/ttyUSB0" {
		t.Errorf("IsOpen() = %v, PortName() = %q", s.IsOpen(), s.PortName())
	}
	if opener.baud != DefaultBaud {
		t.Errorf("baud = %d, want %d", opener.baud, DefaultBaud)
	}
	if clock.Now() != testWarmup {
		t.Errorf("clock = %v after Open, want %v", clock.Now(), testWarmup)
	}
}

func TestSession_SendWaitsForWarmup(t *testing.T) {
	clock := &fakeClock{}
	port := &mockPort{clock: clock}
	opened := make(chan struct{})
	opener := &mockOpener{port: port, opened: opened}

	release := make(chan struct{})
	sleeper := func(ctx context.Context, d time.Duration) error {
		if d == testWarmup {
			<-release
		}
		return clock.Sleep(ctx, d)
	}

	s := NewSession(SessionOptions{Opener: opener, Warmup: testWarmup, Sleeper: sleeper})

	openErr := make(chan error, 1)
	go func() { openErr <- s.Open(context.Background(), "COM3") }()

	<-opened
	sendErr := make(chan error, 1)
	go func() { sendErr <- s.SendCommand(context.Background(), 0, 0, true) }()

	// Let the send reach the token before the warm-up ends.
	time.Sleep(20 * time.Millisecond)
	if n := len(port.getCalls()); n != 0 {
		t.Fatalf("SetLines called %d times during warm-up", n)
	}
	close(release)

	if err := <-openErr; err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := <-sendErr; err != nil {
		t.Fatalf("SendCommand() error = %v", err)
	}

	calls := port.getCalls()
	if len(calls) == 0 {
		t.Fatal("no SetLines calls")
	}
	if calls[0].at < opener.openedAt+testWarmup {
		t.Errorf("first SetLines at %v, want >= %v", calls[0].at, opener.openedAt+testWarmup)
	}
}

func TestSession_CloseDuringWarmupClosesPort(t *testing.T) {
	clock := &fakeClock{}
	port := &mockPort{clock: clock}
	opened := make(chan struct{})
	opener := &mockOpener{port: port, opened: opened}

	release := make(chan struct{})
	sleeper := func(ctx context.Context, d time.Duration) error {
		if d == testWarmup {
			<-release
		}
		return clock.Sleep(ctx, d)
	}

	s := NewSession(SessionOptions{Opener: opener, Warmup: testWarmup, Sleeper: sleeper})

	openErr := make(chan error, 1)
	go func() { openErr <- s.Open(context.Background(), "COM3") }()

	<-opened
	closeErr := make(chan error, 1)
	go func() { closeErr <- s.Close(context.Background()) }()

	// Let Close reach the token before the warm-up ends.
	time.Sleep(20 * time.Millisecond)
	close(release)

	if err := <-openErr; err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := <-closeErr; err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if s.IsOpen() {
		t.Error("IsOpen() = true after Close returned")
	}
	if port.closeCount() != 1 {
		t.Errorf("port closed %d times, want 1", port.closeCount())
	}
}

func TestSession_ConcurrentSendsDoNotInterleave(t *testing.T) {
	s, _, port, _ := newTestSession(t)
	if err := s.Open(context.Background(), "COM1"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	frameA, _ := Encode(0, 0, true)
	frameB, _ := Encode(1, 1, false)
	linesA := expectedLines(frameA)
	linesB := expectedLines(frameB)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs <- s.SendCommand(context.Background(), 0, 0, true)
	}()
	go func() {
		defer wg.Done()
		errs <- s.SendCommand(context.Background(), 1, 1, false)
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("SendCommand() error = %v", err)
		}
	}

	calls := port.getCalls()
	if len(calls) != 4*FrameLength {
		t.Fatalf("SetLines calls = %d, want %d", len(calls), 4*FrameLength)
	}

	first, second := statesOf(calls[:2*FrameLength]), statesOf(calls[2*FrameLength:])
	switch {
	case equalStates(first, linesA) && equalStates(second, linesB):
	case equalStates(first, linesB) && equalStates(second, linesA):
	default:
		t.Error("line changes of the two frames are interleaved")
	}
}

func statesOf(calls []lineCall) []LineState {
	states := make([]LineState, len(calls))
	for i, c := range calls {
		states[i] = c.state
	}
	return states
}

func equalStates(a, b []LineState) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSession_CloseNeverOpened(t *testing.T) {
	s, opener, port, _ := newTestSession(t)

	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if opener.openCount() != 0 || port.closeCount() != 0 || len(port.getCalls()) != 0 {
		t.Error("Close() on a never-opened session touched the transport")
	}
}

func TestSession_FailureMidFrame(t *testing.T) {
	s, _, port, _ := newTestSession(t)
	if err := s.Open(context.Background(), "COM1"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	port.setFailOn(3)
	err := s.SendCommand(context.Background(), 4, 7, true)
	if !errors.Is(err, ErrTransportSetLines) {
		t.Fatalf("SendCommand() error = %v, want %v", err, ErrTransportSetLines)
	}
	if n := len(port.getCalls()); n != 3 {
		t.Errorf("SetLines calls = %d, want 3", n)
	}

	port.setFailOn(0)
	if err := s.SendCommand(context.Background(), 4, 7, true); err != nil {
		t.Fatalf("SendCommand() after failure error = %v", err)
	}
	if s.Stats().FramesSent != 1 || s.Stats().FramesFailed != 1 {
		t.Errorf("Stats() = %+v", s.Stats())
	}
}

func TestSession_SendValidatesFirst(t *testing.T) {
	s, _, port, _ := newTestSession(t)

	if err := s.SendCommand(context.Background(), 16, 0, true); !errors.Is(err, ErrInvalidHouse) {
		t.Errorf("SendCommand(house 16) error = %v, want %v", err, ErrInvalidHouse)
	}
	if err := s.SendCommand(context.Background(), 0, 16, true); !errors.Is(err, ErrInvalidModule) {
		t.Errorf("SendCommand(module 16) error = %v, want %v", err, ErrInvalidModule)
	}
	if err := s.SendCommand(context.Background(), 0, 0, true); !errors.Is(err, ErrNotOpen) {
		t.Errorf("SendCommand(not open) error = %v, want %v", err, ErrNotOpen)
	}
	if n := len(port.getCalls()); n != 0 {
		t.Errorf("SetLines calls = %d, want 0", n)
	}
}

func TestSession_OpenFailure(t *testing.T) {
	s, opener, _, _ := newTestSession(t)
	opener.err = errors.New("no such device")

	err := s.Open(context.Background(), "/dev/missing")
	if !errors.Is(err, ErrTransportOpen) {
		t.Fatalf("Open() error = %v, want %v", err, ErrTransportOpen)
	}
	if s.IsOpen() {
		t.Error("IsOpen() = true after failed open")
	}

	noOpener := NewSession(SessionOptions{})
	if err := noOpener.Open(context.Background(), "COM1"); !errors.Is(err, ErrTransportOpen) {
		t.Errorf("Open() without opener error = %v, want %v", err, ErrTransportOpen)
	}
}

func TestSession_OpenWarmupCancelled(t *testing.T) {
	port := &mockPort{}
	opener := &mockOpener{port: port}
	ctx, cancel := context.WithCancel(context.Background())
	s := NewSession(SessionOptions{
		Opener: opener,
		Sleeper: func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		},
	})

	if err := s.Open(ctx, "COM1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Open() error = %v, want %v", err, context.Canceled)
	}
	if s.IsOpen() {
		t.Error("IsOpen() = true after cancelled warm-up")
	}
	if port.closeCount() != 1 {
		t.Errorf("port closed %d times, want 1", port.closeCount())
	}
}

func TestSession_CloseFailureKeepsPort(t *testing.T) {
	s, _, port, _ := newTestSession(t)
	if err := s.Open(context.Background(), "COM1"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	port.setCloseErr(errors.New("busy"))
	if err := s.Close(context.Background()); !errors.Is(err, ErrTransportClose) {
		t.Fatalf("Close() error = %v, want %v", err, ErrTransportClose)
	}
	if !s.IsOpen() {
		t.Fatal("port dropped after failed close")
	}

	port.setCloseErr(nil)
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close() retry error = %v", err)
	}
	if s.IsOpen() || s.PortName() != "" {
		t.Error("port still held after close")
	}
}

func TestSession_ReopenClosesPrevious(t *testing.T) {
	s, opener, port, _ := newTestSession(t)
	if err := s.Open(context.Background(), "COM1"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Open(context.Background(), "COM2"); err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	if port.closeCount() != 1 {
		t.Errorf("previous port closed %d times, want 1", port.closeCount())
	}
	if s.PortName() != "COM2" || opener.openCount() != 2 {
		t.Errorf("PortName() = %q, opens = %d", s.PortName(), opener.openCount())
	}

	port.setCloseErr(errors.New("stuck"))
	if err := s.Open(context.Background(), "COM3"); !errors.Is(err, ErrTransportClose) {
		t.Errorf("Open() with stuck port error = %v, want %v", err, ErrTransportClose)
	}
	if opener.openCount() != 2 {
		t.Error("opened a new port after failing to close the old one")
	}
}

func TestSession_Send(t *testing.T) {
	s, _, port, _ := newTestSession(t)
	logger := &mockLogger{}
	s.SetLogger(logger)
	if err := s.Open(context.Background(), "COM1"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := s.Send(context.Background(), Command{House: 2, Module: 3, On: false}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	frame, _ := Encode(2, 3, false)
	if !equalStates(statesOf(port.getCalls()), expectedLines(frame)) {
		t.Error("Send() produced the wrong line sequence")
	}
}

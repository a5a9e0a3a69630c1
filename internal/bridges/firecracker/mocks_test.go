package firecracker

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"
)

var errLineFault = errors.New("line fault")

// fakeClock is a virtual clock advanced only by its sleeper.
type fakeClock struct {
	mu  sync.Mutex
	now time.Duration
}

func (c *fakeClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the clock and yields so other goroutines get a chance to
// run between line changes.
func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
	runtime.Gosched()
	return ctx.Err()
}

type lineCall struct {
	state LineState
	at    time.Duration
}

// mockPort records every SetLines call.
type mockPort struct {
	mu       sync.Mutex
	clock    *fakeClock
	calls    []lineCall
	failOn   int // 1-based call number that fails; 0 never fails
	closeErr error
	closes   int
}

func (p *mockPort) SetLines(_ context.Context, state LineState) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var at time.Duration
	if p.clock != nil {
		at = p.clock.Now()
	}
	p.calls = append(p.calls, lineCall{state: state, at: at})
	if p.failOn > 0 && len(p.calls) == p.failOn {
		return errLineFault
	}
	return nil
}

func (p *mockPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
	return p.closeErr
}

func (p *mockPort) getCalls() []lineCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]lineCall, len(p.calls))
	copy(result, p.calls)
	return result
}

func (p *mockPort) setFailOn(n int) {
	p.mu.Lock()
	p.failOn = n
	p.mu.Unlock()
}

func (p *mockPort) setCloseErr(err error) {
	p.mu.Lock()
	p.closeErr = err
	p.mu.Unlock()
}

func (p *mockPort) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

// mockOpener hands out a fixed port.
type mockOpener struct {
	mu       sync.Mutex
	port     *mockPort
	err      error
	opens    []string
	baud     int
	openedAt time.Duration
	opened   chan struct{} // closed after the first successful open, if set
}

func (o *mockOpener) Open(_ context.Context, name string, baud int) (Port, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.opens = append(o.opens, name)
	o.baud = baud
	if o.err != nil {
		return nil, o.err
	}
	if o.port.clock != nil {
		o.openedAt = o.port.clock.Now()
	}
	if o.opened != nil {
		close(o.opened)
		o.opened = nil
	}
	return o.port, nil
}

func (o *mockOpener) openCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.opens)
}

// expectedLines returns the line states a frame produces.
func expectedLines(frame Bits) []LineState {
	states := make([]LineState, 0, 2*len(frame))
	for _, b := range frame {
		states = append(states, lineForBit(b), lineSync)
	}
	return states
}

// mockLogger discards everything but counts errors.
type mockLogger struct {
	mu     sync.Mutex
	errors int
}

func (l *mockLogger) Debug(string, ...any) {}
func (l *mockLogger) Info(string, ...any)  {}
func (l *mockLogger) Warn(string, ...any)  {}

func (l *mockLogger) Error(string, ...any) {
	l.mu.Lock()
	l.errors++
	l.mu.Unlock()
}

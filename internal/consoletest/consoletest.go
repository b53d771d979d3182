// Package consoletest scripts the controller side of a console
// conversation for tests. The scripted session feeds a real matcher,
// so tests exercise the same incremental matching, sanitizing and
// bounding as a live console.
package consoletest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/datacenter/wiper/internal/config"
	"github.com/datacenter/wiper/internal/expect"
	"github.com/datacenter/wiper/internal/provision"
)

// TestContext returns a context with a reasonable timeout for tests.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// FastTimeouts returns deadlines small enough that a test exercising a
// timeout path finishes quickly.
func FastTimeouts() *config.Timeouts {
	return &config.Timeouts{
		Dial:       200 * time.Millisecond,
		KeepAlive:  200 * time.Millisecond,
		Control:    200 * time.Millisecond,
		SolCommit:  200 * time.Millisecond,
		Launch:     200 * time.Millisecond,
		Login:      200 * time.Millisecond,
		Step:       200 * time.Millisecond,
		Reboot:     500 * time.Millisecond,
		PowerCycle: 500 * time.Millisecond,
		FinalLogin: 200 * time.Millisecond,
	}
}

// TB is the subset of testing.T the scripted session reports failures
// through. *testing.T and ginkgo's GinkgoT() both satisfy it.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// Exchange is one scripted turn: what the driver must send next, and
// what the console prints back.
type Exchange struct {
	Send  string
	Reply string

	// CloseAfter ends the console stream after the reply, simulating a
	// connection that dies mid-conversation.
	CloseAfter bool
}

// Session is a scripted provision.Session. Sends are checked strictly
// against the script, in order; an unexpected send fails the test
// immediately, which keeps driver regressions loud.
type Session struct {
	t TB

	out        chan []byte
	matcher    *expect.Matcher
	transcript *expect.Transcript

	mu           sync.Mutex
	script       []Exchange
	launchOutput string
	launchErr    error
	cycleOutput  string
	cycleErr     error
	PowerCycles  int
	Sent         []string
	closed       bool
}

// NewSession returns an empty scripted session; configure it with
// OnLaunch, Script and OnPowerCycle before handing it to a driver.
func NewSession(t TB) *Session {
	t.Helper()
	out := make(chan []byte, 256)
	transcript := &expect.Transcript{}
	return &Session{
		t:          t,
		out:        out,
		matcher:    expect.NewMatcher(out, transcript),
		transcript: transcript,
	}
}

// OnLaunch sets the console output that appears once the console is
// attached.
func (s *Session) OnLaunch(output string) *Session {
	s.launchOutput = output
	return s
}

// FailLaunch makes Launch return err instead of attaching.
func (s *Session) FailLaunch(err error) *Session {
	s.launchErr = err
	return s
}

// Script appends exchanges to the expected conversation.
func (s *Session) Script(exchanges ...Exchange) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, exchanges...)
	return s
}

// OnPowerCycle sets the console output that follows a power cycle.
func (s *Session) OnPowerCycle(output string) *Session {
	s.cycleOutput = output
	return s
}

// FailPowerCycle makes PowerCycle return err.
func (s *Session) FailPowerCycle(err error) *Session {
	s.cycleErr = err
	return s
}

// Remaining reports how many scripted exchanges were never consumed.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.script)
}

func (s *Session) Launch(ctx context.Context) error {
	if s.launchErr != nil {
		return s.launchErr
	}
	if s.launchOutput != "" {
		s.emit(s.launchOutput)
	}
	return nil
}

func (s *Session) PowerCycle(ctx context.Context) error {
	s.mu.Lock()
	s.PowerCycles++
	s.mu.Unlock()
	if s.cycleErr != nil {
		return s.cycleErr
	}
	if s.cycleOutput != "" {
		s.emit(s.cycleOutput)
	}
	return nil
}

func (s *Session) Expect(ctx context.Context, timeout time.Duration, patterns ...expect.Pattern) (expect.Match, error) {
	return s.matcher.WaitFor(ctx, timeout, patterns...)
}

func (s *Session) Send(text string) error     { return s.handleSend(text) }
func (s *Session) SendLine(text string) error { return s.handleSend(text) }

func (s *Session) Flush() { s.matcher.Flush() }

func (s *Session) Transcript() string { return s.transcript.String() }

func (s *Session) handleSend(text string) error {
	s.mu.Lock()
	s.Sent = append(s.Sent, text)
	if len(s.script) == 0 {
		s.mu.Unlock()
		s.t.Fatalf("console received %q but the script is exhausted", text)
		return nil
	}
	head := s.script[0]
	s.script = s.script[1:]
	s.mu.Unlock()

	if text != head.Send {
		s.t.Fatalf("console expected %q to be sent next, got %q", head.Send, text)
		return nil
	}
	if head.Reply != "" {
		s.emit(head.Reply)
	}
	if head.CloseAfter {
		s.closeStream()
	}
	return nil
}

func (s *Session) emit(text string) {
	select {
	case s.out <- []byte(text):
	default:
		s.t.Fatalf("scripted output buffer full while emitting %q", text)
	}
}

func (s *Session) closeStream() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
}

// Connector is a scripted provision.Connector for runner tests.
type Connector struct {
	Session *Session

	ConnectErr error
	AuthErr    error
	OpenErr    error

	Closes int
}

func (c *Connector) Connect(ctx context.Context) error      { return c.ConnectErr }
func (c *Connector) Authenticate(ctx context.Context) error { return c.AuthErr }

func (c *Connector) OpenConsole(ctx context.Context) (provision.Session, error) {
	if c.OpenErr != nil {
		return nil, c.OpenErr
	}
	return c.Session, nil
}

func (c *Connector) Close() { c.Closes++ }

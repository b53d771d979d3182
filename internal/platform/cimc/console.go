package cimc

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"github.com/datacenter/wiper/internal/config"
	"github.com/datacenter/wiper/internal/expect"
)

// ctrlX detaches a Serial over LAN session on the CIMC.
const ctrlX = "\x18"

// Console is the pair of shells driving one provisioning run. The
// control shell stays at the CIMC CLI; the host shell becomes the
// server's serial console after Launch. Both feed one shared
// transcript, so the record reads in the order an operator at the
// terminal would have seen.
type Console struct {
	target     string
	control    *shell
	host       *shell
	transcript *expect.Transcript
	timeouts   *config.Timeouts
	log        *logrus.Entry
}

type shell struct {
	session *ssh.Session
	stdin   io.WriteCloser
	matcher *expect.Matcher
}

// ptyTypes is tried in order; older CIMC firmware rejects terminal
// types it does not know.
var ptyTypes = []string{"vt100", "xterm", "ansi", "dumb"}

func openShell(client *ssh.Client, transcript *expect.Transcript) (*shell, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	var ptyErr error
	for _, term := range ptyTypes {
		if ptyErr = session.RequestPty(term, 24, 80, modes); ptyErr == nil {
			break
		}
	}
	if ptyErr != nil {
		_ = session.Close()
		return nil, fmt.Errorf("requesting pty: %w", ptyErr)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := session.StderrPipe()
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := session.Shell(); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("starting shell: %w", err)
	}

	out := make(chan []byte, 64)
	var pumps sync.WaitGroup
	pumps.Add(2)
	go pump(stdout, out, &pumps)
	go pump(stderr, out, &pumps)
	go func() {
		pumps.Wait()
		close(out)
	}()

	return &shell{
		session: session,
		stdin:   stdin,
		matcher: expect.NewMatcher(out, transcript),
	}, nil
}

// pump moves raw chunks from the session to the matcher's channel
// until the stream ends.
func pump(r io.Reader, out chan<- []byte, wg *sync.WaitGroup) {
	defer wg.Done()
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			out <- chunk
		}
		if err != nil {
			return
		}
	}
}

func (s *shell) close(log *logrus.Entry) {
	if s.session == nil {
		return
	}
	if err := s.session.Close(); err != nil && err != io.EOF {
		log.WithError(err).Debug("closing shell session")
	}
}

// Expect waits on the host console for the first pattern to match.
func (c *Console) Expect(ctx context.Context, timeout time.Duration, patterns ...expect.Pattern) (expect.Match, error) {
	return c.host.matcher.WaitFor(ctx, timeout, patterns...)
}

// Send writes raw text to the host console without a line ending, for
// single-key answers and control characters.
func (c *Console) Send(text string) error {
	if _, err := io.WriteString(c.host.stdin, text); err != nil {
		return fmt.Errorf("writing to console: %w", err)
	}
	return nil
}

// SendLine writes text followed by a carriage return. The SoL line
// discipline terminates input lines with CR, not LF.
func (c *Console) SendLine(text string) error {
	return c.Send(text + "\r")
}

// Flush discards any console output already received but not yet
// matched.
func (c *Console) Flush() {
	c.host.matcher.Flush()
}

// ControlExpect waits on the control shell for the first pattern to
// match.
func (c *Console) ControlExpect(ctx context.Context, timeout time.Duration, patterns ...expect.Pattern) (expect.Match, error) {
	return c.control.matcher.WaitFor(ctx, timeout, patterns...)
}

// ControlSendLine writes a command to the control shell.
func (c *Console) ControlSendLine(text string) error {
	if _, err := io.WriteString(c.control.stdin, text+"\n"); err != nil {
		return fmt.Errorf("writing to control shell: %w", err)
	}
	return nil
}

// Transcript returns the interleaved output of both shells captured so
// far.
func (c *Console) Transcript() string {
	return c.transcript.String()
}

// TranscriptTail returns the last n lines of the transcript.
func (c *Console) TranscriptTail(n int) string {
	return c.transcript.Tail(n)
}

func (c *Console) close() {
	// Detach the serial session first so the CIMC does not hold it as
	// stale for the next run.
	if err := c.Send(ctrlX); err == nil {
		time.Sleep(100 * time.Millisecond)
	}
	c.host.close(c.log)
	c.control.close(c.log)
}

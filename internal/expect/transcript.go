package expect

import (
	"fmt"
	"strings"
	"sync"
)

// maxTranscriptBytes caps how much console output a transcript retains.
// Boot output during the reboot wait can run to hundreds of kilobytes; the
// newest output is the diagnostic that matters, so the oldest is dropped.
const maxTranscriptBytes = 1 << 20

// Transcript accumulates everything a console session displayed, for
// failure diagnostics. It keeps at most maxTranscriptBytes of the most
// recent output and remembers how much was dropped.
type Transcript struct {
	mu      sync.Mutex
	buf     []byte
	dropped int
}

// Append records console output.
func (t *Transcript) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if overflow := len(t.buf) - maxTranscriptBytes; overflow > 0 {
		t.buf = append(t.buf[:0], t.buf[overflow:]...)
		t.dropped += overflow
	}
}

// String returns the retained output, prefixed with a marker when earlier
// output was dropped.
func (t *Transcript) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dropped > 0 {
		return fmt.Sprintf("[... %d earlier bytes dropped ...]\n%s", t.dropped, t.buf)
	}
	return string(t.buf)
}

// Tail returns up to n trailing lines of the transcript.
func (t *Transcript) Tail(n int) string {
	t.mu.Lock()
	s := string(t.buf)
	t.mu.Unlock()

	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// Len reports how many bytes are currently retained.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buf)
}

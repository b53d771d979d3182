package expect

import (
	"context"
	"regexp"
	"time"
)

// maxScanWindow bounds the unconsumed buffer the matcher scans. Prompts are
// short; anything older than the window tail can no longer begin a match.
const maxScanWindow = 64 << 10

// Matcher scans a console output stream for expected patterns.
//
// It owns the unconsumed tail of the stream between waits: output consumed
// by a match is gone, so two consecutive waits never observe the same
// prompt twice unless the device printed it twice. All output, matched or
// not, is appended to the transcript as it arrives.
//
// A Matcher is not safe for concurrent use; the wizard driver issues one
// blocking wait at a time.
type Matcher struct {
	out        <-chan []byte
	transcript *Transcript
	buf        []byte
}

// NewMatcher returns a matcher over the given chunk channel. The channel is
// expected to close when the underlying stream ends. A nil transcript is
// substituted with an empty one.
func NewMatcher(out <-chan []byte, transcript *Transcript) *Matcher {
	if transcript == nil {
		transcript = &Transcript{}
	}
	return &Matcher{out: out, transcript: transcript}
}

// Transcript returns the accumulated session transcript.
func (m *Matcher) Transcript() *Transcript { return m.transcript }

// WaitFor blocks until one of the patterns matches the accumulated output,
// the timeout elapses, the stream closes, or ctx is cancelled.
//
// Patterns are tried in argument order on each scan, so earlier patterns
// take priority when the buffered output satisfies more than one. On a
// match, output up to and including the matched text is consumed. On
// timeout the unmatched output is returned inside *TimeoutError; on stream
// end inside *StreamClosedError. Context cancellation returns ctx.Err()
// unwrapped so callers can unwind straight to session teardown.
func (m *Matcher) WaitFor(ctx context.Context, timeout time.Duration, patterns ...Pattern) (Match, error) {
	start := time.Now()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if match, ok := m.scan(patterns); ok {
			return match, nil
		}

		select {
		case chunk, ok := <-m.out:
			if !ok {
				return Match{}, &StreamClosedError{Unmatched: string(m.buf)}
			}
			m.ingest(chunk)
		case <-timer.C:
			return Match{}, &TimeoutError{
				WaitingFor: patternNames(patterns),
				Elapsed:    time.Since(start),
				Unmatched:  string(m.buf),
			}
		case <-ctx.Done():
			return Match{}, ctx.Err()
		}
	}
}

// Flush discards buffered output, draining anything already queued on the
// stream without blocking. Used before issuing a command whose response
// must not be confused with stale output.
func (m *Matcher) Flush() {
	for {
		select {
		case chunk, ok := <-m.out:
			if !ok {
				m.buf = nil
				return
			}
			m.ingest(chunk)
		default:
			m.buf = nil
			return
		}
	}
}

func (m *Matcher) ingest(chunk []byte) {
	clean := sanitize(chunk)
	m.transcript.Append(clean)
	m.buf = append(m.buf, clean...)
	if len(m.buf) > maxScanWindow {
		m.buf = append(m.buf[:0], m.buf[len(m.buf)-maxScanWindow:]...)
	}
}

func (m *Matcher) scan(patterns []Pattern) (Match, bool) {
	for _, p := range patterns {
		if p.Zero() {
			continue
		}
		loc := p.re.FindIndex(m.buf)
		if loc == nil {
			continue
		}
		match := Match{
			Pattern: p,
			Text:    string(m.buf[loc[0]:loc[1]]),
			Before:  string(m.buf[:loc[0]]),
		}
		m.buf = append(m.buf[:0], m.buf[loc[1]:]...)
		return match, true
	}
	return Match{}, false
}

func patternNames(patterns []Pattern) []string {
	names := make([]string, len(patterns))
	for i, p := range patterns {
		names[i] = p.Name
	}
	return names
}

// ansiEscape matches CSI and OSC terminal control sequences. The serial
// console interleaves them with prompt text; they never carry information
// the matcher needs.
var ansiEscape = regexp.MustCompile(`\x1b(?:\[[0-9;?]*[@-~]|\][^\x07\x1b]*(?:\x07|\x1b\\)?|[@-Z\\^_])`)

// sanitize strips terminal escape sequences and control characters and
// normalizes line endings to \n, so patterns match the text an operator
// would actually read.
func sanitize(p []byte) []byte {
	p = ansiEscape.ReplaceAll(p, nil)
	out := make([]byte, 0, len(p))
	for i := 0; i < len(p); i++ {
		c := p[i]
		switch {
		case c == '\r':
			if i+1 < len(p) && p[i+1] == '\n' {
				continue
			}
			out = append(out, '\n')
		case c == '\n' || c == '\t':
			out = append(out, c)
		case c >= 0x20 && c != 0x7f:
			out = append(out, c)
		}
	}
	return out
}

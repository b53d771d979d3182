package expect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(chunks ...string) chan []byte {
	out := make(chan []byte, len(chunks))
	for _, c := range chunks {
		out <- []byte(c)
	}
	return out
}

func TestWaitFor_MatchesMidLine(t *testing.T) {
	out := feed("Enter the fabric name [ACI Fabric1]:")
	m := NewMatcher(out, nil)

	fabric := MustPattern("fabric-name", `Enter the fabric name \[.*?\]:`)
	match, err := m.WaitFor(context.Background(), time.Second, fabric)

	require.NoError(t, err)
	assert.Equal(t, "fabric-name", match.Pattern.Name)
	assert.Equal(t, "Enter the fabric name [ACI Fabric1]:", match.Text)
}

func TestWaitFor_MatchesAcrossChunks(t *testing.T) {
	out := make(chan []byte, 3)
	m := NewMatcher(out, nil)

	go func() {
		out <- []byte("Enter the fab")
		out <- []byte("ric name [AC")
		out <- []byte("I Fabric1]:")
	}()

	fabric := MustPattern("fabric-name", `Enter the fabric name \[.*?\]:`)
	_, err := m.WaitFor(context.Background(), time.Second, fabric)
	require.NoError(t, err)
}

func TestWaitFor_ArgumentOrderPriority(t *testing.T) {
	out := feed("apic1 login: ")
	m := NewMatcher(out, nil)

	login := MustPattern("login", `login:`)
	anything := MustPattern("anything", `apic`)

	match, err := m.WaitFor(context.Background(), time.Second, login, anything)
	require.NoError(t, err)
	assert.Equal(t, "login", match.Pattern.Name)
}

func TestWaitFor_CapturesLeadingOutput(t *testing.T) {
	out := feed("Application Policy Infrastructure Controller\n\napic1 login: ")
	m := NewMatcher(out, nil)

	login := MustPattern("login", `login:`)
	match, err := m.WaitFor(context.Background(), time.Second, login)

	require.NoError(t, err)
	assert.Contains(t, match.Before, "Application Policy Infrastructure Controller")
}

func TestWaitFor_ConsumesThroughMatch(t *testing.T) {
	out := feed("Enter the fabric name [ACI Fabric1]: ", "Enter the number of controllers in the fabric (1-9) [3]:")
	m := NewMatcher(out, nil)

	fabric := MustPattern("fabric-name", `Enter the fabric name \[.*?\]:`)
	controllers := MustPattern("controller-count", `Enter the number of controllers in the fabric \(1-9\) \[[0-9]+\]:`)

	_, err := m.WaitFor(context.Background(), time.Second, fabric, controllers)
	require.NoError(t, err)

	// The fabric prompt was consumed; only the controller prompt can match now.
	match, err := m.WaitFor(context.Background(), time.Second, fabric, controllers)
	require.NoError(t, err)
	assert.Equal(t, "controller-count", match.Pattern.Name)
}

func TestWaitFor_Timeout(t *testing.T) {
	out := feed("lots of boot noise, none of it a prompt\n")
	m := NewMatcher(out, nil)

	login := MustPattern("login", `login:`)
	_, err := m.WaitFor(context.Background(), 50*time.Millisecond, login)

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Contains(t, timeoutErr.Unmatched, "boot noise")
	assert.Equal(t, []string{"login"}, timeoutErr.WaitingFor)
	assert.GreaterOrEqual(t, timeoutErr.Elapsed, 50*time.Millisecond)
}

func TestWaitFor_StreamClosed(t *testing.T) {
	out := make(chan []byte, 1)
	out <- []byte("Connection to host lost")
	close(out)
	m := NewMatcher(out, nil)

	login := MustPattern("login", `login:`)
	_, err := m.WaitFor(context.Background(), time.Second, login)

	var closedErr *StreamClosedError
	require.ErrorAs(t, err, &closedErr)
	assert.Contains(t, closedErr.Unmatched, "Connection to host lost")
}

func TestWaitFor_ContextCancelled(t *testing.T) {
	out := make(chan []byte)
	m := NewMatcher(out, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	login := MustPattern("login", `login:`)
	_, err := m.WaitFor(ctx, time.Second, login)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestWaitFor_CaseSensitive(t *testing.T) {
	out := feed("LOGIN:")
	m := NewMatcher(out, nil)

	login := MustPattern("login", `login:`)
	_, err := m.WaitFor(context.Background(), 50*time.Millisecond, login)

	var timeoutErr *TimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
}

func TestWaitFor_StripsEscapeSequences(t *testing.T) {
	out := feed("\x1b[2J\x1b[H\x1b[0;37mapic1 login:\x1b[0m ")
	m := NewMatcher(out, nil)

	login := MustPattern("login", `login:`)
	match, err := m.WaitFor(context.Background(), time.Second, login)

	require.NoError(t, err)
	assert.Equal(t, "login:", match.Text)
}

func TestWaitFor_NormalizesCRLF(t *testing.T) {
	out := feed("line one\r\nline two\rEnter the fabric name [x]:")
	m := NewMatcher(out, nil)

	fabric := MustPattern("fabric-name", `Enter the fabric name \[.*?\]:`)
	match, err := m.WaitFor(context.Background(), time.Second, fabric)

	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", match.Before)
}

func TestFlush_DiscardsPendingOutput(t *testing.T) {
	out := feed("stale prompt login: ", "more stale text")
	tr := &Transcript{}
	m := NewMatcher(out, tr)

	m.Flush()

	login := MustPattern("login", `login:`)
	_, err := m.WaitFor(context.Background(), 50*time.Millisecond, login)

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	// Flushed output is discarded from matching but kept for diagnostics.
	assert.Contains(t, tr.String(), "stale prompt")
}

func TestWaitFor_TranscriptAccumulates(t *testing.T) {
	out := feed("banner text\n", "apic1 login: ")
	tr := &Transcript{}
	m := NewMatcher(out, tr)

	login := MustPattern("login", `login:`)
	_, err := m.WaitFor(context.Background(), time.Second, login)

	require.NoError(t, err)
	assert.Contains(t, tr.String(), "banner text")
	assert.Contains(t, tr.String(), "login:")
}

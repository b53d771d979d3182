package expect

import (
	"fmt"
	"strings"
	"time"
)

// TimeoutError reports that none of the awaited patterns appeared within
// the allotted time. The output that accumulated during the wait is kept on
// the error, not discarded; it is usually the only clue to what the device
// actually displayed.
type TimeoutError struct {
	WaitingFor []string
	Elapsed    time.Duration
	Unmatched  string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no prompt matched after %s, waiting for: %s",
		e.Elapsed.Round(time.Millisecond), strings.Join(e.WaitingFor, ", "))
}

// StreamClosedError reports that the console stream ended mid-wait. This is
// distinct from a timeout: the device or transport aborted the session
// rather than merely being slow.
type StreamClosedError struct {
	Unmatched string
}

func (e *StreamClosedError) Error() string {
	return "console stream closed unexpectedly"
}

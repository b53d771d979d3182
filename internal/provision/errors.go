package provision

import "fmt"

// Exchange is one prompt/answer pair, kept for error reports.
type Exchange struct {
	Prompt string
	Answer string
}

// RetryBoundExceededError reports that the setup wizard kept
// re-presenting a prompt after the answer was resent the allowed
// number of times. The final exchanges show what the console printed
// and what was sent, so the operator can tell a bad value from a
// console echo problem.
type RetryBoundExceededError struct {
	Step      string
	Repeats   int
	Exchanges []Exchange
}

func (e *RetryBoundExceededError) Error() string {
	return fmt.Sprintf("setup wizard repeated the %s prompt %d times; the answer is not being accepted", e.Step, e.Repeats)
}

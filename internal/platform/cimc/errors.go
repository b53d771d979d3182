package cimc

import "fmt"

// ConnectionError reports a failure establishing the management
// channel. Op is "dial" for the TCP connection and "auth" for the SSH
// handshake, so an unreachable CIMC is distinguishable from rejected
// credentials.
type ConnectionError struct {
	Op     string
	Target string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cimc %s: %s failed: %v", e.Target, e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ConsoleLaunchError reports that the host console could not be
// attached over Serial over LAN, including when the retry after
// terminating a stale session also failed.
type ConsoleLaunchError struct {
	Target string
	Err    error
}

func (e *ConsoleLaunchError) Error() string {
	return fmt.Sprintf("launching host console on %s: %v", e.Target, e.Err)
}

func (e *ConsoleLaunchError) Unwrap() error { return e.Err }

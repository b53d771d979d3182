// Package provision drives an APIC controller from factory-unknown
// state to a configured cluster member over its serial console.
//
// The Driver is a single-threaded state machine: it waits for the next
// console prompt, answers it from the resolved configuration, and only
// advances when the console recognizably moves on. Prompt repeats are
// answered with the identical cached value a bounded number of times,
// so a wizard that keeps rejecting an answer fails fast instead of
// looping. Progress surfaces through an Observer so the TUI, the log
// file and the run journal all see the same events.
package provision

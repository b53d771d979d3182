// Package wizard provides the interactive configuration wizard behind
// "wiper init".
//
// It walks an operator through the CIMC credentials, the fabric-wide
// answers and the per-controller answers using charmbracelet/huh forms,
// then writes an INI file the run command consumes. Fabric-wide values
// land in the defaults block, per-controller values in a section named
// after the target.
package wizard

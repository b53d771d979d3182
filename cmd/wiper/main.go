// Package main is the entry point for the wiper CLI.
//
// wiper wipes and re-provisions Cisco APIC controllers through the
// CIMC Serial over LAN console. It drives the APIC setup wizard with
// answers resolved from an INI file and command-line overrides, so a
// whole fabric can be rebuilt without anyone typing at a console.
//
// Commands: run, init, doctor, history, version.
//
// For detailed usage information, run:
//
//	wiper --help
package main

import (
	"fmt"
	"os"

	"github.com/datacenter/wiper/cmd/wiper/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

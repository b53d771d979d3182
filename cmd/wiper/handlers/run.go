// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command
// definitions in the commands package. Handlers are framework-agnostic
// and can be tested independently of the CLI framework.
package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/datacenter/wiper/internal/archive"
	"github.com/datacenter/wiper/internal/config"
	"github.com/datacenter/wiper/internal/journal"
	"github.com/datacenter/wiper/internal/logging"
	"github.com/datacenter/wiper/internal/provision"
	"github.com/datacenter/wiper/internal/ui/tui"
)

// Recorder interface for testing - matches journal.Journal.
type Recorder interface {
	Append(ctx context.Context, entry journal.Entry) error
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
	ByTarget(ctx context.Context, target string, limit int) ([]journal.Entry, error)
	Close() error
}

// Archiver interface for testing - matches archive.Archive.
type Archiver interface {
	EnsureBucket(ctx context.Context) error
	Upload(ctx context.Context, outcome *provision.Outcome) (string, error)
	Ping(ctx context.Context) (bool, error)
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// resolveConfig merges the configuration layers for a target.
	resolveConfig = config.Resolve

	// loadProfile reads a prompt profile from a YAML file.
	loadProfile = provision.LoadProfile

	// loadArchiveConfig reads the optional [archive] INI section.
	loadArchiveConfig = config.LoadArchive

	// runProvision executes the provisioning run.
	runProvision = provision.Run

	// runDashboard wraps the run with the progress dashboard.
	runDashboard = tui.RunProvisionTUI

	// openJournal opens the run history database.
	openJournal = func(path string) (Recorder, error) {
		return journal.Open(path)
	}

	// newArchive creates the transcript archive client.
	newArchive = func(cfg *config.ArchiveConfig) (Archiver, error) {
		return archive.New(cfg)
	}

	// userHomeDir resolves the home directory for state paths.
	userHomeDir = os.UserHomeDir
)

// RunOptions carries everything the run command collected from flags
// and arguments.
type RunOptions struct {
	Target      string
	IniFile     string
	Overrides   map[string]string
	ProfilePath string
	JournalPath string
	NoJournal   bool
	NoTUI       bool
	Verbose     bool
	Quiet       bool
}

// Run wipes one APIC controller and drives its setup wizard end to end.
//
// This function orchestrates the complete provisioning workflow:
//  1. Resolves configuration for the target (INI file, built-in
//     defaults and command-line overrides)
//  2. Connects to the CIMC, attaches to the host console over Serial
//     over LAN, erases the configuration and answers every wizard
//     prompt until the completion milestone
//  3. Uploads the console transcript when an archive is configured
//  4. Records the outcome in the run journal
//
// Failed runs are journaled too, including runs whose configuration
// never resolved, so the history shows every attempt against a
// controller rather than only the ones that reached a console.
//
// The error is nil only when the controller reached its completion
// milestone.
func Run(ctx context.Context, opts RunOptions) error {
	useTUI := !opts.NoTUI && !opts.Verbose && !opts.Quiet && isInteractiveTTY()
	initLogging(opts.Verbose, !useTUI && !opts.Quiet)

	cfg, err := resolveConfig(config.Options{
		Target:    opts.Target,
		IniFile:   opts.IniFile,
		Overrides: opts.Overrides,
	})
	if err != nil {
		recordRun(ctx, opts, provision.Failure(opts.Target, provision.StageConfiguring, err), "")
		return err
	}

	profile, err := resolveProfile(opts.ProfilePath)
	if err != nil {
		recordRun(ctx, opts, provision.Failure(opts.Target, provision.StageConfiguring, err), "")
		return err
	}

	if !useTUI && !opts.Quiet {
		fmt.Printf("Provisioning %s: controller %d of %d in fabric %q\n",
			cfg.Target, cfg.ControllerNumber, cfg.NumberOfControllers, cfg.FabricName)
		fmt.Printf("The controller will be wiped. Expect 10 to 20 minutes on physical hardware.\n\n")
	}

	outcome := executeRun(ctx, cfg, profile, useTUI)

	archiveKey := uploadTranscript(ctx, opts.IniFile, outcome)
	recordRun(ctx, opts, outcome, archiveKey)

	if !outcome.Succeeded() {
		if outcome.Step != "" {
			return fmt.Errorf("provisioning %s failed during %s at the %s prompt: %w", outcome.Target, outcome.Stage, outcome.Step, outcome.Err)
		}
		return fmt.Errorf("provisioning %s failed during %s: %w", outcome.Target, outcome.Stage, outcome.Err)
	}
	if !opts.Quiet {
		printRunSuccess(cfg, outcome, archiveKey)
	}
	return nil
}

// executeRun runs the provisioner, behind the dashboard when the
// terminal supports one. A dashboard failure is logged and the outcome
// kept; losing the display must not lose the run.
func executeRun(ctx context.Context, cfg *config.Config, profile *provision.Profile, useTUI bool) *provision.Outcome {
	if !useTUI {
		return runProvision(ctx, cfg, provision.Options{Profile: profile})
	}

	outcome, err := runDashboard(ctx, cfg, profile, func(ctx context.Context, observer provision.Observer) *provision.Outcome {
		return runProvision(ctx, cfg, provision.Options{Profile: profile, Observer: observer})
	})
	if err != nil {
		logging.L().WithError(err).Warn("dashboard failed, run outcome kept")
	}
	return outcome
}

// resolveProfile loads the prompt profile named on the command line,
// or defers to the built-in catalogue when none was given.
func resolveProfile(path string) (*provision.Profile, error) {
	if path == "" {
		return nil, nil
	}
	return loadProfile(path)
}

// recordRun appends the outcome to the journal. Journal trouble is
// logged and swallowed; a run that already reshaped a controller must
// not fail because the history database is unavailable.
func recordRun(ctx context.Context, opts RunOptions, outcome *provision.Outcome, archiveKey string) {
	if opts.NoJournal {
		return
	}
	path := opts.JournalPath
	if path == "" {
		path = defaultJournalPath()
	}

	j, err := openJournal(path)
	if err != nil {
		logging.WithField("path", path).WithError(err).Warn("journal unavailable, run not recorded")
		return
	}
	defer j.Close()

	if err := j.Append(ctx, journal.NewEntry(outcome, archiveKey)); err != nil {
		logging.L().WithError(err).Warn("recording run in journal failed")
	}
}

// uploadTranscript stores the console transcript when the INI file
// carries an [archive] section. Upload failures never fail the run;
// the transcript is still in the log file.
func uploadTranscript(ctx context.Context, iniFile string, outcome *provision.Outcome) string {
	archiveCfg, err := loadArchiveConfig(iniFile)
	if err != nil {
		logging.L().WithError(err).Warn("archive configuration unreadable, transcript not uploaded")
		return ""
	}
	if archiveCfg == nil {
		return ""
	}

	store, err := newArchive(archiveCfg)
	if err != nil {
		logging.L().WithError(err).Warn("archive client failed, transcript not uploaded")
		return ""
	}
	if err := store.EnsureBucket(ctx); err != nil {
		logging.L().WithError(err).Warn("archive bucket unavailable, transcript not uploaded")
		return ""
	}
	key, err := store.Upload(ctx, outcome)
	if err != nil {
		logging.L().WithError(err).Warn("transcript upload failed")
		return ""
	}
	return key
}

// printRunSuccess outputs the completion summary and what to do next.
func printRunSuccess(cfg *config.Config, outcome *provision.Outcome, archiveKey string) {
	fmt.Printf("\nProvisioning complete!\n\n")
	fmt.Printf("  Target:     %s\n", outcome.Target)
	fmt.Printf("  Controller: %s (%d of %d)\n", cfg.ControllerName, cfg.ControllerNumber, cfg.NumberOfControllers)
	fmt.Printf("  Fabric:     %s\n", cfg.FabricName)
	fmt.Printf("  Duration:   %s\n", outcome.Duration.Round(time.Second))
	fmt.Printf("  Prompts:    %d answered\n", len(outcome.Answered))
	if archiveKey != "" {
		fmt.Printf("  Transcript: %s\n", archiveKey)
	}
	fmt.Println()

	if cfg.ControllerNumber < cfg.NumberOfControllers {
		fmt.Println("Provision the remaining controllers, then verify the cluster in the APIC GUI.")
	} else {
		fmt.Println("Once its peers are up the cluster forms; verify it in the APIC GUI.")
	}
}

// initLogging configures the process logger. The rotated file under
// the state directory receives everything; stderr only echoes when
// console is true, so the dashboard's frames stay intact.
func initLogging(verbose, console bool) {
	level := "info"
	if verbose {
		level = "debug"
	}
	if err := logging.Init(logging.Options{Level: level, FilePath: defaultLogPath(), Console: console}); err != nil {
		_ = logging.Init(logging.Options{Level: level, Console: console})
	}
}

// stateDir is where wiper keeps its journal and log file.
func stateDir() string {
	home, err := userHomeDir()
	if err != nil {
		return ".wiper"
	}
	return filepath.Join(home, ".wiper")
}

func defaultJournalPath() string { return filepath.Join(stateDir(), "wiper.db") }
func defaultLogPath() string     { return filepath.Join(stateDir(), "wiper.log") }

func isInteractiveTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

package handlers

import (
	"context"
	"fmt"

	"github.com/datacenter/wiper/internal/config"
	"github.com/datacenter/wiper/internal/platform/cimc"
	"github.com/datacenter/wiper/internal/ui/tui"
)

// SolProbe reads the Serial over LAN state without changing it.
type SolProbe interface {
	SolConfigured(ctx context.Context) (bool, error)
}

// ConsoleProbe interface for testing - matches cimc.Client with the
// console narrowed to the Serial over LAN probe.
type ConsoleProbe interface {
	Connect(ctx context.Context) error
	Authenticate(ctx context.Context) error
	OpenConsole(ctx context.Context) (SolProbe, error)
	Close()
}

type cimcProbe struct {
	client *cimc.Client
}

func (p *cimcProbe) Connect(ctx context.Context) error      { return p.client.Connect(ctx) }
func (p *cimcProbe) Authenticate(ctx context.Context) error { return p.client.Authenticate(ctx) }
func (p *cimcProbe) Close()                                 { p.client.Close() }

func (p *cimcProbe) OpenConsole(ctx context.Context) (SolProbe, error) {
	console, err := p.client.OpenConsole(ctx)
	if err != nil {
		return nil, err
	}
	return console, nil
}

// newConsoleProbe creates the CIMC client for preflight probes.
var newConsoleProbe = func(cfg *cimc.Config) (ConsoleProbe, error) {
	client, err := cimc.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &cimcProbe{client: client}, nil
}

// Doctor preflights one controller without changing it.
//
// The checks mirror what a run needs: configuration that resolves, a
// CIMC that answers on its SSH port, credentials that work, and a look
// at the Serial over LAN setting. The run journal and the optional
// transcript archive are probed too, so a run started after a clean
// doctor pass has everything in place.
func Doctor(ctx context.Context, target, iniFile, journalPath string) error {
	initLogging(false, false)

	var checks []tui.Check

	cfg := checkConfiguration(&checks, target, iniFile)
	checkConsole(ctx, &checks, cfg)
	checkJournal(ctx, &checks, journalPath)
	checkArchive(ctx, &checks, iniFile)

	fmt.Println(tui.RenderChecks(target, checks))

	failed := 0
	for _, check := range checks {
		if !check.Ok && !check.Skipped {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d preflight check(s) failed", failed)
	}
	return nil
}

// checkConfiguration resolves the target's configuration and reports
// the controller identity it would provision.
func checkConfiguration(checks *[]tui.Check, target, iniFile string) *config.Config {
	cfg, err := resolveConfig(config.Options{Target: target, IniFile: iniFile})
	if err != nil {
		*checks = append(*checks, tui.Check{Name: "configuration", Detail: err.Error()})
		return nil
	}
	detail := fmt.Sprintf("%s, controller %d of %d in %q",
		cfg.ControllerName, cfg.ControllerNumber, cfg.NumberOfControllers, cfg.FabricName)
	*checks = append(*checks, tui.Check{Name: "configuration", Ok: true, Detail: detail})
	return cfg
}

// checkConsole probes TCP reach, SSH authentication and the Serial
// over LAN setting. Each failure skips the probes behind it.
func checkConsole(ctx context.Context, checks *[]tui.Check, cfg *config.Config) {
	names := []string{"cimc reachable", "cimc credentials", "serial over lan"}
	skipFrom := func(i int, detail string) {
		for _, name := range names[i:] {
			*checks = append(*checks, tui.Check{Name: name, Skipped: true, Detail: detail})
		}
	}

	if cfg == nil {
		skipFrom(0, "configuration did not resolve")
		return
	}

	probe, err := newConsoleProbe(&cimc.Config{
		Target:   cfg.Target,
		Username: cfg.CIMCUsername,
		Password: cfg.CIMCPassword,
	})
	if err != nil {
		*checks = append(*checks, tui.Check{Name: names[0], Detail: err.Error()})
		skipFrom(1, "no cimc client")
		return
	}
	defer probe.Close()

	if err := probe.Connect(ctx); err != nil {
		*checks = append(*checks, tui.Check{Name: names[0], Detail: err.Error()})
		skipFrom(1, "cimc unreachable")
		return
	}
	*checks = append(*checks, tui.Check{Name: names[0], Ok: true, Detail: "ssh port answers"})

	if err := probe.Authenticate(ctx); err != nil {
		*checks = append(*checks, tui.Check{Name: names[1], Detail: err.Error()})
		skipFrom(2, "not authenticated")
		return
	}
	*checks = append(*checks, tui.Check{Name: names[1], Ok: true, Detail: "user " + cfg.CIMCUsername})

	console, err := probe.OpenConsole(ctx)
	if err != nil {
		*checks = append(*checks, tui.Check{Name: names[2], Detail: err.Error()})
		return
	}
	configured, err := console.SolConfigured(ctx)
	switch {
	case err != nil:
		*checks = append(*checks, tui.Check{Name: names[2], Detail: err.Error()})
	case configured:
		*checks = append(*checks, tui.Check{Name: names[2], Ok: true, Detail: "enabled at 115200 baud"})
	default:
		*checks = append(*checks, tui.Check{Name: names[2], Skipped: true, Detail: "not configured, a run will enable it"})
	}
}

// checkJournal opens the run history database and reads from it.
func checkJournal(ctx context.Context, checks *[]tui.Check, journalPath string) {
	path := journalPath
	if path == "" {
		path = defaultJournalPath()
	}

	j, err := openJournal(path)
	if err != nil {
		*checks = append(*checks, tui.Check{Name: "run journal", Detail: err.Error()})
		return
	}
	defer j.Close()

	entries, err := j.Recent(ctx, 1)
	if err != nil {
		*checks = append(*checks, tui.Check{Name: "run journal", Detail: err.Error()})
		return
	}
	detail := path
	if len(entries) == 0 {
		detail += ", no runs recorded yet"
	}
	*checks = append(*checks, tui.Check{Name: "run journal", Ok: true, Detail: detail})
}

// checkArchive heads the transcript bucket when an [archive] section
// is configured. A missing bucket is fine; the first upload creates it.
func checkArchive(ctx context.Context, checks *[]tui.Check, iniFile string) {
	archiveCfg, err := loadArchiveConfig(iniFile)
	if err != nil {
		*checks = append(*checks, tui.Check{Name: "transcript archive", Detail: err.Error()})
		return
	}
	if archiveCfg == nil {
		*checks = append(*checks, tui.Check{Name: "transcript archive", Skipped: true, Detail: "not configured"})
		return
	}

	store, err := newArchive(archiveCfg)
	if err != nil {
		*checks = append(*checks, tui.Check{Name: "transcript archive", Detail: err.Error()})
		return
	}
	ok, err := store.Ping(ctx)
	switch {
	case err != nil:
		*checks = append(*checks, tui.Check{Name: "transcript archive", Detail: err.Error()})
	case ok:
		*checks = append(*checks, tui.Check{Name: "transcript archive", Ok: true, Detail: "bucket " + archiveCfg.Bucket})
	default:
		*checks = append(*checks, tui.Check{Name: "transcript archive", Ok: true, Detail: "bucket created on first upload"})
	}
}

package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datacenter/wiper/internal/config"
	"github.com/datacenter/wiper/internal/platform/cimc"
)

// fakeSol reports a canned Serial over LAN state.
type fakeSol struct {
	configured bool
	err        error
}

func (s *fakeSol) SolConfigured(context.Context) (bool, error) { return s.configured, s.err }

// fakeProbe implements ConsoleProbe without a CIMC behind it.
type fakeProbe struct {
	connectErr error
	authErr    error
	consoleErr error
	sol        fakeSol
	closed     bool
}

func (p *fakeProbe) Connect(context.Context) error      { return p.connectErr }
func (p *fakeProbe) Authenticate(context.Context) error { return p.authErr }
func (p *fakeProbe) Close()                             { p.closed = true }

func (p *fakeProbe) OpenConsole(context.Context) (SolProbe, error) {
	if p.consoleErr != nil {
		return nil, p.consoleErr
	}
	return &p.sol, nil
}

// stubDoctorBaseline wires every probe to a clean pass; individual
// tests break the piece they exercise.
func stubDoctorBaseline(probe *fakeProbe) {
	resolveConfig = func(opts config.Options) (*config.Config, error) {
		return testRunConfig(opts.Target), nil
	}
	newConsoleProbe = func(*cimc.Config) (ConsoleProbe, error) { return probe, nil }
	openJournal = func(string) (Recorder, error) { return &memoryRecorder{}, nil }
	loadArchiveConfig = func(string) (*config.ArchiveConfig, error) { return nil, nil }
}

func TestDoctor_AllChecksPass(t *testing.T) {
	saveAndRestoreFactories(t)

	probe := &fakeProbe{sol: fakeSol{configured: true}}
	stubDoctorBaseline(probe)

	var err error
	output := captureOutput(func() {
		err = Doctor(context.Background(), "apic1-cimc.lab", "wiper.ini", "runs.db")
	})

	require.NoError(t, err)
	assert.True(t, probe.closed)
	assert.Contains(t, output, "wiper doctor: apic1-cimc.lab")
	assert.Contains(t, output, `apic1, controller 1 of 3 in "lab-fabric"`)
	assert.Contains(t, output, "ssh port answers")
	assert.Contains(t, output, "user admin")
	assert.Contains(t, output, "enabled at 115200 baud")
	assert.Contains(t, output, "runs.db, no runs recorded yet")
	assert.Contains(t, output, "not configured")
	assert.Contains(t, output, "all checks passed")
}

func TestDoctor_ConfigurationFailure(t *testing.T) {
	saveAndRestoreFactories(t)
	stubDoctorBaseline(&fakeProbe{})

	resolveConfig = func(config.Options) (*config.Config, error) {
		return nil, errors.New("missing required keys: cimc_password")
	}

	var err error
	output := captureOutput(func() {
		err = Doctor(context.Background(), "apic1-cimc.lab", "wiper.ini", "runs.db")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 preflight check(s) failed")
	assert.Contains(t, output, "missing required keys: cimc_password")
	assert.Contains(t, output, "configuration did not resolve")
}

func TestDoctor_UnreachableCIMC(t *testing.T) {
	saveAndRestoreFactories(t)

	probe := &fakeProbe{connectErr: errors.New("dial tcp 203.0.113.9:22: i/o timeout")}
	stubDoctorBaseline(probe)

	var err error
	output := captureOutput(func() {
		err = Doctor(context.Background(), "apic1-cimc.lab", "wiper.ini", "runs.db")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 preflight check(s) failed")
	assert.Contains(t, output, "i/o timeout")
	assert.Contains(t, output, "cimc unreachable")
	assert.True(t, probe.closed)
}

func TestDoctor_BadCredentials(t *testing.T) {
	saveAndRestoreFactories(t)

	probe := &fakeProbe{authErr: errors.New("ssh: unable to authenticate")}
	stubDoctorBaseline(probe)

	var err error
	output := captureOutput(func() {
		err = Doctor(context.Background(), "apic1-cimc.lab", "wiper.ini", "runs.db")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 preflight check(s) failed")
	assert.Contains(t, output, "unable to authenticate")
	assert.Contains(t, output, "not authenticated")
}

func TestDoctor_SolNotConfiguredIsNotAFailure(t *testing.T) {
	saveAndRestoreFactories(t)
	stubDoctorBaseline(&fakeProbe{sol: fakeSol{configured: false}})

	var err error
	output := captureOutput(func() {
		err = Doctor(context.Background(), "apic1-cimc.lab", "wiper.ini", "runs.db")
	})

	require.NoError(t, err)
	assert.Contains(t, output, "not configured, a run will enable it")
	assert.Contains(t, output, "all checks passed")
}

func TestDoctor_SolProbeFailure(t *testing.T) {
	saveAndRestoreFactories(t)
	stubDoctorBaseline(&fakeProbe{consoleErr: errors.New("console shell did not open")})

	var err error
	output := captureOutput(func() {
		err = Doctor(context.Background(), "apic1-cimc.lab", "wiper.ini", "runs.db")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 preflight check(s) failed")
	assert.Contains(t, output, "console shell did not open")
}

func TestDoctor_JournalFailure(t *testing.T) {
	saveAndRestoreFactories(t)
	stubDoctorBaseline(&fakeProbe{sol: fakeSol{configured: true}})

	openJournal = func(string) (Recorder, error) {
		return nil, errors.New("unable to open database file")
	}

	var err error
	output := captureOutput(func() {
		err = Doctor(context.Background(), "apic1-cimc.lab", "wiper.ini", "runs.db")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 preflight check(s) failed")
	assert.Contains(t, output, "unable to open database file")
}

func TestDoctor_ArchiveChecks(t *testing.T) {
	archiveCfg := &config.ArchiveConfig{
		Endpoint:  "minio.lab:9000",
		Region:    "us-east-1",
		Bucket:    "wiper",
		AccessKey: "wiper",
		SecretKey: "secret",
	}

	t.Run("bucket exists", func(t *testing.T) {
		saveAndRestoreFactories(t)
		stubDoctorBaseline(&fakeProbe{sol: fakeSol{configured: true}})

		loadArchiveConfig = func(string) (*config.ArchiveConfig, error) { return archiveCfg, nil }
		newArchive = func(*config.ArchiveConfig) (Archiver, error) {
			return &fakeArchiver{pingOK: true}, nil
		}

		var err error
		output := captureOutput(func() {
			err = Doctor(context.Background(), "apic1-cimc.lab", "wiper.ini", "runs.db")
		})

		require.NoError(t, err)
		assert.Contains(t, output, "bucket wiper")
	})

	t.Run("bucket missing is fine", func(t *testing.T) {
		saveAndRestoreFactories(t)
		stubDoctorBaseline(&fakeProbe{sol: fakeSol{configured: true}})

		loadArchiveConfig = func(string) (*config.ArchiveConfig, error) { return archiveCfg, nil }
		newArchive = func(*config.ArchiveConfig) (Archiver, error) {
			return &fakeArchiver{pingOK: false}, nil
		}

		var err error
		output := captureOutput(func() {
			err = Doctor(context.Background(), "apic1-cimc.lab", "wiper.ini", "runs.db")
		})

		require.NoError(t, err)
		assert.Contains(t, output, "bucket created on first upload")
	})

	t.Run("endpoint unreachable", func(t *testing.T) {
		saveAndRestoreFactories(t)
		stubDoctorBaseline(&fakeProbe{sol: fakeSol{configured: true}})

		loadArchiveConfig = func(string) (*config.ArchiveConfig, error) { return archiveCfg, nil }
		newArchive = func(*config.ArchiveConfig) (Archiver, error) {
			return &fakeArchiver{pingErr: errors.New("connection refused")}, nil
		}

		var err error
		output := captureOutput(func() {
			err = Doctor(context.Background(), "apic1-cimc.lab", "wiper.ini", "runs.db")
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 preflight check(s) failed")
		assert.Contains(t, output, "connection refused")
	})
}

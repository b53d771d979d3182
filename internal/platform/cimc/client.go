package cimc

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"github.com/datacenter/wiper/internal/config"
	"github.com/datacenter/wiper/internal/expect"
	"github.com/datacenter/wiper/internal/logging"
)

const defaultPort = 22

// Config holds the management channel settings for one CIMC.
type Config struct {
	Target   string
	Port     int
	Username string
	Password string

	// Timeouts bounds every operation on the channel.
	// If nil, config.DefaultTimeouts() is used.
	Timeouts *config.Timeouts

	// HostKeyCallback handles host key verification.
	// If nil, ssh.InsecureIgnoreHostKey() is used; CIMC host keys are
	// self-signed and regenerate on factory reset.
	HostKeyCallback ssh.HostKeyCallback
}

// Client owns the SSH connection to one CIMC and the console attached
// through it. Methods are meant to be called from a single goroutine
// in the order Connect, Authenticate, OpenConsole.
type Client struct {
	config *Config
	addr   string
	log    *logrus.Entry

	conn      net.Conn
	ssh       *ssh.Client
	console   *Console
	stopKeep  chan struct{}
	closeOnce sync.Once
}

// NewClient validates the configuration and returns an unconnected
// client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Target == "" {
		return nil, fmt.Errorf("config target cannot be empty")
	}
	if cfg.Username == "" {
		return nil, fmt.Errorf("config username cannot be empty")
	}
	if cfg.Password == "" {
		return nil, fmt.Errorf("config password cannot be empty")
	}

	// Copy config to avoid mutating caller's struct
	configCopy := *cfg
	if configCopy.Port == 0 {
		configCopy.Port = defaultPort
	}
	if configCopy.Timeouts == nil {
		configCopy.Timeouts = config.DefaultTimeouts()
	}
	if configCopy.HostKeyCallback == nil {
		configCopy.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // CIMC host keys regenerate on factory reset
	}

	return &Client{
		config: &configCopy,
		addr:   net.JoinHostPort(configCopy.Target, strconv.Itoa(configCopy.Port)),
		log:    logging.WithField("target", configCopy.Target),
	}, nil
}

// Connect establishes the TCP connection to the CIMC.
func (c *Client) Connect(ctx context.Context) error {
	dialer := &net.Dialer{Timeout: c.config.Timeouts.Dial}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return &ConnectionError{Op: "dial", Target: c.addr, Err: err}
	}
	c.conn = conn
	return nil
}

// Authenticate performs the SSH handshake on the established
// connection. CIMC firmware ships old key exchange and cipher suites,
// so the legacy algorithm lists stay enabled, and some firmware
// revisions only offer keyboard-interactive authentication.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}

	password := c.config.Password
	sshConfig := &ssh.ClientConfig{
		User: c.config.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: c.config.HostKeyCallback,
		Timeout:         c.config.Timeouts.Dial,
		Config: ssh.Config{
			KeyExchanges: []string{
				"diffie-hellman-group14-sha256",
				"diffie-hellman-group14-sha1",
				"diffie-hellman-group1-sha1",
				"diffie-hellman-group-exchange-sha256",
				"diffie-hellman-group-exchange-sha1",
				"ecdh-sha2-nistp256",
				"ecdh-sha2-nistp384",
				"ecdh-sha2-nistp521",
			},
			Ciphers: []string{
				"aes128-ctr",
				"aes192-ctr",
				"aes256-ctr",
				"aes128-gcm@openssh.com",
				"aes256-gcm@openssh.com",
				"aes128-cbc",
				"aes256-cbc",
				"3des-cbc",
			},
			MACs: []string{
				"hmac-sha2-256-etm@openssh.com",
				"hmac-sha2-256",
				"hmac-sha1",
				"hmac-sha1-96",
			},
		},
		HostKeyAlgorithms: []string{
			"ssh-rsa",
			"rsa-sha2-256",
			"rsa-sha2-512",
			"ecdsa-sha2-nistp256",
			"ecdsa-sha2-nistp384",
			"ecdsa-sha2-nistp521",
		},
	}

	// ssh.NewClientConn has no context parameter; a deadline on the
	// underlying connection bounds the handshake instead.
	deadline := time.Now().Add(c.config.Timeouts.Dial)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetDeadline(deadline)

	sshConn, chans, reqs, err := ssh.NewClientConn(c.conn, c.addr, sshConfig)
	if err != nil {
		return &ConnectionError{Op: "auth", Target: c.addr, Err: err}
	}
	_ = c.conn.SetDeadline(time.Time{})

	c.ssh = ssh.NewClient(sshConn, chans, reqs)
	c.stopKeep = make(chan struct{})
	go c.keepAlive()
	return nil
}

// OpenConsole opens the control and console shells. The returned
// Console is not yet attached to the host; call Launch on it.
func (c *Client) OpenConsole(ctx context.Context) (*Console, error) {
	if c.ssh == nil {
		return nil, fmt.Errorf("not authenticated")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	transcript := &expect.Transcript{}
	control, err := openShell(c.ssh, transcript)
	if err != nil {
		return nil, &ConsoleLaunchError{Target: c.config.Target, Err: fmt.Errorf("control shell: %w", err)}
	}
	host, err := openShell(c.ssh, transcript)
	if err != nil {
		control.close(c.log)
		return nil, &ConsoleLaunchError{Target: c.config.Target, Err: fmt.Errorf("console shell: %w", err)}
	}

	c.console = &Console{
		target:     c.config.Target,
		control:    control,
		host:       host,
		transcript: transcript,
		timeouts:   c.config.Timeouts,
		log:        c.log,
	}
	return c.console, nil
}

// Close releases the console shells and the SSH connection. It is safe
// to call multiple times and after partial setup; only the first call
// does the work. Errors on teardown are logged, not returned, because
// by the time Close runs the outcome of the run is already decided.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		if c.stopKeep != nil {
			close(c.stopKeep)
		}
		if c.console != nil {
			c.console.close()
		}
		if c.ssh != nil {
			if err := c.ssh.Close(); err != nil {
				c.log.WithError(err).Debug("closing ssh connection")
			}
		} else if c.conn != nil {
			if err := c.conn.Close(); err != nil {
				c.log.WithError(err).Debug("closing tcp connection")
			}
		}
	})
}

// keepAlive pings the server so the management network's idle timeout
// does not sever the session while the host spends minutes rebooting.
func (c *Client) keepAlive() {
	interval := c.config.Timeouts.KeepAlive
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopKeep:
			return
		case <-ticker.C:
			if _, _, err := c.ssh.SendRequest("keepalive@openssh.com", false, nil); err != nil {
				c.log.WithError(err).Debug("keepalive failed, connection likely gone")
				return
			}
		}
	}
}

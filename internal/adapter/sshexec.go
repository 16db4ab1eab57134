package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHTarget is a host reachable with password authentication
type SSHTarget struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Addr returns host:port, defaulting the port to 22
func (t SSHTarget) Addr() string {
	port := t.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(t.Host, strconv.Itoa(port))
}

// CommandResult is the outcome of one remote command. Success is true
// only when the command ran and exited 0.
type CommandResult struct {
	Success  bool
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

// ErrorText renders the failure the way operators expect to read it:
// stderr when there is any, the exit code otherwise
func (r CommandResult) ErrorText() string {
	switch {
	case r.Success:
		return ""
	case r.Err != nil && r.ExitCode < 0:
		return r.Err.Error()
	case r.Stderr != "":
		return r.Stderr
	default:
		return fmt.Sprintf("Exit code: %d", r.ExitCode)
	}
}

// CommandRunner runs a single command on a remote host
type CommandRunner interface {
	Run(ctx context.Context, target SSHTarget, command string) CommandResult
}

// SSHRunner runs commands over SSH, one connection per command
type SSHRunner struct {
	connectTimeout time.Duration
	commandTimeout time.Duration
}

// NewSSHRunner creates a runner. Zero timeouts fall back to 10s to
// connect and 30s per command.
func NewSSHRunner(connectTimeout, commandTimeout time.Duration) *SSHRunner {
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	if commandTimeout <= 0 {
		commandTimeout = 30 * time.Second
	}
	return &SSHRunner{connectTimeout: connectTimeout, commandTimeout: commandTimeout}
}

// Run implements CommandRunner. The connection is closed before Run
// returns, whatever the outcome.
func (r *SSHRunner) Run(ctx context.Context, target SSHTarget, command string) CommandResult {
	client, err := r.connect(ctx, target)
	if err != nil {
		return CommandResult{ExitCode: -1, Err: err}
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return CommandResult{ExitCode: -1, Err: fmt.Errorf("failed to create session: %w", err)}
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	timer := time.NewTimer(r.commandTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		res := CommandResult{Stdout: stdout.String(), Stderr: stderr.String()}
		var exitErr *ssh.ExitError
		switch {
		case err == nil:
			res.Success = true
		case errors.As(err, &exitErr):
			res.ExitCode = exitErr.ExitStatus()
			res.Err = err
		default:
			res.ExitCode = -1
			res.Err = fmt.Errorf("command failed: %w", err)
		}
		return res
	case <-timer.C:
		_ = session.Signal(ssh.SIGKILL)
		return CommandResult{ExitCode: -1, Err: fmt.Errorf("command timeout after %s", r.commandTimeout)}
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return CommandResult{ExitCode: -1, Err: ctx.Err()}
	}
}

func (r *SSHRunner) connect(ctx context.Context, target SSHTarget) (*ssh.Client, error) {
	if target.Host == "" {
		return nil, errors.New("ssh host is required")
	}
	if target.Username == "" {
		return nil, errors.New("ssh username is required")
	}

	password := target.Password
	config := &ssh.ClientConfig{
		User: target.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         r.connectTimeout,
	}

	addr := target.Addr()
	dialer := &net.Dialer{Timeout: r.connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	// Bound the handshake too; NewClientConn has no context
	_ = conn.SetDeadline(time.Now().Add(r.connectTimeout))
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to establish SSH connection: %w", err)
	}
	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(sshConn, chans, reqs), nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// Defaults used when a Runner option is not given.
const (
	DefaultPort           = 22
	DefaultDialTimeout    = 10 * time.Second
	DefaultCommandTimeout = 10 * time.Second
)

var (
	// ErrNoCredentials is returned when no complete login has been saved.
	ErrNoCredentials = errors.New("SSH credentials not configured.")

	// ErrCommandTimeout is returned when the command outlives the wait.
	ErrCommandTimeout = errors.New("command timed out")
)

// ExitError reports a command that finished with a non-zero status.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command failed with exit code %d: %s", e.Code, e.Stderr)
}

// CredentialSource supplies the login for each call.
// *CredentialStore implements it.
type CredentialSource interface {
	Load() (Credentials, bool)
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithPort sets the port used when the hostname has none.
func WithPort(port int) RunnerOption {
	return func(r *Runner) {
		if port > 0 {
			r.port = port
		}
	}
}

// WithDialTimeout bounds the TCP connect and SSH handshake.
func WithDialTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.dialTimeout = d
		}
	}
}

// WithCommandTimeout bounds how long Execute waits for the command.
func WithCommandTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.commandTimeout = d
		}
	}
}

// Runner executes one command per call on the saved host. Every call opens
// and closes its own connection.
//
// Host keys are not verified.
type Runner struct {
	creds          CredentialSource
	port           int
	dialTimeout    time.Duration
	commandTimeout time.Duration
}

// NewRunner creates a runner reading credentials from creds.
func NewRunner(creds CredentialSource, opts ...RunnerOption) *Runner {
	r := &Runner{
		creds:          creds,
		port:           DefaultPort,
		dialTimeout:    DefaultDialTimeout,
		commandTimeout: DefaultCommandTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute runs command and returns its stdout.
func (r *Runner) Execute(ctx context.Context, command string) (string, error) {
	creds, ok := r.creds.Load()
	if !ok {
		return "", ErrNoCredentials
	}
	addr := creds.Address(r.port)

	client, err := r.dial(ctx, addr, creds)
	if err != nil {
		log.Printf("SSH_CONNECT_FAILED | addr=%s err=%v", addr, err)
		return "", err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("open session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	if err := session.Start(command); err != nil {
		return "", fmt.Errorf("start command: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	timer := time.NewTimer(r.commandTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			var exitErr *ssh.ExitError
			if errors.As(err, &exitErr) {
				log.Printf("SSH_EXEC_FAILED | addr=%s code=%d", addr, exitErr.ExitStatus())
				return "", &ExitError{Code: exitErr.ExitStatus(), Stderr: strings.TrimSpace(stderr.String())}
			}
			return "", fmt.Errorf("run command: %w", err)
		}
		log.Printf("SSH_EXEC_OK | addr=%s bytes=%d", addr, stdout.Len())
		return stdout.String(), nil
	case <-timer.C:
		return "", fmt.Errorf("%w after %s", ErrCommandTimeout, r.commandTimeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// dial connects and authenticates. The handshake is bounded by the dial
// timeout and by ctx.
func (r *Runner) dial(ctx context.Context, addr string, creds Credentials) (*ssh.Client, error) {
	password := creds.Password
	cfg := &ssh.ClientConfig{
		User: creds.Username,
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
		Timeout:         r.dialTimeout,
	}

	dialer := net.Dialer{Timeout: r.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}

	deadline := time.Now().Add(r.dialTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(c, chans, reqs), nil
}

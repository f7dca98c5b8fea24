// Package sshexec executes single commands on cluster nodes over SSH.
//
// Connections use fixed options suited to unattended monitoring: host key
// verification is skipped (nodes reinstall and change keys mid-bootstrap)
// and the connect timeout is short. There is no retry inside a single
// execution; a failed probe becomes one finding and the next diagnostic
// cycle tries again.
package sshexec

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/ssh"
)

const (
	defaultPort        = 22
	defaultDialTimeout = 5 * time.Second
)

// Config holds SSH connection settings shared by all probes.
type Config struct {
	User       string
	Port       int
	PrivateKey []byte

	// DialTimeout is the timeout for establishing the TCP connection.
	// If zero, defaultDialTimeout is used.
	DialTimeout time.Duration
}

// Runner executes one command on one host. Implemented by Client; faked in
// diagnostics tests.
type Runner interface {
	Run(ctx context.Context, host, command string) (string, error)
}

// Client implements Runner over SSH. The private key is parsed once during
// construction; connections are created per call and closed immediately.
type Client struct {
	config Config
	signer ssh.Signer
}

// NewClient creates an SSH client and validates the private key.
func NewClient(cfg Config) (*Client, error) {
	if cfg.User == "" {
		return nil, fmt.Errorf("ssh user cannot be empty")
	}
	if len(cfg.PrivateKey) == 0 {
		return nil, fmt.Errorf("ssh private key cannot be empty")
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaultDialTimeout
	}

	signer, err := ssh.ParsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &Client{config: cfg, signer: signer}, nil
}

// Run executes a command on the given host and returns its combined output.
// The context deadline bounds the whole call; on expiry the connection is
// torn down and the pending output discarded.
func (c *Client) Run(ctx context.Context, host, command string) (string, error) {
	clientConfig := &ssh.ClientConfig{
		User:            c.config.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(c.signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // #nosec G106 -- nodes change keys during install
		Timeout:         c.config.DialTimeout,
	}

	addr := fmt.Sprintf("%s:%d", host, c.config.Port)
	client, err := ssh.Dial("tcp", addr, clientConfig)
	if err != nil {
		return "", fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to create session on %s: %w", addr, err)
	}
	defer func() { _ = session.Close() }()

	type result struct {
		output []byte
		err    error
	}
	done := make(chan result, 1)
	go func() {
		output, err := session.CombinedOutput(command)
		done <- result{output, err}
	}()

	select {
	case <-ctx.Done():
		// Closing the client unblocks CombinedOutput; the goroutine's
		// result is dropped via the buffered channel.
		_ = client.Close()
		return "", fmt.Errorf("command on %s: %w", addr, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return string(res.output), fmt.Errorf("command failed on %s: %w", addr, res.err)
		}
		return string(res.output), nil
	}
}

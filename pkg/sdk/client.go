// Package sdk provides the client-side library for talking to a passport host.
// It supports both remote connections via TCP/TLS and local embedded mode.
package sdk

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/celerix-dev/celerix-passport/pkg/passport"
	"github.com/celerix-dev/celerix-passport/pkg/schema"
)

const (
	maxAttempts    = 3
	defaultTimeout = 30 * time.Second
)

// errServer marks a reply the server produced; those are never retried.
var errServer = errors.New("server error")

// Client is a remote client for celerix-passportd.
// It implements the PassportStore interface.
type Client struct {
	addr   string
	useTLS bool
	conn   net.Conn
	reader *bufio.Reader
	mu     sync.Mutex // Protects concurrent access to the connection
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTLS selects TLS (the default) or plain TCP.
func WithTLS(enabled bool) ClientOption {
	return func(c *Client) {
		c.useTLS = enabled
	}
}

// Connect establishes a TLS-encrypted connection to a remote passport daemon.
func Connect(addr string, opts ...ClientOption) (*Client, error) {
	c := &Client{addr: addr, useTLS: true}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.reconnect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) reconnect() error {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	var conn net.Conn
	var err error

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 60 * time.Second,
	}

	if !c.useTLS {
		conn, err = dialer.Dial("tcp", c.addr)
	} else {
		config := &tls.Config{
			InsecureSkipVerify: true, // self-signed certs for internal traffic
		}
		conn, err = tls.DialWithDialer(dialer, "tcp", c.addr, config)
	}

	if err != nil {
		return err
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// roundTrip sends one command and returns the payload after "OK".
func (c *Client) roundTrip(ctx context.Context, cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	for i := 0; i < maxAttempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		if c.conn == nil {
			if reconnectErr := c.reconnect(); reconnectErr != nil {
				err = fmt.Errorf("reconnect failed: %w", reconnectErr)
				if waitErr := wait(ctx, time.Duration(i*100)*time.Millisecond); waitErr != nil {
					return "", waitErr
				}
				continue
			}
		}

		deadline, ok := ctx.Deadline()
		if !ok {
			deadline = time.Now().Add(defaultTimeout)
		}
		c.conn.SetDeadline(deadline)

		var resp string
		resp, err = c.exchange(cmd)
		if err == nil || errors.Is(err, errServer) {
			return resp, unwrapServer(err)
		}

		slog.Warn("passport sdk: request failed, reconnecting", "attempt", i+1, "error", err)
		if closeErr := c.reconnect(); closeErr != nil {
			slog.Warn("passport sdk: reconnect failed", "error", closeErr)
		}

		// Wait before retrying (linear backoff)
		if waitErr := wait(ctx, time.Duration((i+1)*200)*time.Millisecond); waitErr != nil {
			return "", waitErr
		}
	}

	return "", fmt.Errorf("failed after %d attempts. last error: %w", maxAttempts, err)
}

func (c *Client) exchange(cmd string) (string, error) {
	if _, err := fmt.Fprint(c.conn, cmd+"\n"); err != nil {
		return "", err
	}
	resp, err := c.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	resp = strings.TrimSpace(resp)
	switch {
	case strings.HasPrefix(resp, "ERR"):
		return "", &serverError{err: errorFromWire(strings.TrimSpace(strings.TrimPrefix(resp, "ERR")))}
	case resp == "OK":
		return "", nil
	case strings.HasPrefix(resp, "OK "):
		return strings.TrimPrefix(resp, "OK "), nil
	case resp == "PONG":
		return resp, nil
	}
	return "", fmt.Errorf("unexpected reply %q", resp)
}

// wait sleeps for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

type serverError struct{ err error }

func (e *serverError) Error() string        { return e.err.Error() }
func (e *serverError) Is(target error) bool { return target == errServer }
func (e *serverError) Unwrap() error        { return e.err }

func unwrapServer(err error) error {
	var se *serverError
	if errors.As(err, &se) {
		return se.err
	}
	return err
}

func (c *Client) Deploy(ctx context.Context, caller passport.AccountID, args passport.Args) (string, error) {
	payload, err := json.Marshal(schema.DeployRequest{
		Surname:   args.Surname,
		GivenName: args.GivenName,
		Birthday:  args.Birthday,
		Metadata:  args.Metadata,
	})
	if err != nil {
		return "", err
	}
	return c.roundTrip(ctx, fmt.Sprintf("DEPLOY %s %s", caller, payload))
}

func (c *Client) DisplayName(ctx context.Context, id string, caller passport.AccountID) (string, error) {
	var name string
	err := c.call(ctx, &name, "NAME %s %s", id, caller)
	return name, err
}

func (c *Client) IsActive(ctx context.Context, id string) (bool, error) {
	var active bool
	err := c.call(ctx, &active, "ACTIVE %s", id)
	return active, err
}

func (c *Client) Deactivate(ctx context.Context, id string, caller passport.AccountID) error {
	_, err := c.roundTrip(ctx, fmt.Sprintf("DEACTIVATE %s %s", id, caller))
	return err
}

func (c *Client) Metadata(ctx context.Context, id string, caller passport.AccountID) ([]byte, error) {
	var meta []byte
	err := c.call(ctx, &meta, "METADATA %s %s", id, caller)
	return meta, err
}

func (c *Client) List(ctx context.Context) ([]string, error) {
	var ids []string
	err := c.call(ctx, &ids, "LIST")
	return ids, err
}

// Ping checks that the daemon answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.roundTrip(ctx, "PING")
	return err
}

// Passport returns a handle bound to one record and caller.
func (c *Client) Passport(id string, caller passport.AccountID) *Handle {
	return Bind(c, id, caller)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	fmt.Fprintln(c.conn, "QUIT")
	err := c.conn.Close()
	c.conn = nil
	return err
}

// call runs a command whose reply payload is a JSON value and decodes it into out.
func (c *Client) call(ctx context.Context, out any, format string, args ...any) error {
	resp, err := c.roundTrip(ctx, fmt.Sprintf(format, args...))
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(resp), out)
}

package server

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
	"github.com/celerix-dev/celerix-passport/pkg/sdk"
)

// maxConnections bounds concurrently served connections.
const maxConnections = 100

// Router serves the line-based TCP protocol:
//
//	DEPLOY <caller> <json>   -> OK <record-id>
//	NAME <record> <caller>   -> OK <json string>
//	ACTIVE <record>          -> OK true|false
//	DEACTIVATE <record> <caller> -> OK
//	METADATA <record> <caller>   -> OK <json base64 string>
//	LIST                     -> OK <json array>
//	PING                     -> PONG
//	QUIT
//
// Failures are answered with "ERR <message>".
type Router struct {
	store sdk.PassportStore
	cert  *tls.Certificate

	mu       sync.Mutex
	listener net.Listener
	closed   bool
}

func NewRouter(s sdk.PassportStore) *Router {
	return &Router{store: s}
}

// SetCertificate sets the TLS certificate for the router
func (r *Router) SetCertificate(cert tls.Certificate) {
	r.cert = &cert
}

// Addr returns the bound address once Listen is running, nil before.
func (r *Router) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Listen starts the TCP server and blocks until Stop is called.
func (r *Router) Listen(port string) error {
	var listener net.Listener
	var err error

	if r.cert != nil {
		config := &tls.Config{Certificates: []tls.Certificate{*r.cert}, MinVersion: tls.VersionTLS12}
		listener, err = tls.Listen("tcp", ":"+port, config)
	} else {
		listener, err = net.Listen("tcp", ":"+port)
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return listener.Close()
	}
	r.listener = listener
	r.mu.Unlock()
	defer listener.Close()

	semaphore := make(chan struct{}, maxConnections)

	for {
		conn, err := listener.Accept()
		if err != nil {
			r.mu.Lock()
			closed := r.closed
			r.mu.Unlock()
			if closed {
				return nil
			}
			slog.Warn("accept failed", "error", err)
			continue
		}

		// Set aggressive timeouts for light traffic to prevent resource exhaustion
		conn.SetDeadline(time.Now().Add(5 * time.Minute))

		go func(c net.Conn) {
			semaphore <- struct{}{}
			defer func() {
				<-semaphore
				c.Close()
			}()
			r.HandleConnection(c)
		}(conn)
	}
}

// Stop closes the listener; Listen returns nil afterwards.
func (r *Router) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.listener == nil {
		return nil
	}
	return r.listener.Close()
}

// HandleConnection serves commands on conn until QUIT, EOF or a read timeout.
func (r *Router) HandleConnection(conn net.Conn) {
	reader := bufio.NewReader(conn)
	ctx := context.Background()

	for {
		// Set a deadline for the next command
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))

		line, err := reader.ReadString('\n')
		if err != nil {
			return // Connection closed or timeout
		}

		line = strings.TrimSpace(line)
		parts := strings.Fields(line)
		if len(parts) < 1 {
			continue
		}

		command := strings.ToUpper(parts[0])
		if command == "QUIT" {
			return
		}
		fmt.Fprintln(conn, r.dispatch(ctx, command, parts[1:], line))
	}
}

func (r *Router) dispatch(ctx context.Context, command string, args []string, line string) string {
	switch command {
	case "PING":
		return "PONG"

	case "DEPLOY":
		if len(args) < 2 {
			return "ERR usage: DEPLOY <caller> <json>"
		}
		caller, err := passport.ParseAccountID(args[0])
		if err != nil {
			return errLine(err)
		}
		// The payload is everything after the caller, whitespace included
		_, rest := cutField(line)
		_, payload := cutField(rest)
		var req schema.DeployRequest
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "ERR invalid json value"
		}
		id, err := r.store.Deploy(ctx, caller, passport.Args{
			Surname:   req.Surname,
			GivenName: req.GivenName,
			Birthday:  req.Birthday,
			Metadata:  req.Metadata,
		})
		if err != nil {
			return errLine(err)
		}
		return "OK " + id

	case "NAME":
		if len(args) < 2 {
			return "ERR usage: NAME <record> <caller>"
		}
		caller, err := passport.ParseAccountID(args[1])
		if err != nil {
			return errLine(err)
		}
		name, err := r.store.DisplayName(ctx, args[0], caller)
		if err != nil {
			return errLine(err)
		}
		return okJSON(name)

	case "ACTIVE":
		if len(args) < 1 {
			return "ERR usage: ACTIVE <record>"
		}
		active, err := r.store.IsActive(ctx, args[0])
		if err != nil {
			return errLine(err)
		}
		return okJSON(active)

	case "DEACTIVATE":
		if len(args) < 2 {
			return "ERR usage: DEACTIVATE <record> <caller>"
		}
		caller, err := passport.ParseAccountID(args[1])
		if err != nil {
			return errLine(err)
		}
		if err := r.store.Deactivate(ctx, args[0], caller); err != nil {
			return errLine(err)
		}
		return "OK"

	case "METADATA":
		if len(args) < 2 {
			return "ERR usage: METADATA <record> <caller>"
		}
		caller, err := passport.ParseAccountID(args[1])
		if err != nil {
			return errLine(err)
		}
		meta, err := r.store.Metadata(ctx, args[0], caller)
		if err != nil {
			return errLine(err)
		}
		return okJSON(meta)

	case "LIST":
		ids, err := r.store.List(ctx)
		if err != nil {
			return errLine(err)
		}
		if ids == nil {
			ids = []string{}
		}
		return okJSON(ids)
	}
	return "ERR unknown command " + command
}

// cutField splits off the first whitespace-separated field of s.
func cutField(s string) (field, rest string) {
	s = strings.TrimLeft(s, " \t")
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeft(s[i:], " \t")
}

func okJSON(v any) string {
	res, err := json.Marshal(v)
	if err != nil {
		return "ERR internal error"
	}
	return "OK " + string(res)
}

// errLine renders err on a single line so it cannot break the framing.
func errLine(err error) string {
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	if errors.Is(err, passport.ErrCallerIsNotOwner) {
		msg = passport.ErrCallerIsNotOwner.Error()
	}
	return "ERR " + msg
}

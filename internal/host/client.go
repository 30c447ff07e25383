package host

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"tradepost/pkg/core"
)

// Client is the overlay's side of the host bridge.
type Client struct {
	socketPath string
	log        core.Logger
	stats      *Observable
	dialer     net.Dialer

	mu        sync.Mutex
	ready     bool
	caps      map[string]*Capability
	pending   map[string][]func(*Capability)
	acquiring map[string]bool
}

// NewClient returns a client for the host listening on socketPath.
func NewClient(socketPath string, log core.Logger) *Client {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	return &Client{
		socketPath: socketPath,
		log:        log,
		stats:      NewObservable(),
		dialer:     net.Dialer{Timeout: 5 * time.Second},
		caps:       make(map[string]*Capability),
		pending:    make(map[string][]func(*Capability)),
		acquiring:  make(map[string]bool),
	}
}

// Stats exposes the host stats observable.
func (c *Client) Stats() *Observable {
	return c.stats
}

// Call sends one command to the host and waits for its reply. A host
// rejection is returned as *Error with Rejected() true.
func (c *Client) Call(ctx context.Context, command string, args interface{}) (json.RawMessage, error) {
	c.log.Debug("Attempting to connect to host", "path", c.socketPath, "command", command)

	conn, err := c.dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		c.log.Error("Failed to connect to host", err, "command", command)
		return nil, &Error{Command: command, Err: err}
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	req := Request{Command: command}
	if args != nil {
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, &Error{Command: command, Err: fmt.Errorf("failed to encode args: %w", err)}
		}
		req.Args = raw
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		c.log.Error("Failed to encode request", err, "command", command)
		return nil, &Error{Command: command, Err: err}
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		c.log.Error("Failed to decode response", err, "command", command)
		return nil, &Error{Command: command, Err: err}
	}

	c.log.Debug("Response received", "command", command, "status", resp.Status)
	if resp.Status != StatusSuccess {
		return nil, &Error{Command: command, Message: resp.Message, Code: resp.Code}
	}
	return resp.Data, nil
}

// CallAsync runs Call on its own goroutine.
func (c *Client) CallAsync(ctx context.Context, command string, args interface{}) *Future[json.RawMessage] {
	return Go(func() (json.RawMessage, error) {
		return c.Call(ctx, command, args)
	})
}

// CallInto calls command and decodes the reply into out.
func (c *Client) CallInto(ctx context.Context, command string, args, out interface{}) error {
	data, err := c.Call(ctx, command, args)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Command: command, Err: fmt.Errorf("failed to decode reply: %w", err)}
	}
	return nil
}

// Connect performs the handshake, seeds the stats observable and releases
// any Import callbacks queued before the host was ready.
func (c *Client) Connect(ctx context.Context) error {
	var stats Stats
	if err := c.CallInto(ctx, CmdHandshake, nil, &stats); err != nil {
		return fmt.Errorf("failed to handshake with host: %w", err)
	}
	c.stats.Replace(stats)

	c.mu.Lock()
	c.ready = true
	var names []string
	for name := range c.pending {
		if !c.acquiring[name] {
			c.acquiring[name] = true
			names = append(names, name)
		}
	}
	c.mu.Unlock()

	c.log.Info("Connected to host",
		"session_id", stats.SessionID,
		"build_id", stats.BuildID,
		"language", stats.Language,
		"pending_imports", len(names))

	for _, name := range names {
		go c.acquire(context.WithoutCancel(ctx), name)
	}
	return nil
}

// Ready reports whether the handshake has completed.
func (c *Client) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

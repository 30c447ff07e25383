package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"tradepost/internal/host"
	"tradepost/pkg/core"
)

// Session supplies the host session context stamped into every request.
type Session interface {
	Current() host.Stats
}

// Client builds envelopes, sends them and classifies the replies.
type Client struct {
	baseURL      string
	protocolPath string
	transport    Transport
	session      Session
	log          core.Logger
}

func NewClient(baseURL, protocolPath string, transport Transport, session Session, log core.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		protocolPath: protocolPath,
		transport:    transport,
		session:      session,
		log:          log,
	}
}

// Envelope builds the envelope for command with a JSON body.
func (c *Client) Envelope(command string, body interface{}) (Envelope, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode %s body: %w", command, err)
	}

	headers := make(http.Header)
	headers.Set(HeaderSession, c.session.Current().SessionID)
	headers.Set(HeaderRequest, uuid.NewString())

	return Envelope{
		ProtocolPath: c.protocolPath,
		Command:      command,
		Headers:      headers,
		Body:         raw,
	}, nil
}

// Send performs command and returns the raw success body. Failures are
// *TransportError, *ProtocolError or *ParseError.
func (c *Client) Send(ctx context.Context, command string, body interface{}) (json.RawMessage, error) {
	env, err := c.Envelope(command, body)
	if err != nil {
		return nil, err
	}

	url := c.baseURL + env.Path(c.session.Current().GameCode)
	requestID := env.Headers.Get(HeaderRequest)
	c.log.Debug("Sending backend request", "command", command, "url", url, "request_id", requestID)

	resp, err := c.transport.RoundTrip(ctx, url, env.Headers, env.Body)
	if err != nil {
		return nil, &TransportError{Command: command, Err: err}
	}

	if !Classify(resp.Status, resp.Body) {
		d, _ := parseDescriptor(resp.Body)
		c.log.Warn("Backend request failed",
			"command", command,
			"status", resp.Status,
			"request_id", requestID,
			"descriptor", d.String())
		return nil, &ProtocolError{Command: command, Status: resp.Status, Body: resp.Body, Descriptor: d}
	}

	if len(resp.Body) > 0 && !json.Valid(resp.Body) {
		return nil, &ParseError{Command: command, Body: resp.Body, Err: fmt.Errorf("invalid JSON body")}
	}

	c.log.Debug("Backend request succeeded", "command", command, "status", resp.Status, "request_id", requestID)
	return resp.Body, nil
}

// SendInto performs command and decodes the success body into out.
func (c *Client) SendInto(ctx context.Context, command string, body, out interface{}) error {
	data, err := c.Send(ctx, command, body)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ParseError{Command: command, Body: data, Err: err}
	}
	return nil
}

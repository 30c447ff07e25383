// Package host talks to the native application embedding the overlay: one-shot
// calls over a unix socket, lazily imported capabilities, and a pushed stats
// feed over a websocket.
package host

import (
	"encoding/json"
	"errors"
	"fmt"
)

const DefaultSocketPath = "/tmp/tradepost-host.sock"

// Commands understood by the host.
const (
	CmdHandshake          = "Handshake"
	CmdImportCapability   = "ImportCapability"
	CmdCapabilityCall     = "CapabilityCall"
	CmdResolveItemNames   = "ResolveItemNames"
	CmdReportNetworkError = "ReportNetworkError"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Request is one call into the host.
type Request struct {
	Command string          `json:"command"`
	Args    json.RawMessage `json:"args,omitempty"`
}

// Response is the host's reply.
type Response struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Code    int             `json:"code,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ImportArgs asks the host for a capability.
type ImportArgs struct {
	Name string `json:"name"`
}

// ImportReply describes an acquired capability.
type ImportReply struct {
	Name  string                     `json:"name"`
	Props map[string]json.RawMessage `json:"props"`
}

// CapabilityCallArgs invokes a method on an imported capability.
type CapabilityCallArgs struct {
	Capability string          `json:"capability"`
	Method     string          `json:"method"`
	Args       json.RawMessage `json:"args,omitempty"`
}

// ResolveNamesArgs asks the host for localized item names.
type ResolveNamesArgs struct {
	Language string `json:"language"`
	IDs      []int  `json:"ids"`
}

// ItemName is one resolved item. Unknown ids are omitted from the reply.
type ItemName struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	UnlockType   string `json:"unlock_type,omitempty"`
	UnlockDataID int    `json:"unlock_data_id,omitempty"`
}

// Event types pushed on the feed.
const (
	EventStats     = "stats"
	EventInventory = "inventory"
	EventBags      = "bags"
	EventCharacter = "character"
	EventLanguage  = "language"
)

// Event is one message on the host feed.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Error is a failed host call. Transport failures wrap the underlying error;
// host rejections carry the host's message and optional code.
type Error struct {
	Command string
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("host %s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("host %s: %s", e.Command, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Rejected reports whether the host answered with an error status, as
// opposed to the call never reaching it.
func (e *Error) Rejected() bool {
	return e.Err == nil
}

// IsRejected reports whether err is a host rejection.
func IsRejected(err error) bool {
	var he *Error
	return errors.As(err, &he) && he.Rejected()
}

// Package backend sends RPC-style trading post requests over HTTP and
// classifies their outcome.
package backend

import (
	"net/http"
	"strings"
)

const (
	HeaderSession = "X-Session-Id"
	HeaderRequest = "X-Request-Id"

	// GameToken is replaced by the host's game code in protocol paths.
	GameToken = "{game}"
)

// Commands served by the backend.
const (
	CmdSearch          = "Search"
	CmdCurrentListings = "CurrentListings"
	CmdListingHistory  = "ListingHistory"
)

// Envelope is one backend request before transport.
type Envelope struct {
	ProtocolPath string
	Command      string
	Headers      http.Header
	Body         []byte
}

// Path is the request path with the game code substituted.
func (e Envelope) Path(gameCode string) string {
	p := strings.ReplaceAll(e.ProtocolPath, GameToken, gameCode)
	return strings.TrimRight(p, "/") + "/" + e.Command
}

// RawResponse is what came back over the wire.
type RawResponse struct {
	Status int
	Body   []byte
}

// Classify decides whether a response is a success. 200, 304 and 1223 are
// successes, and so is a 400 whose body carries no explicit error code.
func Classify(status int, body []byte) bool {
	switch status {
	case http.StatusOK, http.StatusNotModified, 1223:
		return true
	case http.StatusBadRequest:
		_, hasCode := parseDescriptor(body)
		return !hasCode
	}
	return false
}

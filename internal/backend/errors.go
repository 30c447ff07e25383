package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"tradepost/internal/host"
)

// Descriptor identifies a backend failure for user-facing alerting. Fields
// hold the raw values as received; only fully numeric descriptors are
// reportable.
type Descriptor struct {
	Code    string `json:"code"`
	Product string `json:"product"`
	Module  string `json:"module"`
	Line    string `json:"line"`
}

// Numeric reports whether all four fields are present and numeric.
func (d Descriptor) Numeric() bool {
	for _, v := range []string{d.Code, d.Product, d.Module, d.Line} {
		if v == "" {
			return false
		}
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			return false
		}
	}
	return true
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", d.Code, d.Product, d.Module, d.Line)
}

// TransportError means the request never produced an HTTP response.
type TransportError struct {
	Command string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("backend %s: transport: %v", e.Command, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is a response classified as failure. Body is the raw error
// body as returned by the backend.
type ProtocolError struct {
	Command    string
	Status     int
	Body       []byte
	Descriptor Descriptor
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("backend %s: status %d: %s", e.Command, e.Status, e.Body)
}

// ParseError is a successful response whose body could not be decoded.
type ParseError struct {
	Command string
	Body    []byte
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("backend %s: failed to parse response: %v", e.Command, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DescriptorOf extracts the failure descriptor from any error of the
// taxonomy. Errors without one return false.
func DescriptorOf(err error) (Descriptor, bool) {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe.Descriptor, true
	}
	var he *host.Error
	if errors.As(err, &he) && he.Rejected() && he.Code != 0 {
		return Descriptor{Code: strconv.Itoa(he.Code)}, true
	}
	return Descriptor{}, false
}

// errorBody is the shape of a backend error payload. Values may arrive as
// numbers or strings.
type errorBody struct {
	Code    json.RawMessage `json:"code"`
	Product json.RawMessage `json:"product"`
	Module  json.RawMessage `json:"module"`
	Line    json.RawMessage `json:"line"`
}

// parseDescriptor reads the descriptor fields out of an error body. The bool
// reports whether the body carried an explicit error code.
func parseDescriptor(body []byte) (Descriptor, bool) {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return Descriptor{}, false
	}
	d := Descriptor{
		Code:    rawScalar(eb.Code),
		Product: rawScalar(eb.Product),
		Module:  rawScalar(eb.Module),
		Line:    rawScalar(eb.Line),
	}
	return d, d.Code != ""
}

func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}

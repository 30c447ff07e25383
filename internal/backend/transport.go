package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Transport moves a request to the backend and returns the raw reply.
type Transport interface {
	RoundTrip(ctx context.Context, url string, headers http.Header, body []byte) (RawResponse, error)
}

// HTTPTransport posts envelopes with net/http.
type HTTPTransport struct {
	client *http.Client
}

func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{client: &http.Client{Timeout: timeout}}
}

func (t *HTTPTransport) RoundTrip(ctx context.Context, url string, headers http.Header, body []byte) (RawResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return RawResponse{}, fmt.Errorf("failed to build request: %w", err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return RawResponse{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return RawResponse{}, fmt.Errorf("failed to read response body: %w", err)
	}
	return RawResponse{Status: resp.StatusCode, Body: data}, nil
}

package host

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tradepost/pkg/core"
)

const (
	feedBaseDelay = 500 * time.Millisecond
	feedMaxDelay  = 30 * time.Second
)

// Backoff returns the reconnect delay after retry failed attempts.
func Backoff(retry int) time.Duration {
	if retry <= 0 {
		return feedBaseDelay
	}
	if retry > 16 {
		return feedMaxDelay
	}
	d := feedBaseDelay * time.Duration(1<<retry)
	if d > feedMaxDelay {
		return feedMaxDelay
	}
	return d
}

// Feed keeps a websocket open to the host's event stream and folds every
// event into an Observable. It reconnects with exponential backoff.
type Feed struct {
	url   string
	stats *Observable
	log   core.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewFeed(url string, stats *Observable, log core.Logger) *Feed {
	return &Feed{url: url, stats: stats, log: log}
}

// Start runs the connection loop until ctx ends or Stop is called.
func (f *Feed) Start(ctx context.Context) {
	ctx, f.cancel = context.WithCancel(ctx)
	f.wg.Add(1)
	go f.run(ctx)
}

func (f *Feed) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
	f.close()
	f.wg.Wait()
}

func (f *Feed) run(ctx context.Context) {
	defer f.wg.Done()
	retry := 0

	for {
		if ctx.Err() != nil {
			return
		}

		if err := f.connect(ctx); err != nil {
			delay := Backoff(retry)
			f.log.Warn("Host feed connection failed", "url", f.url, "error", err, "retry", retry, "delay", delay)
			retry++

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		retry = 0
		f.read(ctx)

		// A host that accepts and then drops the socket still waits out the
		// base delay before the next dial.
		select {
		case <-ctx.Done():
			return
		case <-time.After(Backoff(0)):
		}
	}
}

func (f *Feed) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()

	f.log.Info("Host feed connected", "url", f.url)
	return nil
}

// read consumes events until the connection drops or ctx ends. The watcher
// that closes the socket on cancel lives only as long as this connection.
func (f *Feed) read(ctx context.Context) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			f.close()
		case <-done:
		}
	}()

	for {
		f.mu.Lock()
		c := f.conn
		f.mu.Unlock()
		if c == nil {
			return
		}

		_, msg, err := c.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				f.log.Warn("Host feed read error", "error", err)
			}
			f.close()
			return
		}

		if err := f.handle(msg); err != nil {
			f.log.Error("Failed to apply host event", err)
		}
	}
}

func (f *Feed) handle(msg []byte) error {
	var ev Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		return fmt.Errorf("failed to decode event: %w", err)
	}
	f.log.Debug("Host event received", "type", ev.Type)
	return f.stats.Apply(ev)
}

func (f *Feed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
}

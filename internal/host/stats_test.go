package host

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"tradepost/internal/models"
	"tradepost/pkg/logger"
)

func TestObservableNotifiesUntilUnsubscribed(t *testing.T) {
	t.Parallel()

	o := NewObservable()
	var seen []string
	unsubscribe := o.Subscribe(func(s Stats, c Change) { seen = append(seen, c.Type+":"+s.Language) })

	o.Replace(Stats{Language: "en"})
	require.NoError(t, o.Apply(Event{Type: EventLanguage, Data: json.RawMessage(`"fr"`)}))
	unsubscribe()
	o.Replace(Stats{Language: "de"})

	require.Equal(t, []string{"stats:en", "language:fr"}, seen)
	require.Equal(t, "de", o.Current().Language)
}

func TestObservableCurrentIsACopy(t *testing.T) {
	t.Parallel()

	o := NewObservable()
	o.Replace(Stats{Inventory: []models.InventorySlot{{Slot: 1, ItemID: 7}}})

	cur := o.Current()
	cur.Inventory[0].ItemID = 99
	require.Equal(t, 7, o.Current().Inventory[0].ItemID)
}

func TestApplyRejectsUnknownEvents(t *testing.T) {
	t.Parallel()

	o := NewObservable()
	require.Error(t, o.Apply(Event{Type: "weather", Data: json.RawMessage(`{}`)}))
	require.Error(t, o.Apply(Event{Type: EventBags, Data: json.RawMessage(`"nope"`)}))
}

func TestFutureAwait(t *testing.T) {
	t.Parallel()

	f := Go(func() (int, error) { return 42, nil })
	v, err := f.Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, v)

	boom := errors.New("boom")
	_, err = Go(func() (int, error) { return 0, boom }).Await(context.Background())
	require.ErrorIs(t, err, boom)

	block := make(chan struct{})
	defer close(block)
	slow := Go(func() (int, error) { <-block; return 1, nil })
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = slow.Await(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	require.Equal(t, feedBaseDelay, Backoff(0))
	require.Equal(t, 2*feedBaseDelay, Backoff(1))
	require.Equal(t, 8*feedBaseDelay, Backoff(3))
	require.Equal(t, feedMaxDelay, Backoff(10))
	require.Equal(t, feedMaxDelay, Backoff(100))
}

func TestFeedDoesNotLeakWatchersAcrossReconnects(t *testing.T) {
	var accepted atomic.Int32
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted.Add(1)
		conn.Close()
	}))
	t.Cleanup(srv.Close)

	baseline := runtime.NumGoroutine()

	f := NewFeed("ws"+strings.TrimPrefix(srv.URL, "http"), NewObservable(), logger.Nop())
	f.Start(context.Background())
	t.Cleanup(f.Stop)

	require.Eventually(t, func() bool { return accepted.Load() >= 4 }, 5*time.Second, 10*time.Millisecond)

	// Between dials only the run loop is alive; a watcher per dropped
	// connection would push the count past this bound.
	require.Eventually(t, func() bool { return runtime.NumGoroutine() <= baseline+2 }, 2*time.Second, 20*time.Millisecond)
}

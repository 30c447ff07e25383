package market

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tradepost/internal/backend"
	"tradepost/internal/facet"
	"tradepost/internal/host"
	"tradepost/internal/itemcache"
	"tradepost/internal/models"
	"tradepost/internal/query"
	"tradepost/internal/section"
	"tradepost/internal/stub"
	"tradepost/pkg/logger"
)

type fakeBackend struct {
	calls atomic.Int32
	fn    func(n int, command string, body, out interface{}) error
}

func (f *fakeBackend) SendInto(_ context.Context, command string, body, out interface{}) error {
	n := int(f.calls.Add(1))
	return f.fn(n, command, body, out)
}

type fakeNames struct{}

func (fakeNames) Resolve(_ context.Context, ids []int) (map[int]itemcache.Name, error) {
	out := make(map[int]itemcache.Name, len(ids))
	for _, id := range ids {
		out[id] = itemcache.Name{Name: fmt.Sprintf("item-%d", id)}
	}
	return out, nil
}

type fakeFavorites struct {
	mu  sync.Mutex
	ids map[int]bool
}

func newFakeFavorites(ids ...int) *fakeFavorites {
	f := &fakeFavorites{ids: make(map[int]bool)}
	for _, id := range ids {
		f.ids[id] = true
	}
	return f
}

func (f *fakeFavorites) Contains(id int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ids[id]
}

func (f *fakeFavorites) IDs() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int
	for id := range f.ids {
		out = append(out, id)
	}
	return out
}

func (f *fakeFavorites) Full() bool { return false }

func (f *fakeFavorites) Add(_ context.Context, id int, _ itemcache.Favorite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids[id] = true
	return nil
}

func (f *fakeFavorites) Remove(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.ids, id)
	return nil
}

type fakeReporter struct {
	mu     sync.Mutex
	errors []error
}

func (r *fakeReporter) Report(_ context.Context, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
	_, ok := backend.DescriptorOf(err)
	return ok
}

func (r *fakeReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

func newDeps(b Backend) Deps {
	stats := host.NewObservable()
	stats.Replace(stub.SampleData().Stats)
	return Deps{
		Store:     section.NewStore(Sections()...),
		Backend:   b,
		Reporter:  &fakeReporter{},
		Names:     fakeNames{},
		Favorites: newFakeFavorites(),
		Stats:     stats,
		Signal:    NewSignal(),
		Log:       logger.Nop(),
		Debounce:  20 * time.Millisecond,
		PageSize:  50,
	}
}

// syncedCounter counts synced signals for one controller.
func syncedCounter(t *testing.T, c Controller) (*atomic.Int32, chan struct{}) {
	t.Helper()
	var n atomic.Int32
	ch := make(chan struct{}, 16)
	unsubscribe := c.OnSynced(func(section.Name) {
		n.Add(1)
		ch <- struct{}{}
	})
	t.Cleanup(unsubscribe)
	return &n, ch
}

func waitSynced(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("section never synced")
	}
}

func searchReply(out interface{}, total int, more bool, ids ...int) {
	resp := out.(*backend.SearchResponse)
	for _, id := range ids {
		resp.Items = append(resp.Items, models.Listing{ItemID: id, Rarity: "Fine"})
	}
	resp.Total = total
	resp.More = more
}

func resultIDs(items []models.Item) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestDebounceCollapsesBurst(t *testing.T) {
	t.Parallel()

	fb := &fakeBackend{fn: func(_ int, _ string, _, out interface{}) error {
		searchReply(out, 1, false, 7)
		return nil
	}}
	b := NewBrowse(newDeps(fb))
	t.Cleanup(b.Close)
	synced, ch := syncedCounter(t, b)

	for i := 0; i < 5; i++ {
		b.Get()
	}
	waitSynced(t, ch)
	time.Sleep(60 * time.Millisecond)

	require.Equal(t, int32(1), fb.calls.Load())
	require.Equal(t, int32(1), synced.Load())
	require.Equal(t, []int{7}, resultIDs(b.Results()))
	require.Equal(t, "item-7", b.Results()[0].Name)
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	fb := &fakeBackend{fn: func(n int, _ string, _, out interface{}) error {
		if n == 1 {
			<-release
			searchReply(out, 1, false, 1)
			return nil
		}
		searchReply(out, 1, false, 2)
		return nil
	}}
	d := newDeps(fb)
	b := NewBrowse(d)
	t.Cleanup(b.Close)
	synced, ch := syncedCounter(t, b)

	b.Refresh(RefreshOptions{Immediate: true})
	require.Eventually(t, func() bool { return fb.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	b.Refresh(RefreshOptions{Immediate: true})
	waitSynced(t, ch)

	close(release)
	time.Sleep(50 * time.Millisecond)

	require.Equal(t, []int{2}, resultIDs(b.Results()))
	require.Equal(t, int32(1), synced.Load())
	sec, _ := d.Store.Get(section.Browse)
	require.True(t, sec.Synced)
	require.False(t, sec.Syncing)
}

func TestFailedSyncMarksSyncedWithEmptyResults(t *testing.T) {
	t.Parallel()

	fail := atomic.Bool{}
	fb := &fakeBackend{fn: func(_ int, _ string, _, out interface{}) error {
		if fail.Load() {
			return &backend.ProtocolError{Command: backend.CmdSearch, Status: 500, Descriptor: backend.Descriptor{Code: "1", Product: "2", Module: "3", Line: "4"}}
		}
		searchReply(out, 2, false, 1, 2)
		return nil
	}}
	d := newDeps(fb)
	b := NewBrowse(d)
	t.Cleanup(b.Close)
	_, ch := syncedCounter(t, b)

	b.Refresh(RefreshOptions{Immediate: true})
	waitSynced(t, ch)
	require.Len(t, b.Results(), 2)

	fail.Store(true)
	b.Refresh(RefreshOptions{Immediate: true})
	waitSynced(t, ch)

	sec, _ := d.Store.Get(section.Browse)
	require.Empty(t, sec.Results)
	require.True(t, sec.Synced)
	require.Equal(t, 1, d.Reporter.(*fakeReporter).count())
}

func TestPanicInFetchStillSyncs(t *testing.T) {
	t.Parallel()

	fb := &fakeBackend{fn: func(int, string, interface{}, interface{}) error {
		panic("decoder exploded")
	}}
	d := newDeps(fb)
	b := NewBrowse(d)
	t.Cleanup(b.Close)
	_, ch := syncedCounter(t, b)

	b.Refresh(RefreshOptions{Immediate: true})
	waitSynced(t, ch)

	sec, _ := d.Store.Get(section.Browse)
	require.True(t, sec.Synced)
}

func TestBrowseLoadMore(t *testing.T) {
	t.Parallel()

	var offsets []int
	var mu sync.Mutex
	fb := &fakeBackend{}
	fb.fn = func(_ int, _ string, body, out interface{}) error {
		off := body.(query.Request).Offset
		mu.Lock()
		offsets = append(offsets, off)
		mu.Unlock()
		if off == 0 {
			searchReply(out, 3, true, 1, 2)
		} else {
			searchReply(out, 3, false, 3)
		}
		return nil
	}
	d := newDeps(fb)
	d.PageSize = 2
	b := NewBrowse(d)
	t.Cleanup(b.Close)
	_, ch := syncedCounter(t, b)

	b.Refresh(RefreshOptions{Immediate: true})
	waitSynced(t, ch)
	b.Refresh(RefreshOptions{LoadMore: true})
	waitSynced(t, ch)

	sec, _ := d.Store.Get(section.Browse)
	require.Equal(t, []int{1, 2, 3}, resultIDs(sec.Results))
	require.Equal(t, 2, sec.Offset)
	require.False(t, sec.More)

	// Nothing left: no request, offset unchanged.
	b.Refresh(RefreshOptions{LoadMore: true})
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, int32(2), fb.calls.Load())
	sec, _ = d.Store.Get(section.Browse)
	require.Equal(t, 2, sec.Offset)
	mu.Lock()
	require.Equal(t, []int{0, 2}, offsets)
	mu.Unlock()
}

func TestLoadMoreWaitsForFilterSync(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	fb := &fakeBackend{}
	fb.fn = func(_ int, _ string, body, out interface{}) error {
		req := body.(query.Request)
		switch {
		case req.Offset > 0:
			searchReply(out, 10, true, 60, 61)
		case req.Text == "sword":
			<-release
			searchReply(out, 10, true, 50, 51)
		default:
			searchReply(out, 10, true, 1, 2)
		}
		return nil
	}
	d := newDeps(fb)
	d.PageSize = 2
	b := NewBrowse(d)
	t.Cleanup(b.Close)
	_, ch := syncedCounter(t, b)

	b.Refresh(RefreshOptions{Immediate: true})
	waitSynced(t, ch)
	require.Equal(t, []int{1, 2}, resultIDs(b.Results()))

	d.Store.SetText(section.Browse, "sword")
	b.Refresh(RefreshOptions{Immediate: true})
	require.Eventually(t, func() bool { return fb.calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	b.Refresh(RefreshOptions{LoadMore: true})
	require.Equal(t, int32(2), fb.calls.Load())

	close(release)
	waitSynced(t, ch)

	sec, _ := d.Store.Get(section.Browse)
	require.Equal(t, []int{50, 51}, resultIDs(sec.Results))
	require.Equal(t, 0, sec.Offset)
	require.Equal(t, "sword", sec.Params.Text)

	// A pending debounced refresh also holds load more back.
	b.Refresh(RefreshOptions{})
	b.Refresh(RefreshOptions{LoadMore: true})
	waitSynced(t, ch)
	require.Equal(t, []int{50, 51}, resultIDs(b.Results()))
	require.Equal(t, int32(3), fb.calls.Load())
}

func listings(n int, location string) []models.Transaction {
	out := make([]models.Transaction, n)
	for i := range out {
		out[i] = models.Transaction{ListingID: i, ItemID: 100 + i, Price: 10, Quantity: 1, Buy: true, Created: location}
	}
	return out
}

func TestTransactionsLoadMoreAppendsAndAdvancesBy200(t *testing.T) {
	t.Parallel()

	current := listings(450, "current")
	history := listings(100, "history")
	fb := &fakeBackend{fn: func(_ int, command string, body, out interface{}) error {
		req := body.(backend.ListingsRequest)
		src := current
		if command == backend.CmdListingHistory {
			src = history
		}
		resp := out.(*backend.ListingsResponse)
		resp.Total = len(src)
		if req.Offset < len(src) {
			end := min(req.Offset+req.Count, len(src))
			resp.Listings = src[req.Offset:end]
			resp.More = end < len(src)
		}
		return nil
	}}
	d := newDeps(fb)
	d.PageSize = 200
	tx := NewTransactions(d)
	t.Cleanup(tx.Close)
	_, ch := syncedCounter(t, tx)

	tx.Refresh(RefreshOptions{Immediate: true})
	waitSynced(t, ch)
	sec, _ := d.Store.Get(section.Transactions)
	require.Len(t, sec.Results, 300)
	require.Equal(t, 550, sec.Total)
	require.Equal(t, 0, sec.Offset)
	require.True(t, sec.More)
	firstPage := sec.Results

	tx.Refresh(RefreshOptions{LoadMore: true})
	waitSynced(t, ch)
	sec, _ = d.Store.Get(section.Transactions)
	require.Len(t, sec.Results, 500)
	require.Equal(t, firstPage, sec.Results[:300])
	require.Equal(t, 200, sec.Offset)
	require.True(t, sec.More)

	tx.Refresh(RefreshOptions{LoadMore: true})
	waitSynced(t, ch)
	sec, _ = d.Store.Get(section.Transactions)
	require.Len(t, sec.Results, 550)
	require.Equal(t, 400, sec.Offset)
	require.False(t, sec.More)

	calls := fb.calls.Load()
	tx.Refresh(RefreshOptions{LoadMore: true})
	time.Sleep(30 * time.Millisecond)
	sec, _ = d.Store.Get(section.Transactions)
	require.Equal(t, 400, sec.Offset)
	require.Equal(t, calls, fb.calls.Load())
}

func TestTransactionsKeepsHalfWhenOneEndpointFails(t *testing.T) {
	t.Parallel()

	fb := &fakeBackend{fn: func(_ int, command string, _, out interface{}) error {
		if command == backend.CmdListingHistory {
			return &backend.TransportError{Command: command, Err: errors.New("reset by peer")}
		}
		resp := out.(*backend.ListingsResponse)
		resp.Listings = listings(3, "current")
		resp.Total = 3
		return nil
	}}
	d := newDeps(fb)
	d.PageSize = 200
	tx := NewTransactions(d)
	t.Cleanup(tx.Close)
	_, ch := syncedCounter(t, tx)

	tx.Refresh(RefreshOptions{Immediate: true})
	waitSynced(t, ch)

	sec, _ := d.Store.Get(section.Transactions)
	require.Len(t, sec.Results, 3)
	require.Equal(t, 3, sec.Total)
	require.Equal(t, 1, d.Reporter.(*fakeReporter).count())
}

func TestTransactionsEndpointErrorsAreCollected(t *testing.T) {
	t.Parallel()

	var failCurrent, failHistory atomic.Bool
	fb := &fakeBackend{fn: func(_ int, command string, _, out interface{}) error {
		if command == backend.CmdCurrentListings && failCurrent.Load() {
			return &backend.TransportError{Command: command, Err: errors.New("refused")}
		}
		if command == backend.CmdListingHistory {
			// The slower endpoint must still finish after its sibling failed.
			time.Sleep(30 * time.Millisecond)
			if failHistory.Load() {
				return &backend.TransportError{Command: command, Err: errors.New("reset by peer")}
			}
		}
		resp := out.(*backend.ListingsResponse)
		resp.Listings = listings(2, command)
		resp.Total = 2
		return nil
	}}
	d := newDeps(fb)
	d.PageSize = 200
	tx := NewTransactions(d)
	t.Cleanup(tx.Close)
	_, ch := syncedCounter(t, tx)
	rep := d.Reporter.(*fakeReporter)

	failCurrent.Store(true)
	tx.Refresh(RefreshOptions{Immediate: true})
	waitSynced(t, ch)

	sec, _ := d.Store.Get(section.Transactions)
	require.Len(t, sec.Results, 2)
	for _, it := range sec.Results {
		require.Equal(t, models.LocationHistory, it.Location)
	}
	require.Equal(t, 1, rep.count())
	require.ErrorContains(t, rep.errors[0], "current listings")

	failHistory.Store(true)
	tx.Refresh(RefreshOptions{Immediate: true})
	waitSynced(t, ch)

	sec, _ = d.Store.Get(section.Transactions)
	require.Empty(t, sec.Results)
	require.True(t, sec.Synced)
	require.Equal(t, 2, rep.count())
	require.ErrorContains(t, rep.errors[1], "current listings")
	require.ErrorContains(t, rep.errors[1], "listing history")
}

func TestSellRefiltersOnInventoryEvents(t *testing.T) {
	t.Parallel()

	d := newDeps(nil)
	stats := d.Stats.(*host.Observable)
	s := NewSell(d)
	t.Cleanup(s.Close)
	_, ch := syncedCounter(t, s)

	s.Refresh(RefreshOptions{Immediate: true})
	waitSynced(t, ch)
	// Bound and unsellable slots are skipped.
	require.ElementsMatch(t, []int{19684, 19721, 10004, 24}, resultIDs(s.Results()))

	d.Store.SetParams(section.Sell, facet.Values{
		facet.Slot:   facet.Range{Min: 0, Max: 19},
		facet.Rarity: facet.Enum{Values: []string{"Basic", "Rare"}},
	})
	s.Refresh(RefreshOptions{Immediate: true})
	waitSynced(t, ch)
	require.Equal(t, []int{10004, 19684}, resultIDs(s.Results()))

	inv := []models.InventorySlot{
		{Slot: 5, ItemID: 500, Rarity: "Rare", Count: 2, Sellable: true},
		{Slot: 25, ItemID: 501, Rarity: "Rare", Count: 1, Sellable: true},
	}
	stats.Replace(host.Stats{Inventory: inv})
	waitSynced(t, ch)
	require.Equal(t, []int{500}, resultIDs(s.Results()))
	require.Equal(t, models.LocationInventory, s.Results()[0].Location)

	d.Store.SetText(section.Sell, "item-50")
	s.Refresh(RefreshOptions{Immediate: true})
	waitSynced(t, ch)
	require.Equal(t, []int{500}, resultIDs(s.Results()))
}

func TestBrowseAgainstStubBackend(t *testing.T) {
	t.Parallel()

	data := stub.SampleData()
	server := httptest.NewServer(stub.NewBackend(data, logger.Nop()))
	t.Cleanup(server.Close)

	d := newDeps(nil)
	d.Backend = backend.NewClient(server.URL, "/{game}/TradingPost", backend.NewHTTPTransport(5*time.Second), d.Stats, logger.Nop())
	favorites := newFakeFavorites(10001)
	d.Favorites = favorites
	b := NewBrowse(d)
	t.Cleanup(b.Close)
	_, ch := syncedCounter(t, b)

	d.Store.SetCategory(section.Browse, "armor", "coat")
	b.Refresh(RefreshOptions{Immediate: true})
	waitSynced(t, ch)

	results := b.Results()
	require.Equal(t, []int{10001}, resultIDs(results))
	require.True(t, results[0].Favorite)

	fav, err := b.ToggleFavorite(context.Background(), results[0])
	require.NoError(t, err)
	require.False(t, fav)
	require.False(t, b.Results()[0].Favorite)
	require.False(t, favorites.Contains(10001))
}

func TestHubSwitch(t *testing.T) {
	t.Parallel()

	fb := &fakeBackend{fn: func(_ int, _ string, _, out interface{}) error {
		searchReply(out, 1, false, 1)
		return nil
	}}
	d := newDeps(fb)
	d.Store = nil
	d.Signal = nil
	h := NewHub(d, 50, 200)
	t.Cleanup(h.Close)

	var synced []section.Name
	var mu sync.Mutex
	h.Signal.Subscribe(func(n section.Name) {
		mu.Lock()
		synced = append(synced, n)
		mu.Unlock()
	})

	require.NoError(t, h.Switch(section.Transactions, false))
	require.Equal(t, section.Transactions, h.Store.Active())
	time.Sleep(40 * time.Millisecond)
	mu.Lock()
	require.Empty(t, synced)
	mu.Unlock()

	require.NoError(t, h.Switch(section.Browse, true))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(synced) == 1 && synced[0] == section.Browse
	}, time.Second, 5*time.Millisecond)

	require.Error(t, h.Switch("auction", true))
}

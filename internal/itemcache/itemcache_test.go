package itemcache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tradepost/internal/host"
	"tradepost/internal/storage"
	"tradepost/pkg/logger"
)

type memoryHostStore struct {
	mu     sync.Mutex
	data   map[string]json.RawMessage
	failOn int
	sets   int
}

func newMemoryHostStore() *memoryHostStore {
	return &memoryHostStore{data: make(map[string]json.RawMessage)}
}

func (s *memoryHostStore) Get(_ context.Context, key string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *memoryHostStore) Set(_ context.Context, key string, value json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	if s.failOn > 0 && s.sets == s.failOn {
		return errors.New("host store unavailable")
	}
	s.data[key] = value
	return nil
}

func (s *memoryHostStore) persistedCount(t *testing.T) int {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	raw := s.data[FavoritesKey]
	if raw == nil {
		return 0
	}
	var blob map[string]Favorite
	require.NoError(t, json.Unmarshal(raw, &blob))
	return len(blob)
}

func TestFavoritesMirrorMatchesPersistedBlob(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hs := newMemoryHostStore()
	f := NewFavorites(storage.NewMemory(), 0, logger.Nop())
	require.NoError(t, f.Attach(ctx, hs))

	ops := []struct {
		add bool
		id  int
	}{
		{true, 1}, {true, 2}, {true, 2}, {false, 7}, {true, 3}, {false, 1}, {true, 4}, {false, 4}, {false, 4},
	}
	for _, op := range ops {
		if op.add {
			require.NoError(t, f.Add(ctx, op.id, Favorite{TypeID: op.id * 10}))
		} else {
			require.NoError(t, f.Remove(ctx, op.id))
		}
		require.Equal(t, hs.persistedCount(t), f.Count())
	}
	require.Equal(t, []int{2, 3}, f.IDs())
	require.True(t, f.Contains(3))
	require.False(t, f.Contains(1))
}

func TestFavoritesFailedWriteKeepsMirror(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hs := newMemoryHostStore()
	hs.failOn = 2
	f := NewFavorites(storage.NewMemory(), 0, logger.Nop())
	require.NoError(t, f.Attach(ctx, hs))

	require.NoError(t, f.Add(ctx, 1, Favorite{}))
	require.Error(t, f.Add(ctx, 2, Favorite{}))
	require.Equal(t, 1, f.Count())
	require.Equal(t, hs.persistedCount(t), f.Count())
	require.False(t, f.Contains(2))
}

func TestFavoritesLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := NewFavorites(storage.NewMemory(), 2, logger.Nop())
	require.NoError(t, f.Attach(ctx, newMemoryHostStore()))

	require.NoError(t, f.Add(ctx, 1, Favorite{}))
	require.False(t, f.Full())
	require.NoError(t, f.Add(ctx, 2, Favorite{}))
	require.True(t, f.Full())
	require.ErrorIs(t, f.Add(ctx, 3, Favorite{}), ErrFavoritesFull)
	require.NoError(t, f.Remove(ctx, 1))
	require.False(t, f.Full())
}

func TestFavoritesCorruptBlobIsEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hs := newMemoryHostStore()
	hs.data[FavoritesKey] = json.RawMessage(`{"1": [broken`)

	f := NewFavorites(storage.NewMemory(), 0, logger.Nop())
	require.NoError(t, f.Attach(ctx, hs))
	require.Zero(t, f.Count())
	require.Empty(t, f.IDs())
}

func TestFavoritesMirrorSurvivesRestart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	local := storage.NewMemory()
	f := NewFavorites(local, 2, logger.Nop())
	require.ErrorIs(t, f.Add(ctx, 1, Favorite{}), ErrFavoritesDetached)
	require.NoError(t, f.Attach(ctx, newMemoryHostStore()))
	require.NoError(t, f.Add(ctx, 1, Favorite{}))
	require.NoError(t, f.Add(ctx, 2, Favorite{}))

	restarted := NewFavorites(local, 2, logger.Nop())
	restarted.LoadMirror(ctx)
	require.Equal(t, 2, restarted.Count())
	require.True(t, restarted.Full())
}

type fakeResolver struct {
	mu    sync.Mutex
	names map[string]map[int]string
	calls []host.ResolveNamesArgs
}

func (r *fakeResolver) Call(_ context.Context, command string, args interface{}) (json.RawMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if command != host.CmdResolveItemNames {
		return nil, errors.New("unexpected command")
	}
	a := args.(host.ResolveNamesArgs)
	r.calls = append(r.calls, a)
	var out []host.ItemName
	for _, id := range a.IDs {
		if n, ok := r.names[a.Language][id]; ok {
			out = append(out, host.ItemName{ID: id, Name: n})
		}
	}
	return json.Marshal(out)
}

func (r *fakeResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newResolver() *fakeResolver {
	return &fakeResolver{names: map[string]map[int]string{
		"en": {1: "Mithril Ingot", 2: "Glob of Ectoplasm"},
		"de": {1: "Mithrilbarren", 2: "Ektoplasmakugel"},
	}}
}

func TestResolveBatchesUnknownIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newResolver()
	n := NewNames(r, storage.NewMemory(), time.Hour, logger.Nop())
	n.Load(ctx, "en")

	got, err := n.Resolve(ctx, []int{1, 2, 1, 3})
	require.NoError(t, err)
	require.Equal(t, map[int]Name{1: {Name: "Mithril Ingot"}, 2: {Name: "Glob of Ectoplasm"}}, got)
	require.Equal(t, 1, r.callCount())
	require.Equal(t, []int{1, 2, 3}, r.calls[0].IDs)

	got, err = n.Resolve(ctx, []int{2, 3})
	require.NoError(t, err)
	require.Equal(t, "Glob of Ectoplasm", got[2].Name)
	require.Equal(t, 2, r.callCount())
	require.Equal(t, []int{3}, r.calls[1].IDs)
}

func TestNamesFlushPersistsForNextLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	local := storage.NewMemory()
	r := newResolver()
	n := NewNames(r, local, time.Hour, logger.Nop())
	n.Load(ctx, "en-US")
	require.Equal(t, "en", n.Language())

	_, err := n.Resolve(ctx, []int{1})
	require.NoError(t, err)
	n.Flush()

	reloaded := NewNames(r, local, time.Hour, logger.Nop())
	reloaded.Load(ctx, "en")
	v, ok := reloaded.Lookup(1)
	require.True(t, ok)
	require.Equal(t, "Mithril Ingot", v.Name)
	require.Zero(t, reloaded.Reseeds())
}

func TestNamesFlushIsDebounced(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	local := storage.NewMemory()
	n := NewNames(newResolver(), local, 30*time.Millisecond, logger.Nop())
	n.Load(ctx, "en")
	seeded := local.Writes()

	for _, id := range []int{1, 2} {
		_, err := n.Resolve(ctx, []int{id})
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool { return local.Writes() == seeded+1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, seeded+1, local.Writes())
}

func TestLanguageSwitchDiscardsAndReseedsOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	local := storage.NewMemory()
	r := newResolver()
	n := NewNames(r, local, time.Hour, logger.Nop())
	n.Load(ctx, "en")
	require.Equal(t, 1, n.Reseeds())

	_, err := n.Resolve(ctx, []int{1, 2})
	require.NoError(t, err)
	n.Flush()

	n.SetLanguage(ctx, "de_DE")
	n.SetLanguage(ctx, "de")
	require.Equal(t, 2, n.Reseeds())
	_, ok := n.Lookup(1)
	require.False(t, ok)

	raw, _, err := local.Get(ctx, namesKey)
	require.NoError(t, err)
	require.JSONEq(t, `{"language":"de","entries":{}}`, string(raw))

	got, err := n.Resolve(ctx, []int{1})
	require.NoError(t, err)
	require.Equal(t, "Mithrilbarren", got[1].Name)
	require.Equal(t, "de", r.calls[len(r.calls)-1].Language)
}

func TestCorruptNameCacheIsAMiss(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	local := storage.NewMemory()
	require.NoError(t, local.Set(ctx, namesKey, []byte("not json")))

	n := NewNames(newResolver(), local, time.Hour, logger.Nop())
	n.Load(ctx, "en")
	require.Equal(t, "en", n.Language())
	require.Equal(t, 1, n.Reseeds())
}

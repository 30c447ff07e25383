// Package itemcache holds item metadata merged into trading post results:
// the account's favorites set and localized item names.
package itemcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"sync"

	"tradepost/internal/storage"
	"tradepost/pkg/core"
)

const (
	// FavoritesKey is the host-store key holding the favorites blob.
	FavoritesKey = "favorites"
	// countKey is the local mirror of the favorites count.
	countKey = "favorites_count"
)

var (
	ErrFavoritesFull     = errors.New("favorites limit reached")
	ErrFavoritesDetached = errors.New("favorites store not available")
)

// HostStore is the host's persistent key/value capability.
type HostStore interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Set(ctx context.Context, key string, value json.RawMessage) error
}

// Favorite is the minimal descriptor stored per favorite item.
type Favorite struct {
	TypeID int `json:"typeId"`
	DataID int `json:"dataId"`
}

// Favorites is the favorites set. The host store holds the authoritative
// blob; count mirrors its size locally so limit checks need no host round
// trip.
type Favorites struct {
	mu    sync.Mutex
	store HostStore
	local storage.KV
	limit int
	set   map[int]Favorite
	count int
	log   core.Logger
}

func NewFavorites(local storage.KV, limit int, log core.Logger) *Favorites {
	return &Favorites{
		local: local,
		limit: limit,
		set:   make(map[int]Favorite),
		log:   log,
	}
}

// LoadMirror reads the persisted count so Full works before the host store
// is attached.
func (f *Favorites) LoadMirror(ctx context.Context) {
	raw, ok, err := f.local.Get(ctx, countKey)
	if err != nil {
		f.log.Error("Failed to read favorites count", err)
		return
	}
	if !ok {
		return
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil {
		f.log.Warn("Ignoring corrupt favorites count", "value", string(raw))
		return
	}
	f.mu.Lock()
	f.count = n
	f.mu.Unlock()
}

// Attach loads the favorites blob from the host store. A missing or corrupt
// blob yields an empty set.
func (f *Favorites) Attach(ctx context.Context, store HostStore) error {
	raw, err := store.Get(ctx, FavoritesKey)
	if err != nil {
		return fmt.Errorf("failed to load favorites: %w", err)
	}

	set := make(map[int]Favorite)
	if len(raw) > 0 {
		var blob map[string]Favorite
		if err := json.Unmarshal(raw, &blob); err != nil {
			f.log.Warn("Discarding corrupt favorites blob", "error", err)
		} else {
			for k, v := range blob {
				id, err := strconv.Atoi(k)
				if err != nil {
					f.log.Warn("Skipping favorite with bad id", "id", k)
					continue
				}
				set[id] = v
			}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.store = store
	f.set = set
	f.setCountLocked(ctx)
	f.log.Info("Favorites loaded", "count", len(set))
	return nil
}

// Add puts id into the set and rewrites the blob.
func (f *Favorites) Add(ctx context.Context, id int, fav Favorite) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.store == nil {
		return ErrFavoritesDetached
	}
	if _, ok := f.set[id]; ok {
		return nil
	}
	if f.limit > 0 && len(f.set) >= f.limit {
		return ErrFavoritesFull
	}

	f.set[id] = fav
	if err := f.writeLocked(ctx); err != nil {
		delete(f.set, id)
		return err
	}
	f.setCountLocked(ctx)
	return nil
}

// Remove drops id from the set and rewrites the blob.
func (f *Favorites) Remove(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.store == nil {
		return ErrFavoritesDetached
	}
	prev, ok := f.set[id]
	if !ok {
		return nil
	}

	delete(f.set, id)
	if err := f.writeLocked(ctx); err != nil {
		f.set[id] = prev
		return err
	}
	f.setCountLocked(ctx)
	return nil
}

func (f *Favorites) Contains(id int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.set[id]
	return ok
}

// IDs returns the favorite ids in ascending order.
func (f *Favorites) IDs() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Sorted(maps.Keys(f.set))
}

// Count returns the mirrored size of the set.
func (f *Favorites) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// Full reports whether the limit has been reached.
func (f *Favorites) Full() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.limit > 0 && f.count >= f.limit
}

func (f *Favorites) writeLocked(ctx context.Context) error {
	blob := make(map[string]Favorite, len(f.set))
	for id, v := range f.set {
		blob[strconv.Itoa(id)] = v
	}
	raw, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("failed to encode favorites: %w", err)
	}
	if err := f.store.Set(ctx, FavoritesKey, raw); err != nil {
		return fmt.Errorf("failed to save favorites: %w", err)
	}
	return nil
}

func (f *Favorites) setCountLocked(ctx context.Context) {
	f.count = len(f.set)
	if err := f.local.Set(ctx, countKey, []byte(strconv.Itoa(f.count))); err != nil {
		f.log.Error("Failed to persist favorites count", err)
	}
}

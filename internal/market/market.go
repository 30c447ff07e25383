// Package market drives the trading post sections: it turns user triggers
// into debounced syncs, drops responses that a newer trigger superseded, and
// merges item metadata into the results the render layer reads.
package market

import (
	"context"
	"sync"
	"time"

	"tradepost/internal/facet"
	"tradepost/internal/host"
	"tradepost/internal/itemcache"
	"tradepost/internal/models"
	"tradepost/internal/section"
	"tradepost/pkg/core"
)

// Backend sends trading post commands.
type Backend interface {
	SendInto(ctx context.Context, command string, body, out interface{}) error
}

// Reporter forwards failures for user-facing alerting.
type Reporter interface {
	Report(ctx context.Context, err error) bool
}

// NameResolver supplies localized item names.
type NameResolver interface {
	Resolve(ctx context.Context, ids []int) (map[int]itemcache.Name, error)
}

// FavoriteSet is the favorites cache as the controllers use it.
type FavoriteSet interface {
	Contains(id int) bool
	IDs() []int
	Full() bool
	Add(ctx context.Context, id int, fav itemcache.Favorite) error
	Remove(ctx context.Context, id int) error
}

// StatsSource is the host stats observable.
type StatsSource interface {
	Current() host.Stats
	Subscribe(fn func(host.Stats, host.Change)) func()
}

// Deps wires a controller to its collaborators.
type Deps struct {
	Store     *section.Store
	Backend   Backend
	Reporter  Reporter
	Names     NameResolver
	Favorites FavoriteSet
	Stats     StatsSource
	Signal    *Signal
	Log       core.Logger

	Debounce       time.Duration
	RequestTimeout time.Duration
	PageSize       int
}

// RefreshOptions selects how a refresh runs.
type RefreshOptions struct {
	// Immediate skips the debounce window.
	Immediate bool
	// LoadMore appends the next page instead of replacing results.
	LoadMore bool
}

// Controller is what the render layer drives.
type Controller interface {
	Name() section.Name
	// Get schedules a sync of the section.
	Get()
	Refresh(opts RefreshOptions)
	// Results returns the section's current ordered items.
	Results() []models.Item
	OnSynced(fn func(section.Name)) func()
	Close()
}

// Sections returns the store specs for the three views.
func Sections() []section.Spec {
	return []section.Spec{
		{Name: section.Browse, Defaults: section.Defaults{
			Params:    section.Params{Category: "all", Facets: facet.Values{}},
			SortField: "name",
		}},
		{Name: section.Sell, Defaults: section.Defaults{
			Params:    section.Params{Facets: facet.Values{}},
			SortField: "name",
		}},
		{Name: section.Transactions, Defaults: section.Defaults{
			Params: section.Params{Category: CategoryBuys, Facets: facet.Values{}},
		}},
	}
}

// Signal fans out "section synced" notifications.
type Signal struct {
	mu        sync.Mutex
	next      int
	listeners map[int]func(section.Name)
}

func NewSignal() *Signal {
	return &Signal{listeners: make(map[int]func(section.Name))}
}

// Subscribe registers fn and returns its unsubscribe func.
func (s *Signal) Subscribe(fn func(section.Name)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Emit notifies every listener that name finished syncing.
func (s *Signal) Emit(name section.Name) {
	s.mu.Lock()
	listeners := make([]func(section.Name), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(name)
	}
}

// favoriteDescriptor is stored in the favorites blob for an item.
func favoriteDescriptor(it models.Item) itemcache.Favorite {
	return itemcache.Favorite{TypeID: it.TypeID, DataID: it.UnlockDataID}
}

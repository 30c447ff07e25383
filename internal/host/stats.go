package host

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"tradepost/internal/models"
)

// Stats is the host's view of the session and game.
type Stats struct {
	SessionID string                 `json:"session_id"`
	BuildID   int                    `json:"build_id"`
	Language  string                 `json:"language"`
	GameCode  string                 `json:"game_code"`
	Character models.Character       `json:"character"`
	Inventory []models.InventorySlot `json:"inventory"`
	Bags      []models.Bag           `json:"bags"`
}

func (s Stats) clone() Stats {
	s.Inventory = slices.Clone(s.Inventory)
	s.Bags = slices.Clone(s.Bags)
	return s
}

// Change says which parts of Stats an update touched.
type Change struct {
	Type string
}

// Observable is a read-only, change-notifying Stats holder.
type Observable struct {
	mu        sync.RWMutex
	stats     Stats
	listeners map[int]func(Stats, Change)
	next      int
}

func NewObservable() *Observable {
	return &Observable{listeners: make(map[int]func(Stats, Change))}
}

// Current returns a copy of the latest stats.
func (o *Observable) Current() Stats {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.stats.clone()
}

// Subscribe registers fn for every update. Listeners run on the goroutine
// that applied the update and must not block. The returned func unsubscribes.
func (o *Observable) Subscribe(fn func(Stats, Change)) func() {
	o.mu.Lock()
	id := o.next
	o.next++
	o.listeners[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.listeners, id)
		o.mu.Unlock()
	}
}

// Replace swaps in a full snapshot.
func (o *Observable) Replace(s Stats) {
	o.update(Change{Type: EventStats}, func(cur *Stats) { *cur = s.clone() })
}

// Apply folds a feed event into the stats.
func (o *Observable) Apply(ev Event) error {
	switch ev.Type {
	case EventStats:
		var s Stats
		if err := json.Unmarshal(ev.Data, &s); err != nil {
			return fmt.Errorf("failed to decode stats event: %w", err)
		}
		o.Replace(s)
	case EventInventory:
		var inv []models.InventorySlot
		if err := json.Unmarshal(ev.Data, &inv); err != nil {
			return fmt.Errorf("failed to decode inventory event: %w", err)
		}
		o.update(Change{Type: ev.Type}, func(cur *Stats) { cur.Inventory = inv })
	case EventBags:
		var bags []models.Bag
		if err := json.Unmarshal(ev.Data, &bags); err != nil {
			return fmt.Errorf("failed to decode bags event: %w", err)
		}
		o.update(Change{Type: ev.Type}, func(cur *Stats) { cur.Bags = bags })
	case EventCharacter:
		var ch models.Character
		if err := json.Unmarshal(ev.Data, &ch); err != nil {
			return fmt.Errorf("failed to decode character event: %w", err)
		}
		o.update(Change{Type: ev.Type}, func(cur *Stats) { cur.Character = ch })
	case EventLanguage:
		var lang string
		if err := json.Unmarshal(ev.Data, &lang); err != nil {
			return fmt.Errorf("failed to decode language event: %w", err)
		}
		o.update(Change{Type: ev.Type}, func(cur *Stats) { cur.Language = lang })
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	return nil
}

func (o *Observable) update(change Change, fn func(*Stats)) {
	o.mu.Lock()
	fn(&o.stats)
	snapshot := o.stats.clone()
	listeners := make([]func(Stats, Change), 0, len(o.listeners))
	for _, l := range o.listeners {
		listeners = append(listeners, l)
	}
	o.mu.Unlock()

	for _, l := range listeners {
		l(snapshot, change)
	}
}

package itemcache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"

	"tradepost/internal/debounce"
	"tradepost/internal/host"
	"tradepost/internal/storage"
	"tradepost/pkg/core"
)

const namesKey = "item_names"

// Caller issues host bridge calls.
type Caller interface {
	Call(ctx context.Context, command string, args interface{}) (json.RawMessage, error)
}

// Name is the cached metadata for one item.
type Name struct {
	Name         string `json:"name"`
	UnlockType   string `json:"unlock_type,omitempty"`
	UnlockDataID int    `json:"unlock_data_id,omitempty"`
}

type namesBlob struct {
	Language string          `json:"language"`
	Entries  map[string]Name `json:"entries"`
}

// Names caches localized item names for one language at a time.
type Names struct {
	mu       sync.Mutex
	host     Caller
	local    storage.KV
	language string
	entries  map[int]Name
	flush    *debounce.Timer
	reseeds  int
	log      core.Logger
}

func NewNames(h Caller, local storage.KV, flushWait time.Duration, log core.Logger) *Names {
	return &Names{
		host:    h,
		local:   local,
		entries: make(map[int]Name),
		flush:   debounce.New(flushWait),
		log:     log,
	}
}

// NormalizeLanguage reduces a host language tag to the base language used as
// the cache marker.
func NormalizeLanguage(lang string) string {
	tag, err := language.Parse(strings.ReplaceAll(lang, "_", "-"))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(lang))
	}
	base, _ := tag.Base()
	return base.String()
}

// Load restores the persisted cache for lang. Entries tagged with another
// language, or a corrupt blob, start a fresh cache.
func (n *Names) Load(ctx context.Context, lang string) {
	lang = NormalizeLanguage(lang)

	raw, ok, err := n.local.Get(ctx, namesKey)
	if err != nil {
		n.log.Error("Failed to read name cache", err)
	}

	var blob namesBlob
	if ok && err == nil {
		if jerr := json.Unmarshal(raw, &blob); jerr != nil {
			n.log.Warn("Discarding corrupt name cache", "error", jerr)
			blob = namesBlob{}
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if blob.Language != lang {
		n.reseedLocked(ctx, lang)
		return
	}

	n.language = lang
	n.entries = make(map[int]Name, len(blob.Entries))
	for k, v := range blob.Entries {
		if id, err := strconv.Atoi(k); err == nil {
			n.entries[id] = v
		}
	}
	n.log.Debug("Name cache loaded", "language", lang, "entries", len(n.entries))
}

// SetLanguage switches the active language. Everything cached for the old
// language is dropped and the store is reseeded with the new marker once.
func (n *Names) SetLanguage(ctx context.Context, lang string) {
	lang = NormalizeLanguage(lang)

	n.mu.Lock()
	defer n.mu.Unlock()
	if lang == n.language {
		return
	}
	n.flush.Cancel()
	n.reseedLocked(ctx, lang)
}

func (n *Names) reseedLocked(ctx context.Context, lang string) {
	n.language = lang
	n.entries = make(map[int]Name)
	n.reseeds++
	n.log.Info("Name cache reseeded", "language", lang)
	if err := n.persistLocked(ctx); err != nil {
		n.log.Error("Failed to reseed name cache", err)
	}
}

// Language returns the active cache marker.
func (n *Names) Language() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.language
}

// Reseeds returns how many times the cache was discarded and reseeded.
func (n *Names) Reseeds() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.reseeds
}

func (n *Names) Lookup(id int) (Name, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.entries[id]
	return v, ok
}

// Resolve returns metadata for ids, asking the host in a single batch for
// the ones not cached. Ids the host does not know are absent from the result.
func (n *Names) Resolve(ctx context.Context, ids []int) (map[int]Name, error) {
	n.mu.Lock()
	lang := n.language
	out := make(map[int]Name, len(ids))
	var unknown []int
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if v, ok := n.entries[id]; ok {
			out[id] = v
		} else {
			unknown = append(unknown, id)
		}
	}
	n.mu.Unlock()

	if len(unknown) == 0 {
		return out, nil
	}

	data, err := n.host.Call(ctx, host.CmdResolveItemNames, host.ResolveNamesArgs{Language: lang, IDs: unknown})
	if err != nil {
		return out, fmt.Errorf("failed to resolve item names: %w", err)
	}
	var resolved []host.ItemName
	if err := json.Unmarshal(data, &resolved); err != nil {
		return out, fmt.Errorf("failed to decode item names: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	for _, r := range resolved {
		v := Name{Name: r.Name, UnlockType: r.UnlockType, UnlockDataID: r.UnlockDataID}
		out[r.ID] = v
		// The language may have switched while the call was in flight.
		if n.language == lang {
			n.entries[r.ID] = v
		}
	}
	if n.language == lang && len(resolved) > 0 {
		n.flush.Arm(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			if err := n.persistLocked(context.Background()); err != nil {
				n.log.Error("Failed to flush name cache", err)
			}
		})
	}
	return out, nil
}

// Flush writes any pending entries now.
func (n *Names) Flush() {
	n.flush.Flush()
}

func (n *Names) persistLocked(ctx context.Context) error {
	blob := namesBlob{Language: n.language, Entries: make(map[string]Name, len(n.entries))}
	for id, v := range n.entries {
		blob.Entries[strconv.Itoa(id)] = v
	}
	raw, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("failed to encode name cache: %w", err)
	}
	return n.local.Set(ctx, namesKey, raw)
}

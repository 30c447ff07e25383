// Package stub runs an in-process trading post backend and host so the
// overlay can be developed and tested without the game.
package stub

import (
	"encoding/json"
	"net/http"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"tradepost/internal/backend"
	"tradepost/internal/models"
	"tradepost/internal/query"
	"tradepost/pkg/core"
)

// Product is a catalog entry the stub backend searches over.
type Product struct {
	Listing  models.Listing
	Name     string
	Category string
	Type     string
	Weight   string
}

// Failure makes the next requests for a command fail with a canned reply.
type Failure struct {
	Status int
	Body   string
}

// Backend serves the trading post RPC commands from memory.
type Backend struct {
	router chi.Router
	log    core.Logger

	mu       sync.Mutex
	products []Product
	current  []models.Transaction
	history  []models.Transaction
	failures map[string]Failure
	calls    map[string]int
	sessions []string
}

// NewBackend returns a backend stub seeded with data. The routes are mounted
// under the protocol path with the game segment as a URL parameter.
func NewBackend(data Data, log core.Logger) *Backend {
	b := &Backend{
		router:   chi.NewRouter(),
		log:      log,
		products: data.Products,
		current:  data.Current,
		history:  data.History,
		failures: make(map[string]Failure),
		calls:    make(map[string]int),
	}
	b.setupMiddleware()
	b.setupRoutes()
	return b
}

// ServeHTTP implements http.Handler
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

func (b *Backend) setupMiddleware() {
	b.router.Use(middleware.Recoverer)
	b.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", backend.HeaderSession, backend.HeaderRequest},
		MaxAge:         300,
	}))
	b.router.Use(b.track)
}

func (b *Backend) setupRoutes() {
	b.router.Route("/{game}/TradingPost", func(r chi.Router) {
		r.Post("/"+backend.CmdSearch, b.handleSearch)
		r.Post("/"+backend.CmdCurrentListings, b.handleListings(false))
		r.Post("/"+backend.CmdListingHistory, b.handleListings(true))
	})

	b.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// track counts calls per command, records session headers and injects
// configured failures.
func (b *Backend) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		command := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

		b.mu.Lock()
		b.calls[command]++
		b.sessions = append(b.sessions, r.Header.Get(backend.HeaderSession))
		f, fail := b.failures[command]
		b.mu.Unlock()

		b.log.Debug("Stub backend request", "command", command, "request_id", r.Header.Get(backend.HeaderRequest))
		if fail {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.Status)
			w.Write([]byte(f.Body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Fail makes every later call to command return f.
func (b *Backend) Fail(command string, f Failure) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[command] = f
}

// Calls returns how often command was requested.
func (b *Backend) Calls(command string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[command]
}

// Sessions returns the session ids seen so far, in request order.
func (b *Backend) Sessions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.sessions)
}

func (b *Backend) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req query.Request
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid search body")
		return
	}

	b.mu.Lock()
	matched := make([]Product, 0, len(b.products))
	for _, p := range b.products {
		if matches(p, req) {
			matched = append(matched, p)
		}
	}
	b.mu.Unlock()

	sortProducts(matched, req.SortField, req.SortDesc)
	page, more := paginate(matched, req.Offset, req.Count)

	items := make([]models.Listing, len(page))
	for i, p := range page {
		items[i] = p.Listing
	}
	respondJSON(w, http.StatusOK, backend.SearchResponse{Items: items, Total: len(matched), More: more})
}

func (b *Backend) handleListings(history bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req backend.ListingsRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid listings body")
			return
		}

		b.mu.Lock()
		source := b.current
		if history {
			source = b.history
		}
		var matched []models.Transaction
		for _, t := range source {
			if t.Buy == req.Buy {
				matched = append(matched, t)
			}
		}
		b.mu.Unlock()

		page, more := paginate(matched, req.Offset, req.Count)
		respondJSON(w, http.StatusOK, backend.ListingsResponse{Listings: page, Total: len(matched), More: more})
	}
}

func matches(p Product, req query.Request) bool {
	l := p.Listing
	if req.SpecifiedOnly {
		return slices.Contains(req.ItemIDs, l.ItemID)
	}
	if req.Category != "" && req.Category != "all" && p.Category != req.Category {
		return false
	}
	if req.Subcategory != "" && p.Type != req.Subcategory {
		return false
	}
	if len(req.Types) > 0 && !slices.Contains(req.Types, p.Type) {
		return false
	}
	if len(req.WeightClasses) > 0 && !slices.Contains(req.WeightClasses, p.Weight) {
		return false
	}
	if l.Level < req.LevelMin || l.Level > req.LevelMax {
		return false
	}
	if len(req.Rarities) > 0 && !slices.Contains(req.Rarities, l.Rarity) {
		return false
	}
	if req.Available && l.Quantity == 0 {
		return false
	}
	if req.Text != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(req.Text)) {
		return false
	}
	return true
}

func sortProducts(ps []Product, field string, desc bool) {
	less := func(a, b Product) bool {
		switch field {
		case "level":
			return a.Listing.Level < b.Listing.Level
		case "buy_price":
			return a.Listing.BuyPrice < b.Listing.BuyPrice
		case "sell_price":
			return a.Listing.SellPrice < b.Listing.SellPrice
		default:
			return a.Name < b.Name
		}
	}
	sort.SliceStable(ps, func(i, j int) bool {
		if desc {
			return less(ps[j], ps[i])
		}
		return less(ps[i], ps[j])
	})
}

func paginate[T any](all []T, offset, count int) ([]T, bool) {
	if offset >= len(all) {
		return []T{}, false
	}
	end := len(all)
	if count > 0 && offset+count < end {
		end = offset + count
	}
	return all[offset:end], end < len(all)
}

// --- Response helpers ---

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error body without a code field. Clients classify a
// 400 of this shape as success.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

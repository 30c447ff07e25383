package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tradepost/internal/backend"
	"tradepost/internal/host"
	"tradepost/internal/itemcache"
	"tradepost/internal/market"
	"tradepost/internal/section"
	"tradepost/internal/storage"
	"tradepost/pkg/config"
	"tradepost/pkg/logger"
	"tradepost/pkg/notify"
)

const connectTimeout = 10 * time.Second

// TradePost wires the host bridge, backend, caches and section controllers.
type TradePost struct {
	cfg *config.Config
	log *logger.Logger

	host      *host.Client
	feed      *host.Feed
	db        *storage.DB
	favorites *itemcache.Favorites
	names     *itemcache.Names
	backend   *backend.Client
	reporter  *backend.Reporter
	notifier  *notify.NotifyService

	Hub *market.Hub

	mu           sync.Mutex
	unsubscribes []func()
}

func NewTradePost(cfg *config.Config, log *logger.Logger) (*TradePost, error) {
	log.Debug("Initializing trading post", "backend_url", cfg.GetBackendURL(), "host_socket", cfg.GetHostSocket())

	db, err := storage.New(cfg.GetDatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	hc := host.NewClient(cfg.GetHostSocket(), log)
	notifier := notify.NewNotifyService(cfg.GetNotifyCommand(), log)

	t := &TradePost{
		cfg:       cfg,
		log:       log,
		host:      hc,
		feed:      host.NewFeed(cfg.GetHostEventsURL(), hc.Stats(), log),
		db:        db,
		favorites: itemcache.NewFavorites(db, cfg.GetFavoritesLimit(), log),
		names:     itemcache.NewNames(hc, db, cfg.GetNameFlush(), log),
		backend: backend.NewClient(
			cfg.GetBackendURL(),
			cfg.GetProtocolPath(),
			backend.NewHTTPTransport(cfg.GetRequestTimeout()),
			hc.Stats(),
			log,
		),
		reporter: backend.NewReporter(hc, notifier, log),
		notifier: notifier,
	}

	t.Hub = market.NewHub(market.Deps{
		Backend:        t.backend,
		Reporter:       t.reporter,
		Names:          t.names,
		Favorites:      t.favorites,
		Stats:          hc.Stats(),
		Log:            log,
		Debounce:       cfg.GetDebounce(),
		RequestTimeout: cfg.GetRequestTimeout(),
	}, cfg.GetBrowsePageSize(), cfg.GetTransactionsPageSize())

	return t, nil
}

// Start connects to the host, loads the caches and kicks off the first sync
// of the active section.
func (t *TradePost) Start(ctx context.Context) error {
	t.favorites.LoadMirror(ctx)

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := t.host.Connect(connectCtx); err != nil {
		return err
	}

	stats := t.host.Stats().Current()
	t.names.Load(ctx, stats.Language)
	t.feed.Start(ctx)

	t.mu.Lock()
	t.unsubscribes = append(t.unsubscribes, t.host.Stats().Subscribe(t.onStats))
	t.mu.Unlock()

	t.host.Import(host.StorageCapability, func(cp *host.Capability) {
		if err := t.favorites.Attach(ctx, host.NewStore(cp)); err != nil {
			t.log.Error("Failed to attach favorites", err)
			return
		}
		if sec, ok := t.Hub.Store.Get(section.Browse); ok && sec.Synced {
			t.Hub.Browse.Refresh(market.RefreshOptions{Immediate: true})
		}
	})

	t.log.Info("Trading post started",
		"active_section", t.Hub.Store.Active(),
		"game", stats.GameCode,
		"character", stats.Character.Name)
	t.Hub.Active().Get()
	return nil
}

// onStats reacts to host changes that invalidate cached names.
func (t *TradePost) onStats(s host.Stats, c host.Change) {
	if c.Type != host.EventLanguage && c.Type != host.EventStats {
		return
	}
	if itemcache.NormalizeLanguage(s.Language) == t.names.Language() {
		return
	}
	t.log.Info("Host language changed", "language", s.Language)
	t.names.SetLanguage(context.Background(), s.Language)
	t.Hub.RefreshActive()
}

// OnSynced subscribes fn to every section's synced signal.
func (t *TradePost) OnSynced(fn func(section.Name)) func() {
	return t.Hub.Signal.Subscribe(fn)
}

// Close stops background work and flushes caches.
func (t *TradePost) Close() error {
	t.log.Info("Closing trading post")

	t.mu.Lock()
	for _, u := range t.unsubscribes {
		u()
	}
	t.unsubscribes = nil
	t.mu.Unlock()

	t.Hub.Close()
	t.feed.Stop()
	t.names.Flush()
	return t.db.Close()
}

// Run starts the trading post without a window and logs each sync until ctx
// ends.
func (t *TradePost) Run(ctx context.Context) error {
	unsubscribe := t.OnSynced(func(name section.Name) {
		sec, _ := t.Hub.Store.Get(name)
		t.log.Info("Section synced",
			"section", name,
			"results", len(sec.Results),
			"total", sec.Total,
			"offset", sec.Offset,
			"more", sec.More)
	})
	defer unsubscribe()

	if err := t.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

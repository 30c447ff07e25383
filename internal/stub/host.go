package stub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"tradepost/internal/host"
	"tradepost/internal/models"
	"tradepost/pkg/core"
)

// Host plays the embedding application: it answers bridge calls on a unix
// socket and pushes stats events to websocket subscribers.
type Host struct {
	socketPath string
	log        core.Logger
	router     chi.Router
	upgrader   websocket.Upgrader

	mu            sync.Mutex
	stats         host.Stats
	names         map[string]map[int]string
	store         map[string]json.RawMessage
	reports       []json.RawMessage
	calls         map[string]int
	rejectReports bool
	subscribers   map[*websocket.Conn]struct{}
	listener      net.Listener
}

func NewHost(socketPath string, data Data, log core.Logger) *Host {
	h := &Host{
		socketPath: socketPath,
		log:        log,
		router:     chi.NewRouter(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		stats:       data.Stats,
		names:       data.Names,
		store:       make(map[string]json.RawMessage),
		calls:       make(map[string]int),
		subscribers: make(map[*websocket.Conn]struct{}),
	}
	h.router.Get("/events", h.handleEvents)
	return h
}

// ServeHTTP serves the event feed.
func (h *Host) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Listen binds the unix socket. Serve must be called to accept calls.
func (h *Host) Listen() error {
	if err := os.Remove(h.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove existing socket file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(h.socketPath), 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}
	l, err := net.Listen("unix", h.socketPath)
	if err != nil {
		return fmt.Errorf("failed to start socket server: %w", err)
	}
	h.mu.Lock()
	h.listener = l
	h.mu.Unlock()
	h.log.Info("Stub host socket listening", "path", h.socketPath)
	return nil
}

// Start binds the socket and serves in the background until ctx ends.
func (h *Host) Start(ctx context.Context) error {
	if err := h.Listen(); err != nil {
		return err
	}
	go func() {
		if err := h.Serve(ctx); err != nil {
			h.log.Error("Stub host stopped", err)
		}
	}()
	return nil
}

// Serve accepts bridge calls until ctx ends.
func (h *Host) Serve(ctx context.Context) error {
	h.mu.Lock()
	l := h.listener
	h.mu.Unlock()
	if l == nil {
		return errors.New("host stub is not listening")
	}

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			h.log.Error("Failed to accept connection", err)
			continue
		}
		go h.handleConnection(conn)
	}
}

func (h *Host) handleConnection(conn net.Conn) {
	defer conn.Close()

	var req host.Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		h.log.Error("Failed to decode request", err)
		return
	}

	h.mu.Lock()
	h.calls[req.Command]++
	h.mu.Unlock()

	h.log.Debug("Stub host request", "command", req.Command)

	data, err := h.dispatch(req)
	resp := host.Response{Status: host.StatusSuccess, Data: data}
	if err != nil {
		resp = host.Response{Status: host.StatusError, Message: err.Error()}
	}

	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		h.log.Error("Failed to encode response", err)
	}
}

func (h *Host) dispatch(req host.Request) (json.RawMessage, error) {
	switch req.Command {
	case host.CmdHandshake:
		h.mu.Lock()
		defer h.mu.Unlock()
		return json.Marshal(h.stats)

	case host.CmdImportCapability:
		var args host.ImportArgs
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return nil, err
		}
		if args.Name != host.StorageCapability {
			return nil, fmt.Errorf("unknown capability %q", args.Name)
		}
		return json.Marshal(host.ImportReply{
			Name:  args.Name,
			Props: map[string]json.RawMessage{"persistent": json.RawMessage("true")},
		})

	case host.CmdCapabilityCall:
		var args host.CapabilityCallArgs
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return nil, err
		}
		return h.callStorage(args)

	case host.CmdResolveItemNames:
		var args host.ResolveNamesArgs
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return nil, err
		}
		h.mu.Lock()
		table := h.names[args.Language]
		out := make([]host.ItemName, 0, len(args.IDs))
		for _, id := range args.IDs {
			if name, ok := table[id]; ok {
				out = append(out, host.ItemName{ID: id, Name: name})
			}
		}
		h.mu.Unlock()
		return json.Marshal(out)

	case host.CmdReportNetworkError:
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.rejectReports {
			return nil, errors.New("alerts unavailable")
		}
		h.reports = append(h.reports, req.Args)
		return nil, nil
	}
	return nil, fmt.Errorf("unknown command %q", req.Command)
}

type storeArgs struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

func (h *Host) callStorage(args host.CapabilityCallArgs) (json.RawMessage, error) {
	if args.Capability != host.StorageCapability {
		return nil, fmt.Errorf("unknown capability %q", args.Capability)
	}
	var sa storeArgs
	if err := json.Unmarshal(args.Args, &sa); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	switch args.Method {
	case "get":
		if v, ok := h.store[sa.Key]; ok {
			return v, nil
		}
		return json.RawMessage("null"), nil
	case "set":
		h.store[sa.Key] = sa.Value
		return nil, nil
	}
	return nil, fmt.Errorf("unknown storage method %q", args.Method)
}

func (h *Host) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade event connection", err)
		return
	}

	h.mu.Lock()
	h.subscribers[conn] = struct{}{}
	h.mu.Unlock()
	h.log.Debug("Event subscriber connected", "remote_addr", r.RemoteAddr)

	// Drain until the client goes away so close frames are processed.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.subscribers, conn)
	h.mu.Unlock()
	conn.Close()
}

// Subscribers returns how many feed clients are connected.
func (h *Host) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Publish sends ev to every feed subscriber.
func (h *Host) Publish(ev host.Event) error {
	msg, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.subscribers {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Warn("Failed to push event", "error", err)
		}
	}
	return nil
}

// SetInventory replaces the inventory and pushes the change.
func (h *Host) SetInventory(inv []models.InventorySlot) error {
	h.mu.Lock()
	h.stats.Inventory = inv
	h.mu.Unlock()

	data, err := json.Marshal(inv)
	if err != nil {
		return err
	}
	return h.Publish(host.Event{Type: host.EventInventory, Data: data})
}

// SetLanguage switches the host language and pushes the change.
func (h *Host) SetLanguage(lang string) error {
	h.mu.Lock()
	h.stats.Language = lang
	h.mu.Unlock()

	data, err := json.Marshal(lang)
	if err != nil {
		return err
	}
	return h.Publish(host.Event{Type: host.EventLanguage, Data: data})
}

// RejectReports makes ReportNetworkError calls fail.
func (h *Host) RejectReports(reject bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rejectReports = reject
}

// Reports returns the raw network error reports received.
func (h *Host) Reports() []json.RawMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]json.RawMessage, len(h.reports))
	copy(out, h.reports)
	return out
}

// Calls returns how often command was received.
func (h *Host) Calls(command string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls[command]
}

// StoreValue returns the raw host-store value for key.
func (h *Host) StoreValue(key string) json.RawMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.store[key]
}

// SetStoreValue seeds the host store.
func (h *Host) SetStoreValue(key string, v json.RawMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.store[key] = v
}

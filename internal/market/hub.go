package market

import (
	"fmt"

	"tradepost/internal/section"
)

// Hub owns the three controllers over one store.
type Hub struct {
	Store        *section.Store
	Signal       *Signal
	Browse       *Browse
	Sell         *Sell
	Transactions *Transactions

	controllers map[section.Name]Controller
}

// NewHub builds every controller. d.Store and d.Signal are created when nil;
// page sizes come from the arguments.
func NewHub(d Deps, browsePage, transactionsPage int) *Hub {
	if d.Store == nil {
		d.Store = section.NewStore(Sections()...)
	}
	if d.Signal == nil {
		d.Signal = NewSignal()
	}

	bd := d
	bd.PageSize = browsePage
	td := d
	td.PageSize = transactionsPage

	h := &Hub{
		Store:        d.Store,
		Signal:       d.Signal,
		Browse:       NewBrowse(bd),
		Sell:         NewSell(d),
		Transactions: NewTransactions(td),
	}
	h.controllers = map[section.Name]Controller{
		section.Browse:       h.Browse,
		section.Sell:         h.Sell,
		section.Transactions: h.Transactions,
	}
	return h
}

// Controller returns the controller for name.
func (h *Hub) Controller(name section.Name) (Controller, bool) {
	c, ok := h.controllers[name]
	return c, ok
}

// Active returns the active section's controller.
func (h *Hub) Active() Controller {
	return h.controllers[h.Store.Active()]
}

// Switch makes name the active section, resetting it to its defaults. It
// only syncs when sync is set.
func (h *Hub) Switch(name section.Name, sync bool) error {
	c, ok := h.controllers[name]
	if !ok {
		return fmt.Errorf("unknown section %q", name)
	}
	if err := h.Store.SetActive(name); err != nil {
		return err
	}
	if sync {
		c.Get()
	}
	return nil
}

// RefreshActive re-syncs the active section immediately.
func (h *Hub) RefreshActive() {
	h.Active().Refresh(RefreshOptions{Immediate: true})
}

func (h *Hub) Close() {
	for _, c := range h.controllers {
		c.Close()
	}
}

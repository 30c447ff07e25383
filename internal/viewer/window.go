// Package viewer is the desktop window over the trading post sections.
package viewer

import (
	"context"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"tradepost/internal/market"
	"tradepost/internal/models"
	"tradepost/internal/section"
	"tradepost/pkg/core"
)

const (
	starOn  = "★"
	starOff = "☆"
)

// Window renders the active section's results and forwards user input to
// the section controllers.
type Window struct {
	hub    *market.Hub
	log    core.Logger
	window fyne.Window

	sections *widget.RadioGroup
	search   *widget.Entry
	list     *widget.List
	status   *widget.Label
	loadMore *widget.Button
	reset    *widget.Button

	mu          sync.Mutex
	active      section.Name
	rows        []models.Item
	byTitle     map[string]section.Name
	unsubscribe func()
}

func New(a fyne.App, hub *market.Hub, log core.Logger) *Window {
	w := &Window{
		hub:     hub,
		log:     log,
		window:  a.NewWindow("Trading Post"),
		active:  hub.Store.Active(),
		byTitle: make(map[string]section.Name),
	}

	var titles []string
	for _, name := range hub.Store.Names() {
		t := sectionTitle(name)
		titles = append(titles, t)
		w.byTitle[t] = name
	}

	w.sections = widget.NewRadioGroup(titles, nil)
	w.sections.Horizontal = true
	w.sections.Required = true
	w.sections.SetSelected(sectionTitle(w.active))
	w.sections.OnChanged = w.onSection

	w.search = widget.NewEntry()
	w.search.SetPlaceHolder("Search items")
	w.search.OnChanged = w.onSearch

	w.status = widget.NewLabel("")
	w.loadMore = widget.NewButton("Load more", func() {
		w.controller().Refresh(market.RefreshOptions{LoadMore: true})
	})
	w.reset = widget.NewButton("Reset", w.onReset)
	refresh := widget.NewButton("Refresh", w.hub.RefreshActive)

	w.list = widget.NewList(w.length, w.createRow, w.updateRow)

	top := container.NewVBox(w.sections, w.search)
	bottom := container.NewHBox(w.status, refresh, w.reset, w.loadMore)
	w.window.SetContent(container.NewBorder(top, bottom, nil, nil, w.list))
	w.window.Resize(fyne.NewSize(720, 640))

	w.unsubscribe = hub.Signal.Subscribe(func(name section.Name) {
		if name == w.Active() {
			w.reload()
		}
	})

	w.reload()
	return w
}

// Select activates name, resets it to its defaults and syncs it.
func (w *Window) Select(name section.Name) {
	if err := w.hub.Switch(name, true); err != nil {
		w.log.Error("Failed to switch section", err, "section", name)
		return
	}

	w.mu.Lock()
	w.active = name
	w.mu.Unlock()

	sec, _ := w.hub.Store.Get(name)
	w.search.OnChanged = nil
	w.search.SetText(sec.Params.Text)
	w.search.OnChanged = w.onSearch

	if w.sections.Selected != sectionTitle(name) {
		w.sections.OnChanged = nil
		w.sections.SetSelected(sectionTitle(name))
		w.sections.OnChanged = w.onSection
	}
	w.reload()
}

func (w *Window) Active() section.Name {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// Rows returns the rows currently rendered.
func (w *Window) Rows() []models.Item {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.Item(nil), w.rows...)
}

func (w *Window) Status() string {
	return w.status.Text
}

func (w *Window) ShowAndRun() {
	w.window.ShowAndRun()
}

func (w *Window) Close() {
	w.unsubscribe()
	w.window.Close()
}

func (w *Window) controller() market.Controller {
	c, _ := w.hub.Controller(w.Active())
	return c
}

func (w *Window) onSection(title string) {
	if name, ok := w.byTitle[title]; ok {
		w.Select(name)
	}
}

func (w *Window) onSearch(text string) {
	name := w.Active()
	w.hub.Store.SetText(name, text)
	w.controller().Refresh(market.RefreshOptions{})
}

func (w *Window) onReset() {
	name := w.Active()
	if !w.hub.Store.CanReset(name) {
		return
	}
	w.hub.Store.Reset(name)
	w.Select(name)
}

func (w *Window) reload() {
	name := w.Active()
	sec, _ := w.hub.Store.Get(name)

	w.mu.Lock()
	w.rows = sec.Results
	w.mu.Unlock()

	w.status.SetText(StatusText(sec))
	if sec.More {
		w.loadMore.Enable()
	} else {
		w.loadMore.Disable()
	}
	if w.hub.Store.CanReset(name) {
		w.reset.Enable()
	} else {
		w.reset.Disable()
	}
	w.list.Refresh()
}

func (w *Window) length() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.rows)
}

func (w *Window) createRow() fyne.CanvasObject {
	return container.NewBorder(nil, nil, nil, widget.NewButton(starOff, nil), widget.NewLabel(""))
}

func (w *Window) updateRow(id widget.ListItemID, obj fyne.CanvasObject) {
	w.mu.Lock()
	if id >= len(w.rows) {
		w.mu.Unlock()
		return
	}
	it := w.rows[id]
	name := w.active
	w.mu.Unlock()

	row := obj.(*fyne.Container)
	row.Objects[0].(*widget.Label).SetText(RowText(name, it))

	star := row.Objects[1].(*widget.Button)
	if name != section.Browse {
		star.Hide()
		return
	}
	star.Show()
	if it.Favorite {
		star.SetText(starOn)
	} else {
		star.SetText(starOff)
	}
	star.OnTapped = func() { go w.toggleFavorite(it) }
}

func (w *Window) toggleFavorite(it models.Item) {
	if !it.Favorite && w.hub.Browse.FavoritesFull() {
		w.status.SetText("Favorites limit reached")
		return
	}
	if _, err := w.hub.Browse.ToggleFavorite(context.Background(), it); err != nil {
		w.log.Error("Failed to toggle favorite", err, "item_id", it.ID)
		w.status.SetText("Favorite not saved")
		return
	}
	w.reload()
}

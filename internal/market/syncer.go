package market

import (
	"context"
	"fmt"
	"time"

	"tradepost/internal/debounce"
	"tradepost/internal/models"
	"tradepost/internal/section"
)

// fetchFunc loads data for one sync. snap is the section as it was when the
// sync began; the returned apply func runs only if the sync is still
// current. A nil apply leaves the section's results untouched.
type fetchFunc func(ctx context.Context, snap section.Section, loadMore bool) (apply func(*section.Section), err error)

// syncer is the state machine shared by every controller: idle, syncing,
// then synced or silently discarded.
type syncer struct {
	Deps
	name   section.Name
	timer  *debounce.Timer
	fetch  fetchFunc
	ctx    context.Context
	cancel context.CancelFunc
}

func newSyncer(name section.Name, d Deps, fetch fetchFunc) *syncer {
	ctx, cancel := context.WithCancel(context.Background())
	return &syncer{
		Deps:   d,
		name:   name,
		timer:  debounce.New(d.Debounce),
		fetch:  fetch,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *syncer) Name() section.Name {
	return s.name
}

func (s *syncer) Get() {
	s.Refresh(RefreshOptions{})
}

func (s *syncer) Refresh(opts RefreshOptions) {
	switch {
	case opts.LoadMore:
		s.loadMore()
	case opts.Immediate:
		s.timer.Cancel()
		s.start(false)
	default:
		s.timer.Arm(func() { s.start(false) })
	}
}

func (s *syncer) Results() []models.Item {
	sec, _ := s.Store.Get(s.name)
	return sec.Results
}

func (s *syncer) OnSynced(fn func(section.Name)) func() {
	return s.Signal.Subscribe(func(name section.Name) {
		if name == s.name {
			fn(name)
		}
	})
}

func (s *syncer) Close() {
	s.timer.Cancel()
	s.cancel()
}

// loadMore appends the next page. It does nothing while a sync is running
// or a refresh is pending, since the next page would belong to a query the
// section no longer shows.
func (s *syncer) loadMore() {
	sec, ok := s.Store.Get(s.name)
	if !ok || !sec.More {
		s.Log.Debug("No more pages to load", "section", s.name)
		return
	}
	if sec.Syncing || s.timer.Pending() {
		s.Log.Debug("Load more skipped while syncing", "section", s.name)
		return
	}
	s.start(true)
}

// start captures a new generation token and runs the fetch in the
// background.
func (s *syncer) start(loadMore bool) {
	if s.ctx.Err() != nil {
		return
	}
	tok := s.Store.Begin(s.name)
	snap, _ := s.Store.Get(s.name)

	s.Log.Debug("Sync started", "section", s.name, "token", tok, "load_more", loadMore, "offset", snap.Offset)
	go s.run(tok, snap, loadMore)
}

func (s *syncer) run(tok section.Token, snap section.Section, loadMore bool) {
	defer func() {
		if r := recover(); r != nil {
			s.Log.Error("Sync panicked", fmt.Errorf("%v", r), "section", s.name)
			s.commit(tok, nil)
		}
	}()

	ctx := s.ctx
	if s.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	apply, err := s.fetch(ctx, snap, loadMore)
	if err != nil {
		if s.Store.Current(s.name) == tok && s.Reporter != nil {
			s.Reporter.Report(ctx, err)
		}
		s.Log.Error("Sync failed", err, "section", s.name, "load_more", loadMore)
		if apply == nil && !loadMore {
			apply = clearResults
		}
	}

	if s.commit(tok, apply) {
		s.Log.Debug("Sync finished", "section", s.name, "token", tok, "duration", time.Since(start))
	}
}

// commit writes through apply if tok is still current and emits the synced
// signal. Stale results are dropped without touching the section.
func (s *syncer) commit(tok section.Token, apply func(*section.Section)) bool {
	if !s.Store.Apply(s.name, tok, apply) {
		s.Log.Debug("Discarding stale sync result", "section", s.name, "token", tok)
		return false
	}
	s.Signal.Emit(s.name)
	return true
}

func clearResults(sec *section.Section) {
	sec.Results = nil
	sec.Offset = 0
	sec.Total = 0
	sec.More = false
}

// page writes a fetched page into the section. A load-more appends and
// moves the offset forward by the page size; the offset only advances when
// the section knew more pages existed.
func page(items []models.Item, total int, more bool, loadMore bool, pageSize int) func(*section.Section) {
	return func(sec *section.Section) {
		if loadMore {
			if !sec.More {
				return
			}
			sec.Results = append(sec.Results, items...)
			sec.Offset += pageSize
		} else {
			sec.Results = items
			sec.Offset = 0
		}
		sec.Total = total
		sec.More = more
	}
}

package section

import (
	"fmt"
	"sync"

	"tradepost/internal/facet"
)

// Store owns every section record and the active-section pointer. It is
// passed explicitly to the controllers that mutate it.
type Store struct {
	mu       sync.RWMutex
	sections map[Name]*Section
	order    []Name
	active   Name
}

// Spec declares a section and its defaults.
type Spec struct {
	Name     Name
	Defaults Defaults
}

// NewStore creates one record per spec. The first spec becomes active.
func NewStore(specs ...Spec) *Store {
	s := &Store{sections: make(map[Name]*Section, len(specs))}
	for _, spec := range specs {
		sec := &Section{Name: spec.Name, defaults: spec.Defaults}
		sec.defaults.Params = spec.Defaults.Params.Clone()
		sec.reset()
		s.sections[spec.Name] = sec
		s.order = append(s.order, spec.Name)
	}
	if len(specs) > 0 {
		s.active = specs[0].Name
	}
	return s
}

// Names lists sections in declaration order.
func (s *Store) Names() []Name {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Name(nil), s.order...)
}

// Active returns the currently active section.
func (s *Store) Active() Name {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SetActive switches the active section and resets it to a copy of its
// defaults. It does not start a sync.
func (s *Store) SetActive(name Name) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sec, ok := s.sections[name]
	if !ok {
		return fmt.Errorf("unknown section %q", name)
	}
	s.active = name
	sec.reset()
	return nil
}

// Get returns a copy of the section.
func (s *Store) Get(name Name) (Section, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sec, ok := s.sections[name]
	if !ok {
		return Section{}, false
	}
	return sec.clone(), true
}

// SetParams shallow-merges patch into the section's facets. A nil value
// removes the key; range facets go back to their default instead of being
// deleted. Removing a key that is not set does nothing.
func (s *Store) SetParams(name Name, patch facet.Values) {
	s.update(name, func(sec *Section) {
		if sec.Params.Facets == nil {
			sec.Params.Facets = facet.Values{}
		}
		changed := false
		for key, v := range patch {
			if v != nil {
				sec.Params.Facets[key] = facet.Clone(v)
				changed = true
				continue
			}
			if _, set := sec.Params.Facets[key]; !set {
				continue
			}
			changed = true
			if def, ok := facet.Lookup(key); ok && def.Kind == facet.KindRange {
				sec.Params.Facets[key] = facet.Clone(def.Default)
				continue
			}
			delete(sec.Params.Facets, key)
		}
		if changed {
			sec.Offset = 0
			sec.More = false
		}
	})
}

// SetText sets the free-text filter.
func (s *Store) SetText(name Name, text string) {
	s.update(name, func(sec *Section) {
		sec.Params.Text = text
		sec.Offset = 0
		sec.More = false
	})
}

// SetCategory changes category/subcategory and strips facets the new facet
// set does not contain.
func (s *Store) SetCategory(name Name, category, subcategory string) {
	s.update(name, func(sec *Section) {
		sec.Params.Category = category
		sec.Params.Subcategory = subcategory
		sec.Params.Facets = facet.Strip(sec.Params.Facets, category, subcategory)
		sec.Offset = 0
		sec.More = false
	})
}

// SetSort changes the sort field and direction.
func (s *Store) SetSort(name Name, field string, desc bool) {
	s.update(name, func(sec *Section) {
		sec.SortField = field
		sec.SortDesc = desc
		sec.Offset = 0
		sec.More = false
	})
}

// Reset restores the section's params, sort and offset to its defaults.
func (s *Store) Reset(name Name) {
	s.update(name, func(sec *Section) { sec.reset() })
}

// CanReset reports whether any param differs from the section's defaults.
// Catalog categories only compare their active facet set; sections outside
// the catalog (sell, transactions) compare every facet they carry.
func (s *Store) CanReset(name Name) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sec, ok := s.sections[name]
	if !ok {
		return false
	}
	if sec.Params.Text != sec.defaults.Params.Text {
		return true
	}
	keys := facet.Active(sec.Params.Category, sec.Params.Subcategory)
	if _, known := facet.LookupCategory(sec.Params.Category); !known {
		keys = nil
		for key := range sec.Params.Facets {
			keys = append(keys, key)
		}
	}
	for _, key := range keys {
		v, set := sec.Params.Facets[key]
		if !set {
			continue
		}
		base, ok := sec.defaults.Params.Facets[key]
		if !ok {
			base = facet.Default(key)
		}
		if !facet.Equal(v, base) {
			return true
		}
	}
	return false
}

// Begin starts a new generation for the section, marks it syncing and
// returns the token the sync must present to Apply.
func (s *Store) Begin(name Name) Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	sec, ok := s.sections[name]
	if !ok {
		return 0
	}
	sec.token++
	sec.Syncing = true
	sec.Synced = false
	return sec.token
}

// Current returns the section's live token.
func (s *Store) Current(name Name) Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sec, ok := s.sections[name]; ok {
		return sec.token
	}
	return 0
}

// Apply runs fn against the section only if tok is still current, then
// marks the section synced. It reports whether fn ran.
func (s *Store) Apply(name Name, tok Token, fn func(*Section)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sec, ok := s.sections[name]
	if !ok || sec.token != tok {
		return false
	}
	if fn != nil {
		fn(sec)
	}
	sec.Syncing = false
	sec.Synced = true
	return true
}

func (s *Store) update(name Name, fn func(*Section)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sec, ok := s.sections[name]; ok {
		fn(sec)
	}
}

// Edit mutates the section in place without starting a new generation. It
// is for local changes, such as flipping a favorite flag, that do not come
// from a sync.
func (s *Store) Edit(name Name, fn func(*Section)) {
	s.update(name, fn)
}

// Package section holds the per-view trading-post state: filter params,
// results, sort and paging, plus the generation token used to drop stale
// responses.
package section

import (
	"slices"

	"tradepost/internal/facet"
	"tradepost/internal/models"
)

// Name identifies a trading-post view.
type Name string

const (
	Browse       Name = "browse"
	Sell         Name = "sell"
	Transactions Name = "transactions"
)

// Token is a per-section generation marker. A sync captures the token when
// it starts and may only write results while the token is still current.
type Token uint64

// Params is the user's filter selection for a section.
type Params struct {
	Category    string
	Subcategory string
	Text        string
	Facets      facet.Values
}

// Clone returns a deep copy of p.
func (p Params) Clone() Params {
	p.Facets = p.Facets.Clone()
	return p
}

// Defaults is what a section is reset to.
type Defaults struct {
	Params    Params
	SortField string
	SortDesc  bool
}

// Section is one view's state. Values returned from the Store are copies.
type Section struct {
	Name      Name
	Params    Params
	Results   []models.Item
	SortField string
	SortDesc  bool
	Offset    int
	Total     int
	More      bool
	Syncing   bool
	Synced    bool

	token    Token
	defaults Defaults
}

// Token returns the generation the section was at when it was copied.
func (s Section) Token() Token {
	return s.token
}

func (s *Section) clone() Section {
	out := *s
	out.Params = s.Params.Clone()
	out.Results = slices.Clone(s.Results)
	out.defaults.Params = s.defaults.Params.Clone()
	return out
}

func (s *Section) reset() {
	s.Params = s.defaults.Params.Clone()
	s.SortField = s.defaults.SortField
	s.SortDesc = s.defaults.SortDesc
	s.Offset = 0
	s.More = false
}

// Package query turns a section's facet selection into the backend search
// payload. Translate is pure: the same Input always yields an equal Request.
package query

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"tradepost/internal/facet"
)

const (
	categoryArmor  = "armor"
	categoryWeapon = "weapon"

	// SortFavorites is the sort field that scopes results to the favorites set.
	SortFavorites = "favorites"
	defaultSort   = "name"
)

// Input is everything the translator reads.
type Input struct {
	Category       string
	Subcategory    string
	Facets         facet.Values
	HostProfession string
	Text           string
	SortField      string
	SortDesc       bool
	Offset         int
	Count          int
	// Favorites holds the ids of the favorites set, used when the query is
	// scoped to favorites.
	Favorites []int
}

// Request is the backend search body.
type Request struct {
	Category      string   `json:"category,omitempty"`
	Subcategory   string   `json:"subcategory,omitempty"`
	Types         []string `json:"types,omitempty"`
	WeightClasses []string `json:"weight_classes,omitempty"`
	Profession    string   `json:"profession,omitempty"`
	LevelMin      int      `json:"level_min"`
	LevelMax      int      `json:"level_max"`
	Rarities      []string `json:"rarities,omitempty"`
	Available     bool     `json:"available,omitempty"`
	Text          string   `json:"text,omitempty"`
	ItemIDs       []int    `json:"ids,omitempty"`
	SpecifiedOnly bool     `json:"specified_only,omitempty"`
	SortField     string   `json:"sort_field"`
	SortDesc      bool     `json:"sort_desc"`
	Offset        int      `json:"offset"`
	Count         int      `json:"count"`
}

// Translate builds the backend request for in.
func Translate(in Input) Request {
	req := Request{
		LevelMin:  facet.MinLevel,
		LevelMax:  facet.MaxLevel,
		Text:      strings.TrimSpace(in.Text),
		SortField: in.SortField,
		SortDesc:  in.SortDesc,
		Offset:    in.Offset,
		Count:     in.Count,
	}
	if req.SortField == "" {
		req.SortField = defaultSort
	}

	if in.Category == facet.Favorites || in.SortField == SortFavorites {
		return favoritesOnly(req, in)
	}

	req.Category = in.Category
	req.Subcategory = in.Subcategory

	active := facet.Active(in.Category, in.Subcategory)
	for _, name := range active {
		v, ok := in.Facets[name]
		if !ok {
			continue
		}
		applyFacet(&req, name, v)
	}

	if isEquipment(in.Category) && req.Profession == "" && slices.Contains(active, facet.Profession) {
		req.Profession = strings.ToLower(in.HostProfession)
	}

	switch in.Category {
	case categoryArmor:
		if w, ok := WeightClass(req.Profession); ok {
			req.WeightClasses = []string{w, WeightNone}
		}
	case categoryWeapon:
		if in.Subcategory == "" {
			req.Types = narrowWeapons(req.Profession)
		}
	}

	return req
}

// applyFacet writes one facet into the request. The switch must cover every
// facet.Value shape.
func applyFacet(req *Request, name string, v facet.Value) {
	switch fv := v.(type) {
	case facet.Range:
		if name == facet.Level {
			req.LevelMin = max(fv.Min, facet.MinLevel)
			req.LevelMax = min(fv.Max, facet.MaxLevel)
		}
	case facet.Enum:
		switch name {
		case facet.Rarity:
			req.Rarities = fv.Sorted()
		case facet.Profession:
			if len(fv.Values) > 0 {
				req.Profession = strings.ToLower(fv.Sorted()[0])
			}
		}
	case facet.Bool:
		if name == facet.Available {
			req.Available = bool(fv)
		}
	default:
		panic(fmt.Sprintf("query: unhandled facet value %T", v))
	}
}

func favoritesOnly(req Request, in Input) Request {
	ids := slices.Clone(in.Favorites)
	sort.Ints(ids)
	req.ItemIDs = ids
	req.SpecifiedOnly = true
	if req.SortField == SortFavorites {
		req.SortField = defaultSort
	}
	return req
}

func narrowWeapons(profession string) []string {
	all := facet.Subtypes(categoryWeapon)
	usable, ok := UsableWeapons(profession)
	if !ok {
		return all
	}
	out := make([]string, 0, len(usable))
	for _, t := range all {
		if slices.Contains(usable, t) {
			out = append(out, t)
		}
	}
	return out
}

func isEquipment(category string) bool {
	return category == categoryArmor || category == categoryWeapon
}

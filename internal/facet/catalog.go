package facet

import "slices"

// Facet names.
const (
	Level      = "level"
	Rarity     = "rarity"
	Profession = "profession"
	Available  = "available"
	Slot       = "slot"
)

// Level bounds.
const (
	MinLevel = 0
	MaxLevel = 80
)

// Pseudo category that scopes a query to the favorites set.
const Favorites = "favorites"

var Rarities = []string{"Junk", "Basic", "Fine", "Masterwork", "Rare", "Exotic", "Ascended", "Legendary"}

// Def describes a facet and its reset value.
type Def struct {
	Name    string
	Kind    Kind
	Default Value
	Options []string
}

var defs = map[string]Def{
	Level:      {Name: Level, Kind: KindRange, Default: Range{Min: MinLevel, Max: MaxLevel}},
	Rarity:     {Name: Rarity, Kind: KindEnum, Default: Enum{}, Options: Rarities},
	Profession: {Name: Profession, Kind: KindEnum, Default: Enum{}},
	Available:  {Name: Available, Kind: KindBool, Default: Bool(false)},
	Slot:       {Name: Slot, Kind: KindRange, Default: Range{Min: 0, Max: 999}},
}

// Lookup returns the definition of a facet.
func Lookup(name string) (Def, bool) {
	d, ok := defs[name]
	return d, ok
}

// Default returns the reset value for a facet, or nil if the facet is unknown.
func Default(name string) Value {
	if d, ok := defs[name]; ok {
		return Clone(d.Default)
	}
	return nil
}

// Category is a browse category with its facet set. SubFacets overrides
// Facets for individual subcategories.
type Category struct {
	Name          string
	Subcategories []string
	Facets        []string
	SubFacets     map[string][]string
}

var (
	gearFacets   = []string{Rarity, Level, Available}
	equipFacets  = []string{Rarity, Level, Profession, Available}
	plainFacets  = []string{Rarity, Available}
	weaponTypes  = []string{"axe", "dagger", "mace", "pistol", "scepter", "sword", "focus", "shield", "torch", "warhorn", "greatsword", "hammer", "longbow", "rifle", "shortbow", "staff", "harpoon", "speargun", "trident"}
	categoryList = []Category{
		{Name: "all", Facets: gearFacets},
		{Name: Favorites},
		{Name: "armor", Facets: equipFacets, Subcategories: []string{"helm", "shoulders", "coat", "gloves", "leggings", "boots", "helm_aquatic"}},
		{Name: "weapon", Facets: equipFacets, Subcategories: weaponTypes},
		{Name: "trinket", Facets: gearFacets, Subcategories: []string{"amulet", "ring", "accessory"}},
		{Name: "back", Facets: gearFacets},
		{
			Name:          "upgrade_component",
			Facets:        gearFacets,
			Subcategories: []string{"rune", "sigil", "gem", "infusion"},
			SubFacets:     map[string][]string{"infusion": plainFacets},
		},
		{
			Name:          "consumable",
			Facets:        gearFacets,
			Subcategories: []string{"food", "utility", "booze", "transmutation", "unlock"},
			SubFacets:     map[string][]string{"unlock": plainFacets},
		},
		{Name: "crafting_material", Facets: plainFacets},
		{Name: "bag", Facets: plainFacets},
		{Name: "gizmo", Facets: plainFacets},
		{Name: "minipet", Facets: plainFacets},
		{Name: "gathering", Facets: plainFacets, Subcategories: []string{"foraging", "logging", "mining"}},
		{Name: "trophy", Facets: plainFacets},
	}
	categories = indexCategories(categoryList)
)

func indexCategories(list []Category) map[string]Category {
	out := make(map[string]Category, len(list))
	for _, c := range list {
		out[c.Name] = c
	}
	return out
}

// Categories returns the category table in display order.
func Categories() []Category {
	return slices.Clone(categoryList)
}

// LookupCategory finds a category by name.
func LookupCategory(name string) (Category, bool) {
	c, ok := categories[name]
	return c, ok
}

// Subtypes returns the category's subcategory list.
func Subtypes(category string) []string {
	return slices.Clone(categories[category].Subcategories)
}

// Active returns the facet names in effect for a category/subcategory pair.
// A subcategory-specific set wins over the category default.
func Active(category, subcategory string) []string {
	c, ok := categories[category]
	if !ok {
		return nil
	}
	if subcategory != "" {
		if set, ok := c.SubFacets[subcategory]; ok {
			return slices.Clone(set)
		}
	}
	return slices.Clone(c.Facets)
}

// Has reports whether name is part of the active facet set.
func Has(category, subcategory, name string) bool {
	return slices.Contains(Active(category, subcategory), name)
}

// Strip returns a copy of vs without the facets that are not active for the
// given category/subcategory.
func Strip(vs Values, category, subcategory string) Values {
	active := Active(category, subcategory)
	out := make(Values, len(vs))
	for k, v := range vs {
		if slices.Contains(active, k) {
			out[k] = Clone(v)
		}
	}
	return out
}

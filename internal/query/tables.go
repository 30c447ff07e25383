package query

import "strings"

// Weight classes as the backend names them.
const (
	WeightHeavy  = "Heavy"
	WeightMedium = "Medium"
	WeightLight  = "Light"
	WeightNone   = "None"
)

var professionWeight = map[string]string{
	"guardian":     WeightHeavy,
	"revenant":     WeightHeavy,
	"warrior":      WeightHeavy,
	"engineer":     WeightMedium,
	"ranger":       WeightMedium,
	"thief":        WeightMedium,
	"elementalist": WeightLight,
	"mesmer":       WeightLight,
	"necromancer":  WeightLight,
}

var professionWeapons = map[string][]string{
	"guardian":     {"axe", "mace", "pistol", "scepter", "sword", "focus", "shield", "torch", "greatsword", "hammer", "longbow", "staff", "harpoon", "trident"},
	"revenant":     {"axe", "mace", "scepter", "sword", "shield", "hammer", "shortbow", "staff", "harpoon"},
	"warrior":      {"axe", "dagger", "mace", "pistol", "sword", "shield", "torch", "warhorn", "greatsword", "hammer", "longbow", "rifle", "harpoon", "speargun"},
	"engineer":     {"mace", "pistol", "sword", "shield", "hammer", "rifle", "shortbow", "harpoon", "speargun"},
	"ranger":       {"axe", "dagger", "mace", "sword", "torch", "warhorn", "greatsword", "longbow", "shortbow", "staff", "harpoon", "speargun"},
	"thief":        {"axe", "dagger", "pistol", "sword", "rifle", "shortbow", "staff", "harpoon", "speargun"},
	"elementalist": {"dagger", "pistol", "scepter", "sword", "focus", "warhorn", "hammer", "staff", "trident"},
	"mesmer":       {"axe", "dagger", "pistol", "scepter", "sword", "focus", "shield", "torch", "greatsword", "rifle", "staff", "trident"},
	"necromancer":  {"axe", "dagger", "pistol", "scepter", "sword", "focus", "torch", "warhorn", "greatsword", "staff", "trident"},
}

// WeightClass returns the armor weight a profession wears.
func WeightClass(profession string) (string, bool) {
	w, ok := professionWeight[strings.ToLower(profession)]
	return w, ok
}

// UsableWeapons returns the weapon subtypes a profession can equip.
func UsableWeapons(profession string) ([]string, bool) {
	w, ok := professionWeapons[strings.ToLower(profession)]
	return w, ok
}

package stub

import (
	"fmt"

	"tradepost/internal/host"
	"tradepost/internal/models"
)

// Data seeds both stubs.
type Data struct {
	Products []Product
	Current  []models.Transaction
	History  []models.Transaction
	Names    map[string]map[int]string
	Stats    host.Stats
}

// SampleData returns a small catalog that exercises every category the
// overlay filters on.
func SampleData() Data {
	products := []Product{
		product(19684, "Mithril Ingot", "crafting_material", "", "", "Basic", 0, 120, 131, 9000),
		product(19721, "Glob of Ectoplasm", "crafting_material", "", "", "Exotic", 0, 2310, 2402, 40000),
		product(24, "Vial of Powerful Blood", "crafting_material", "", "", "Fine", 0, 1540, 1620, 12000),
		product(10001, "Berserker's Draconic Coat", "armor", "coat", "Heavy", "Exotic", 80, 8100, 9400, 40),
		product(10002, "Berserker's Emblazoned Coat", "armor", "coat", "Medium", "Exotic", 80, 7800, 9200, 35),
		product(10003, "Berserker's Exalted Coat", "armor", "coat", "Light", "Exotic", 80, 7600, 8900, 28),
		product(10004, "Bandit's Pants", "armor", "leggings", "Heavy", "Rare", 62, 160, 210, 400),
		product(10005, "Rampager's Helm", "armor", "helm", "None", "Masterwork", 45, 40, 55, 900),
		product(20001, "Zojja's Greatsword", "weapon", "greatsword", "", "Ascended", 80, 0, 0, 0),
		product(20002, "Berserker's Pistol", "weapon", "pistol", "", "Exotic", 80, 2100, 2400, 120),
		product(20003, "Soldier's Staff", "weapon", "staff", "", "Exotic", 80, 1900, 2300, 95),
		product(20004, "Carrion Focus", "weapon", "focus", "", "Rare", 76, 150, 180, 300),
		product(30001, "Berserker's Ring", "trinket", "ring", "", "Exotic", 80, 4000, 4600, 12),
		product(40001, "Superior Rune of the Scholar", "upgrade_component", "rune", "", "Exotic", 60, 2900, 3100, 640),
		product(50001, "Mini Llama", "minipet", "", "", "Rare", 0, 4500, 5200, 8),
		product(60001, "Bowl of Sweet and Spicy Butternut Squash Soup", "consumable", "food", "", "Fine", 80, 35, 44, 5000),
	}

	names := map[string]map[int]string{"en": {}, "de": {}}
	for _, p := range products {
		names["en"][p.Listing.ItemID] = p.Name
		names["de"][p.Listing.ItemID] = "[de] " + p.Name
	}

	var current, history []models.Transaction
	for i := 0; i < 250; i++ {
		current = append(current, models.Transaction{
			ListingID: 1000 + i,
			ItemID:    products[i%len(products)].Listing.ItemID,
			Price:     100 + i,
			Quantity:  1 + i%5,
			Created:   fmt.Sprintf("2026-10-%02dT12:00:00Z", 1+i%28),
			Buy:       i%2 == 0,
		})
	}
	for i := 0; i < 320; i++ {
		history = append(history, models.Transaction{
			ListingID: 5000 + i,
			ItemID:    products[i%len(products)].Listing.ItemID,
			Price:     90 + i,
			Quantity:  1,
			Created:   fmt.Sprintf("2026-09-%02dT08:00:00Z", 1+i%28),
			Purchased: fmt.Sprintf("2026-09-%02dT09:00:00Z", 1+i%28),
			Buy:       i%2 == 0,
		})
	}

	return Data{
		Products: products,
		Current:  current,
		History:  history,
		Names:    names,
		Stats: host.Stats{
			SessionID: "5E8C1A2B-0000-4000-8000-00000000C0DE",
			BuildID:   170342,
			Language:  "en",
			GameCode:  "gw2",
			Character: models.Character{Name: "Ferro Ironhide", Profession: "Warrior", Level: 80},
			Inventory: []models.InventorySlot{
				{Slot: 0, ItemID: 19684, TypeID: 5, Rarity: "Basic", Count: 250, Sellable: true},
				{Slot: 1, ItemID: 19721, TypeID: 5, Rarity: "Exotic", Count: 12, Sellable: true},
				{Slot: 2, ItemID: 10004, TypeID: 1, Rarity: "Rare", Level: 62, Count: 1, Sellable: true},
				{Slot: 3, ItemID: 20001, TypeID: 2, Rarity: "Ascended", Level: 80, Count: 1, Bound: true},
				{Slot: 20, ItemID: 24, TypeID: 5, Rarity: "Fine", Count: 40, Sellable: true},
			},
			Bags: []models.Bag{
				{Index: 0, ItemID: 9574, FirstSlot: 0, Size: 20},
				{Index: 1, ItemID: 9574, FirstSlot: 20, Size: 20},
			},
		},
	}
}

func product(id int, name, category, typ, weight, rarity string, level, buy, sell, qty int) Product {
	return Product{
		Listing: models.Listing{
			ItemID:      id,
			TypeID:      id / 10000,
			Rarity:      rarity,
			Level:       level,
			BuyPrice:    buy,
			SellPrice:   sell,
			Quantity:    qty,
			Whitelisted: qty > 0,
		},
		Name:     name,
		Category: category,
		Type:     typ,
		Weight:   weight,
	}
}

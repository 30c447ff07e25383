package market

import (
	"context"

	"tradepost/internal/models"
)

// merge fills in names and favorite flags. Name lookup failures leave names
// blank; the rows are still shown.
func (s *syncer) merge(ctx context.Context, items []models.Item) []models.Item {
	if len(items) == 0 {
		return items
	}

	if s.Names != nil {
		ids := make([]int, len(items))
		for i, it := range items {
			ids[i] = it.ID
		}
		names, err := s.Names.Resolve(ctx, ids)
		if err != nil {
			s.Log.Warn("Item names unavailable", "section", s.name, "error", err)
		}
		for i := range items {
			if n, ok := names[items[i].ID]; ok {
				items[i].Name = n.Name
				items[i].UnlockType = n.UnlockType
				items[i].UnlockDataID = n.UnlockDataID
			}
		}
	}

	if s.Favorites != nil {
		for i := range items {
			items[i].Favorite = s.Favorites.Contains(items[i].ID)
		}
	}
	return items
}

func listingItem(l models.Listing) models.Item {
	return models.Item{
		ID:          l.ItemID,
		TypeID:      l.TypeID,
		Rarity:      l.Rarity,
		Level:       l.Level,
		BuyPrice:    l.BuyPrice,
		SellPrice:   l.SellPrice,
		Quantity:    l.Quantity,
		Whitelisted: l.Whitelisted,
		Location:    models.LocationMarket,
	}
}

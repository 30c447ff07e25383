package market

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"tradepost/internal/facet"
	"tradepost/internal/host"
	"tradepost/internal/models"
	"tradepost/internal/section"
)

// Sell lists sellable inventory. Its source is the host's inventory
// snapshot; it never calls the backend.
type Sell struct {
	*syncer
	unsubscribe func()
}

func NewSell(d Deps) *Sell {
	s := &Sell{}
	s.syncer = newSyncer(section.Sell, d, s.fetch)
	s.unsubscribe = d.Stats.Subscribe(func(_ host.Stats, c host.Change) {
		switch c.Type {
		case host.EventInventory, host.EventBags, host.EventStats:
			s.Refresh(RefreshOptions{Immediate: true})
		}
	})
	return s
}

func (s *Sell) Close() {
	s.unsubscribe()
	s.syncer.Close()
}

type sellRow struct {
	item models.Item
	slot int
}

func (s *Sell) fetch(ctx context.Context, snap section.Section, _ bool) (func(*section.Section), error) {
	stats := s.Stats.Current()
	fs := snap.Params.Facets

	var rows []sellRow
	for _, slot := range stats.Inventory {
		if !slot.Sellable || slot.Bound {
			continue
		}
		if !matchSlot(fs, slot) {
			continue
		}
		rows = append(rows, sellRow{
			slot: slot.Slot,
			item: models.Item{
				ID:       slot.ItemID,
				TypeID:   slot.TypeID,
				Rarity:   slot.Rarity,
				Level:    slot.Level,
				Quantity: slot.Count,
				Location: models.LocationInventory,
			},
		})
	}

	items := make([]models.Item, len(rows))
	for i, r := range rows {
		items[i] = r.item
	}
	items = s.merge(ctx, items)

	text := strings.ToLower(strings.TrimSpace(snap.Params.Text))
	out := items[:0]
	for _, it := range items {
		if text == "" || strings.Contains(strings.ToLower(it.Name), text) {
			out = append(out, it)
		}
	}
	sortItems(out, snap.SortField, snap.SortDesc)

	return func(sec *section.Section) {
		sec.Results = out
		sec.Offset = 0
		sec.Total = len(out)
		sec.More = false
	}, nil
}

// matchSlot applies the level, rarity and slot-range facets.
func matchSlot(fs facet.Values, slot models.InventorySlot) bool {
	for name, v := range fs {
		switch fv := v.(type) {
		case facet.Range:
			switch name {
			case facet.Level:
				if !fv.Contains(slot.Level) {
					return false
				}
			case facet.Slot:
				if !fv.Contains(slot.Slot) {
					return false
				}
			}
		case facet.Enum:
			if name == facet.Rarity && !fv.Has(slot.Rarity) {
				return false
			}
		case facet.Bool:
		}
	}
	return true
}

func sortItems(items []models.Item, field string, desc bool) {
	slices.SortStableFunc(items, func(a, b models.Item) int {
		var c int
		switch field {
		case "level":
			c = cmp.Compare(a.Level, b.Level)
		case "quantity":
			c = cmp.Compare(a.Quantity, b.Quantity)
		case "rarity":
			c = cmp.Compare(a.Rarity, b.Rarity)
		default:
			c = cmp.Compare(a.Name, b.Name)
		}
		if desc {
			return -c
		}
		return c
	})
}

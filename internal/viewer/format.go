package viewer

import (
	"fmt"
	"strings"

	"tradepost/internal/models"
	"tradepost/internal/section"
)

// FormatCoins renders a copper amount as gold, silver and copper.
func FormatCoins(copper int) string {
	if copper <= 0 {
		return "0c"
	}
	g, s, c := copper/10000, copper/100%100, copper%100

	var parts []string
	if g > 0 {
		parts = append(parts, fmt.Sprintf("%dg", g))
	}
	if s > 0 || g > 0 {
		parts = append(parts, fmt.Sprintf("%ds", s))
	}
	parts = append(parts, fmt.Sprintf("%dc", c))
	return strings.Join(parts, " ")
}

func locationLabel(loc int) string {
	switch loc {
	case models.LocationInventory:
		return "bag"
	case models.LocationHistory:
		return "done"
	default:
		return "open"
	}
}

// RowText is the list line for it in the given section.
func RowText(name section.Name, it models.Item) string {
	label := it.Name
	if label == "" {
		label = fmt.Sprintf("#%d", it.ID)
	}

	switch name {
	case section.Sell:
		return fmt.Sprintf("%s x%d (%s)", label, it.Quantity, it.Rarity)
	case section.Transactions:
		price := it.BuyPrice
		side := "buy"
		if price == 0 {
			price = it.SellPrice
			side = "sell"
		}
		return fmt.Sprintf("[%s] %s %s x%d @ %s", locationLabel(it.Location), side, label, it.Quantity, FormatCoins(price))
	default:
		return fmt.Sprintf("%s  %s / %s", label, FormatCoins(it.BuyPrice), FormatCoins(it.SellPrice))
	}
}

// StatusText summarizes a section's paging state.
func StatusText(sec section.Section) string {
	switch {
	case sec.Syncing && !sec.Synced:
		return "Loading..."
	case len(sec.Results) == 0:
		return "No results"
	case sec.More:
		return fmt.Sprintf("%d of %d, more available", len(sec.Results), sec.Total)
	default:
		return fmt.Sprintf("%d of %d", len(sec.Results), sec.Total)
	}
}

func sectionTitle(name section.Name) string {
	s := string(name)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

package market

import (
	"context"
	"fmt"

	"tradepost/internal/backend"
	"tradepost/internal/models"
	"tradepost/internal/query"
	"tradepost/internal/section"
)

// Browse searches the trading post catalog.
type Browse struct {
	*syncer
}

func NewBrowse(d Deps) *Browse {
	b := &Browse{}
	b.syncer = newSyncer(section.Browse, d, b.fetch)
	return b
}

func (b *Browse) fetch(ctx context.Context, snap section.Section, loadMore bool) (func(*section.Section), error) {
	offset := 0
	if loadMore {
		offset = snap.Offset + b.PageSize
	}

	in := query.Input{
		Category:    snap.Params.Category,
		Subcategory: snap.Params.Subcategory,
		Facets:      snap.Params.Facets,
		Text:        snap.Params.Text,
		SortField:   snap.SortField,
		SortDesc:    snap.SortDesc,
		Offset:      offset,
		Count:       b.PageSize,
	}
	if b.Stats != nil {
		in.HostProfession = b.Stats.Current().Character.Profession
	}
	if b.Favorites != nil {
		in.Favorites = b.Favorites.IDs()
	}

	var resp backend.SearchResponse
	if err := b.Backend.SendInto(ctx, backend.CmdSearch, query.Translate(in), &resp); err != nil {
		return nil, err
	}

	items := make([]models.Item, len(resp.Items))
	for i, l := range resp.Items {
		items[i] = listingItem(l)
	}
	items = b.merge(ctx, items)

	return page(items, resp.Total, resp.More, loadMore, b.PageSize), nil
}

// FavoritesFull reports whether no more favorites can be added.
func (b *Browse) FavoritesFull() bool {
	return b.Favorites != nil && b.Favorites.Full()
}

// ToggleFavorite adds or removes it from the favorites set and updates the
// flag on any matching result row.
func (b *Browse) ToggleFavorite(ctx context.Context, it models.Item) (bool, error) {
	if b.Favorites == nil {
		return false, fmt.Errorf("favorites are not available")
	}

	want := !b.Favorites.Contains(it.ID)
	var err error
	if want {
		err = b.Favorites.Add(ctx, it.ID, favoriteDescriptor(it))
	} else {
		err = b.Favorites.Remove(ctx, it.ID)
	}
	if err != nil {
		return !want, fmt.Errorf("failed to update favorite %d: %w", it.ID, err)
	}

	b.Store.Edit(b.name, func(sec *section.Section) {
		for i := range sec.Results {
			if sec.Results[i].ID == it.ID {
				sec.Results[i].Favorite = want
			}
		}
	})
	b.Log.Info("Favorite updated", "item_id", it.ID, "favorite", want)
	return want, nil
}

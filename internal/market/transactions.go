package market

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"tradepost/internal/backend"
	"tradepost/internal/models"
	"tradepost/internal/section"
)

// Transactions categories.
const (
	CategoryBuys  = "buys"
	CategorySells = "sells"
)

// Transactions pages through the account's open and past orders. Each sync
// queries both endpoints.
type Transactions struct {
	*syncer
}

func NewTransactions(d Deps) *Transactions {
	t := &Transactions{}
	t.syncer = newSyncer(section.Transactions, d, t.fetch)
	return t
}

func (t *Transactions) fetch(ctx context.Context, snap section.Section, loadMore bool) (func(*section.Section), error) {
	req := backend.ListingsRequest{
		Buy:   snap.Params.Category != CategorySells,
		Count: t.PageSize,
	}
	if loadMore {
		req.Offset = snap.Offset + t.PageSize
	}

	// A plain Group has no shared context, so one endpoint failing never
	// cancels the other and its rows are still shown. Each endpoint keeps
	// its own error because Wait only returns the first.
	var current, history backend.ListingsResponse
	var currentErr, historyErr error
	var g errgroup.Group
	g.Go(func() error {
		if err := t.Backend.SendInto(ctx, backend.CmdCurrentListings, req, &current); err != nil {
			currentErr = fmt.Errorf("current listings: %w", err)
		}
		return currentErr
	})
	g.Go(func() error {
		if err := t.Backend.SendInto(ctx, backend.CmdListingHistory, req, &history); err != nil {
			historyErr = fmt.Errorf("listing history: %w", err)
		}
		return historyErr
	})
	if err := g.Wait(); err != nil && currentErr != nil && historyErr != nil {
		return nil, errors.Join(currentErr, historyErr)
	}

	items := make([]models.Item, 0, len(current.Listings)+len(history.Listings))
	for _, tx := range current.Listings {
		items = append(items, transactionItem(tx, models.LocationMarket))
	}
	for _, tx := range history.Listings {
		items = append(items, transactionItem(tx, models.LocationHistory))
	}
	items = t.merge(ctx, items)

	apply := page(items, current.Total+history.Total, current.More || history.More, loadMore, t.PageSize)
	return apply, errors.Join(currentErr, historyErr)
}

func transactionItem(tx models.Transaction, location int) models.Item {
	it := models.Item{
		ID:       tx.ItemID,
		Quantity: tx.Quantity,
		Location: location,
	}
	if tx.Buy {
		it.BuyPrice = tx.Price
	} else {
		it.SellPrice = tx.Price
	}
	return it
}

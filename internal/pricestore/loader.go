package pricestore

import (
	"context"
	"fmt"

	"github.com/stitts-dev/gearopt/internal/gearerr"
	"github.com/stitts-dev/gearopt/internal/gearlog"
	"github.com/stitts-dev/gearopt/internal/priceclient"
)

// Fetcher is the read side of priceclient.Client the loader depends on.
type Fetcher interface {
	Fetch(ctx context.Context) (map[int64]priceclient.RawQuote, error)
}

// FetchResult reports the outcome of a load attempt.
type FetchResult struct {
	Success   bool
	Error     string
	ItemCount int
}

// Loader drives FetchAndLoad/Refresh against a Store using use-mid-price
// semantics by default.
type Loader struct {
	store       *Store
	fetcher     Fetcher
	useMidPrice bool
}

// NewLoader returns a Loader that loads into store via fetcher.
func NewLoader(store *Store, fetcher Fetcher) *Loader {
	return &Loader{store: store, fetcher: fetcher, useMidPrice: true}
}

// FetchAndLoad fetches the current feed and loads it into the store. The
// store is cleared first so a failed fetch never leaves a stale partial
// price set: on failure the store stays cleared and FetchResult.Success is
// false, but the engine continues to operate with every price unknown.
func (l *Loader) FetchAndLoad(ctx context.Context) FetchResult {
	l.store.Clear()

	raw, err := l.fetcher.Fetch(ctx)
	if err != nil {
		gearlog.WithService("pricestore").WithError(fmt.Errorf("%w: %v", gearerr.ErrPriceFetchFailed, err)).Warn("price fetch failed")
		return FetchResult{Success: false, Error: err.Error(), ItemCount: 0}
	}

	quotes := make(map[int64]PriceQuote, len(raw))
	for id, q := range raw {
		quotes[id] = l.reduce(q)
	}
	l.store.Load(quotes)

	return FetchResult{Success: true, ItemCount: len(quotes)}
}

// Refresh is an alias for FetchAndLoad used by the scheduler's periodic
// tick; kept as a distinct name because the two call sites express
// different intents (initial load vs. recurring refresh).
func (l *Loader) Refresh(ctx context.Context) FetchResult {
	return l.FetchAndLoad(ctx)
}

// reduce applies the mid-price rule to one raw quote: average high/low when
// both are present and useMidPrice is set, fall back to whichever side is
// present, or mark the item known-but-priceless when neither is.
func (l *Loader) reduce(q priceclient.RawQuote) PriceQuote {
	switch {
	case l.useMidPrice && q.High != nil && q.Low != nil:
		mid := (*q.High + *q.Low) / 2
		return PriceQuote{Price: &mid, Tradeable: true}
	case q.High != nil:
		return PriceQuote{Price: q.High, Tradeable: true}
	case q.Low != nil:
		return PriceQuote{Price: q.Low, Tradeable: true}
	default:
		return PriceQuote{Price: nil, Tradeable: true}
	}
}

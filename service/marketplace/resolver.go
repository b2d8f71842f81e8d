package marketplace

import (
	"context"
	"fmt"

	"github.com/brojonat/blinkmart/service/actions"
	"github.com/shopspring/decimal"
)

// AssetFetcher is the part of Client the resolver needs.
type AssetFetcher interface {
	FetchAsset(ctx context.Context, id string) (*AssetRecord, error)
}

// Resolver turns marketplace records into actions.AssetState.
// It makes exactly one FetchAsset call per Resolve and keeps nothing between calls.
type Resolver struct {
	fetcher AssetFetcher
}

// NewResolver creates a Resolver backed by fetcher.
func NewResolver(fetcher AssetFetcher) *Resolver {
	return &Resolver{fetcher: fetcher}
}

// Resolve implements actions.Resolver.
func (r *Resolver) Resolve(ctx context.Context, id actions.AssetID) (actions.AssetState, bool, error) {
	record, err := r.fetcher.FetchAsset(ctx, string(id))
	if err != nil {
		return actions.AssetState{}, false, fmt.Errorf("fetch asset %s: %w", id, err)
	}
	if record == nil {
		return actions.AssetState{}, false, nil
	}

	state := actions.AssetState{
		Mint:        record.Mint,
		Name:        record.Name,
		Description: record.Description,
		ImageURI:    record.ImageURI,
	}

	if record.Price != nil && *record.Price != "" {
		price, err := parseLamports(*record.Price)
		if err != nil {
			return actions.AssetState{}, false, fmt.Errorf("asset %s: %w", id, err)
		}
		state.PriceLamports = &price
	}

	return state, true, nil
}

// parseLamports parses a string-encoded non-negative integer lamport amount.
func parseLamports(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", s, err)
	}
	if d.IsNegative() || !d.IsInteger() {
		return 0, fmt.Errorf("invalid price %q: must be a non-negative integer amount of lamports", s)
	}
	if !d.BigInt().IsUint64() {
		return 0, fmt.Errorf("invalid price %q: out of range", s)
	}
	return d.BigInt().Uint64(), nil
}

package marketplace

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	record *AssetRecord
	err    error
	ids    []string
}

func (f *fakeFetcher) FetchAsset(ctx context.Context, id string) (*AssetRecord, error) {
	f.ids = append(f.ids, id)
	return f.record, f.err
}

func strPtr(s string) *string {
	return &s
}

func TestResolve(t *testing.T) {
	fetcher := &fakeFetcher{record: &AssetRecord{
		Mint:        "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		Name:        "Mad Lad #1",
		Description: "desc",
		ImageURI:    "icon",
		Price:       strPtr("1500000000"),
	}}

	state, found, err := NewResolver(fetcher).Resolve(context.Background(), "ABC123")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"ABC123"}, fetcher.ids)
	assert.Equal(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", state.Mint)
	assert.Equal(t, "icon", state.ImageURI)
	require.NotNil(t, state.PriceLamports)
	assert.Equal(t, uint64(1_500_000_000), *state.PriceLamports)
}

func TestResolve_Unlisted(t *testing.T) {
	for _, price := range []*string{nil, strPtr("")} {
		fetcher := &fakeFetcher{record: &AssetRecord{Mint: "M", Price: price}}
		state, found, err := NewResolver(fetcher).Resolve(context.Background(), "X")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Nil(t, state.PriceLamports)
		assert.False(t, state.Listed())
	}
}

func TestResolve_Absent(t *testing.T) {
	_, found, err := NewResolver(&fakeFetcher{}).Resolve(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestResolve_FetchError(t *testing.T) {
	_, found, err := NewResolver(&fakeFetcher{err: errors.New("boom")}).Resolve(context.Background(), "X")
	require.Error(t, err)
	assert.False(t, found)
}

func TestParseLamports(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{in: "1500000000", want: 1_500_000_000},
		{in: "0", want: 0},
		{in: "18446744073709551615", want: 18446744073709551615},
		{in: "18446744073709551616", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "1.5", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseLamports(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

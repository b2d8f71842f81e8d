package marketplace

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brojonat/blinkmart/service/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAPI(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "secret-key", srv.Client(), metrics.NewMetrics(prometheus.NewRegistry()), newTestLogger())
}

func TestFetchAsset(t *testing.T) {
	var gotPath, gotMint, gotKey string
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMint = r.URL.Query().Get("mint")
		gotKey = r.Header.Get("x-api-key")
		json.NewEncoder(w).Encode(map[string]any{
			"mint":        "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
			"name":        "Mad Lad #1",
			"description": "desc",
			"imageUri":    "https://img.example.com/1.png",
			"price":       "1500000000",
		})
	})

	record, err := api.FetchAsset(context.Background(), "ABC123")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "/api/v1/mint", gotPath)
	assert.Equal(t, "ABC123", gotMint)
	assert.Equal(t, "secret-key", gotKey)
	assert.Equal(t, "Mad Lad #1", record.Name)
	assert.Equal(t, "https://img.example.com/1.png", record.ImageURI)
	require.NotNil(t, record.Price)
	assert.Equal(t, "1500000000", *record.Price)
}

func TestFetchAsset_Absent(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "404",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "no such mint", http.StatusNotFound)
			},
		},
		{
			name: "null body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("null"))
			},
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
		},
		{
			name: "record without mint",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"name":"ghost"}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := newTestAPI(t, tt.handler).FetchAsset(context.Background(), "NOPE")
			require.NoError(t, err)
			assert.Nil(t, record)
		})
	}
}

func TestFetchAsset_UpstreamErrorIsNotAbsence(t *testing.T) {
	calls := 0
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	record, err := api.FetchAsset(context.Background(), "ABC123")
	require.Error(t, err)
	assert.Nil(t, record)
	assert.Equal(t, 1, calls, "no retries")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestFetchAsset_MalformedJSON(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"mint":`))
	})

	_, err := api.FetchAsset(context.Background(), "ABC123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestBuyTransaction(t *testing.T) {
	var query map[string]string
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tx/buy", r.URL.Path)
		query = map[string]string{
			"mint":      r.URL.Query().Get("mint"),
			"buyer":     r.URL.Query().Get("buyer"),
			"blockhash": r.URL.Query().Get("blockhash"),
		}
		w.Write([]byte(`{"tx":"AQID"}`))
	})

	tx, err := api.BuyTransaction(context.Background(), BuyParams{Mint: "M", Buyer: "B", Blockhash: "H"})
	require.NoError(t, err)
	assert.Equal(t, "AQID", tx)
	assert.Equal(t, map[string]string{"mint": "M", "buyer": "B", "blockhash": "H"}, query)
}

func TestOfferTransaction(t *testing.T) {
	var price, owner string
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tx/bid", r.URL.Path)
		price = r.URL.Query().Get("price")
		owner = r.URL.Query().Get("owner")
		w.Write([]byte(`{"tx":""}`))
	})

	tx, err := api.OfferTransaction(context.Background(), OfferParams{Mint: "M", Owner: "W1", Lamports: 2_000_000_000, Blockhash: "H"})
	require.NoError(t, err)
	assert.Empty(t, tx)
	assert.Equal(t, "2000000000", price)
	assert.Equal(t, "W1", owner)
}

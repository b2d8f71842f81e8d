package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("BLINKMART_SERVER_URL", "")
	t.Setenv("BLINKMART_ACCOUNT", "")

	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf
	app.ErrWriter = &buf
	err := app.Run(append([]string{"blinkmart"}, args...))
	return buf.String(), err
}

func descriptorServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/item/ABC123", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"icon": "https://img.example.com/abc.png",
			"label": "1.5 SOL",
			"title": "Mad Lad #8420",
			"description": "",
			"actions": {"buy": {"label": "BUY", "price": "1.5 SOL"}, "makeOffer": {"label": "Make an Offer"}}
		}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestApplyJQ(t *testing.T) {
	input := map[string]interface{}{
		"label":   "1.5 SOL",
		"actions": map[string]interface{}{"buy": nil, "makeOffer": map[string]interface{}{"label": "Make an Offer"}},
	}

	tests := []struct {
		name    string
		filter  string
		want    []interface{}
		wantErr bool
	}{
		{name: "field", filter: ".label", want: []interface{}{"1.5 SOL"}},
		{name: "nested", filter: ".actions.makeOffer.label", want: []interface{}{"Make an Offer"}},
		{name: "predicate", filter: ".actions.buy == null", want: []interface{}{true}},
		{name: "multiple outputs", filter: ".actions | keys[]", want: []interface{}{"buy", "makeOffer"}},
		{name: "parse error", filter: ".label |", wantErr: true},
		{name: "runtime error", filter: ".label | error", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := applyJQ(tt.filter, input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestItemGetCommand(t *testing.T) {
	server := descriptorServer(t)

	out, err := runApp(t, "--server-url", server.URL, "item", "get", "ABC123")
	require.NoError(t, err)
	assert.Contains(t, out, "Mad Lad #8420")
	assert.Contains(t, out, "[BUY] 1.5 SOL")
	assert.Contains(t, out, "[Make an Offer]")
}

func TestItemGetCommand_JQ(t *testing.T) {
	server := descriptorServer(t)

	out, err := runApp(t, "--server-url", server.URL, "item", "get", "--jq", ".actions.buy.price", "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "\"1.5 SOL\"\n", out)
}

func TestItemGetCommand_MissingID(t *testing.T) {
	_, err := runApp(t, "item", "get")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ITEM_ID is required")
}

func TestItemBuyCommand_Inspect(t *testing.T) {
	payer := solanago.NewWallet().PublicKey()
	recipient := solanago.NewWallet().PublicKey()
	blockhash := solanago.Hash(solanago.NewWallet().PublicKey())

	tx, err := solanago.NewTransaction(
		[]solanago.Instruction{system.NewTransferInstruction(1_500_000_000, payer, recipient).Build()},
		blockhash,
		solanago.TransactionPayer(payer),
	)
	require.NoError(t, err)
	data, err := tx.MarshalBinary()
	require.NoError(t, err)
	encoded := base64.StdEncoding.EncodeToString(data)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/item/ABC123/buy", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, payer.String(), body["account"])
		json.NewEncoder(w).Encode(map[string]string{"transaction": encoded})
	}))
	defer server.Close()

	out, err := runApp(t, "--server-url", server.URL, "--json", "item", "buy", "--account", payer.String(), "--inspect", "ABC123")
	require.NoError(t, err)

	var got transactionOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, encoded, got.Transaction)
	require.NotNil(t, got.Summary)
	assert.Equal(t, payer.String(), got.Summary.FeePayer)
	assert.Equal(t, uint64(1_500_000_000), got.Summary.LamportsOut)
}

func TestItemOfferCommand_RejectsBadInputBeforeRequest(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	account := solanago.NewWallet().PublicKey().String()

	_, err := runApp(t, "--server-url", server.URL, "item", "offer", "--account", "not-an-address", "--amount", "1", "ABC123")
	assert.Error(t, err)

	_, err = runApp(t, "--server-url", server.URL, "item", "offer", "--account", account, "--amount", "-1", "ABC123")
	assert.Error(t, err)

	assert.False(t, called)
}

func TestItemOfferCommand_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"message": "item NOPE not found"})
	}))
	defer server.Close()

	account := solanago.NewWallet().PublicKey().String()
	_, err := runApp(t, "--server-url", server.URL, "item", "offer", "--account", account, "--amount", "2", "NOPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item NOPE not found")
}

func TestServerCommands(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	}))
	defer server.Close()

	out, err := runApp(t, "--server-url", server.URL, "server", "health")
	require.NoError(t, err)
	assert.Contains(t, out, "Server is healthy")

	out, err = runApp(t, "server", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version: dev")
}

func TestEventsList_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := runApp(t, "events", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database-url is required")
}

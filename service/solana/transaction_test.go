package solana

import (
	"encoding/base64"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBlockhash = solana.Hash(solana.NewWallet().PublicKey())

// buildUnsignedTransfer returns a base64 wire transaction paying lamports from payer to recipient.
func buildUnsignedTransfer(t *testing.T, payer, recipient solana.PublicKey, lamports uint64) string {
	t.Helper()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(lamports, payer, recipient).Build(),
		},
		testBlockhash,
		solana.TransactionPayer(payer),
	)
	require.NoError(t, err)

	data, err := tx.MarshalBinary()
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(data)
}

func TestDecodeUnsignedTransaction(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	recipient := solana.NewWallet().PublicKey()
	b64 := buildUnsignedTransfer(t, payer, recipient, 1_500_000_000)

	t.Run("valid transaction for payer", func(t *testing.T) {
		tx, err := DecodeUnsignedTransaction(b64, payer)
		require.NoError(t, err)
		assert.True(t, tx.Message.AccountKeys[0].Equals(payer))
	})

	t.Run("wrong fee payer", func(t *testing.T) {
		_, err := DecodeUnsignedTransaction(b64, recipient)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "fee payer")
	})

	t.Run("not base64", func(t *testing.T) {
		_, err := DecodeUnsignedTransaction("%%%", payer)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "base64")
	})

	t.Run("not a transaction", func(t *testing.T) {
		_, err := DecodeUnsignedTransaction(base64.StdEncoding.EncodeToString([]byte{0x01}), payer)
		require.Error(t, err)
	})
}

func TestSummarize(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	recipient := solana.NewWallet().PublicKey()

	tx, err := DecodeUnsignedTransaction(buildUnsignedTransfer(t, payer, recipient, 2_000_000_000), payer)
	require.NoError(t, err)

	s := Summarize(tx)
	assert.Equal(t, payer.String(), s.FeePayer)
	assert.Equal(t, testBlockhash.String(), s.RecentBlockhash)
	assert.Equal(t, 1, s.Instructions)
	assert.Equal(t, []string{SystemProgramID.String()}, s.Programs)
	assert.Equal(t, uint64(2_000_000_000), s.LamportsOut)
	assert.Empty(t, s.Memo)
}

func TestParseAddress(t *testing.T) {
	_, err := ParseAddress("")
	assert.Error(t, err)

	_, err = ParseAddress("not-base58-0OIl")
	assert.Error(t, err)

	pk, err := ParseAddress("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	require.NoError(t, err)
	assert.Equal(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", pk.String())
}

func TestParseMemo(t *testing.T) {
	assert.Equal(t, "gm", parseMemo([]byte("gm")))
	assert.Empty(t, parseMemo([]byte{0xff, 0xfe}))
}

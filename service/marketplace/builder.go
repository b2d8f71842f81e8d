package marketplace

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brojonat/blinkmart/service/actions"
	"github.com/brojonat/blinkmart/service/solana"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// TransactionAPI is the part of Client the builder needs.
type TransactionAPI interface {
	BuyTransaction(ctx context.Context, params BuyParams) (string, error)
	OfferTransaction(ctx context.Context, params OfferParams) (string, error)
}

// BlockhashSource provides a recent blockhash for new transactions.
type BlockhashSource interface {
	LatestBlockhash(ctx context.Context) (solanago.Hash, error)
}

// TransactionBuilder implements actions.TransactionBuilder on top of the
// marketplace transaction endpoints.
type TransactionBuilder struct {
	api    TransactionAPI
	chain  BlockhashSource
	logger *slog.Logger
}

// NewTransactionBuilder creates a TransactionBuilder.
func NewTransactionBuilder(api TransactionAPI, chain BlockhashSource, logger *slog.Logger) *TransactionBuilder {
	return &TransactionBuilder{
		api:    api,
		chain:  chain,
		logger: logger,
	}
}

// BuildBuyTransaction returns an unsigned buy-now transaction for account.
func (b *TransactionBuilder) BuildBuyTransaction(ctx context.Context, mint, account string) (actions.UnsignedTransaction, error) {
	payer, err := solana.ParseAddress(account)
	if err != nil {
		return "", err
	}

	blockhash, err := b.chain.LatestBlockhash(ctx)
	if err != nil {
		return "", err
	}

	tx, err := b.api.BuyTransaction(ctx, BuyParams{
		Mint:      mint,
		Buyer:     payer.String(),
		Blockhash: blockhash.String(),
	})
	if err != nil {
		return "", err
	}

	return b.checked(ctx, "buy", mint, tx, payer)
}

// BuildOfferTransaction returns an unsigned bid transaction for account.
// amount is in SOL and is converted to lamports here.
func (b *TransactionBuilder) BuildOfferTransaction(ctx context.Context, mint, account string, amount float64) (actions.UnsignedTransaction, error) {
	payer, err := solana.ParseAddress(account)
	if err != nil {
		return "", err
	}

	lamports := actions.SOLToLamports(decimal.NewFromFloat(amount))
	if lamports == 0 {
		return "", fmt.Errorf("offer amount %v SOL is below one lamport", amount)
	}

	blockhash, err := b.chain.LatestBlockhash(ctx)
	if err != nil {
		return "", err
	}

	tx, err := b.api.OfferTransaction(ctx, OfferParams{
		Mint:      mint,
		Owner:     payer.String(),
		Lamports:  lamports,
		Blockhash: blockhash.String(),
	})
	if err != nil {
		return "", err
	}

	return b.checked(ctx, "offer", mint, tx, payer)
}

// checked makes sure a non-empty payload is a transaction the payer can sign.
// An empty payload is passed through as "no transaction".
func (b *TransactionBuilder) checked(ctx context.Context, kind, mint, tx string, payer solanago.PublicKey) (actions.UnsignedTransaction, error) {
	if tx == "" {
		b.logger.WarnContext(ctx, "marketplace returned no transaction", "kind", kind, "mint", mint)
		return "", nil
	}

	if _, err := solana.DecodeUnsignedTransaction(tx, payer); err != nil {
		return "", fmt.Errorf("marketplace returned an unusable %s transaction: %w", kind, err)
	}

	return actions.UnsignedTransaction(tx), nil
}

package actions

import (
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

const (
	// CurrencySymbol is appended to every displayed price.
	CurrencySymbol = "SOL"

	// PricePrecision is the number of decimal places kept in displayed prices.
	PricePrecision = 4

	buyLabel       = "BUY"
	makeOfferLabel = "Make an Offer"
)

// BuildDescriptor maps an item's state to its action descriptor.
// It performs no I/O and cannot fail.
func BuildDescriptor(state AssetState) Descriptor {
	d := Descriptor{
		Icon:        state.ImageURI,
		Title:       state.Name,
		Description: state.Description,
		Label:       makeOfferLabel,
		Actions: ActionMenu{
			MakeOffer: MakeOfferAction{Label: makeOfferLabel},
		},
	}

	if state.PriceLamports != nil {
		price := FormatPrice(*state.PriceLamports)
		d.Label = price
		d.Actions.Buy = &BuyAction{Label: buyLabel, Price: price}
	}

	return d
}

// FormatPrice renders a lamport amount as a SOL price label, e.g. 1500000000 -> "1.5 SOL".
func FormatPrice(lamports uint64) string {
	return FormatLamports(lamports) + " " + CurrencySymbol
}

// FormatLamports converts lamports to SOL rounded to PricePrecision places,
// with trailing zeros removed.
func FormatLamports(lamports uint64) string {
	return LamportsToSOL(lamports).Round(PricePrecision).String()
}

// LamportsToSOL converts base units to the display currency.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimalFromUint64(lamports).Div(decimalFromUint64(solana.LAMPORTS_PER_SOL))
}

// SOLToLamports converts a display amount to base units, truncating sub-lamport digits.
func SOLToLamports(amount decimal.Decimal) uint64 {
	return amount.Mul(decimalFromUint64(solana.LAMPORTS_PER_SOL)).Truncate(0).BigInt().Uint64()
}

func decimalFromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

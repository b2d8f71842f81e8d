package actions

import (
	"context"
	"time"
)

// AssetID is the marketplace identifier of a tradable item. It is opaque to this service.
type AssetID string

// AssetState is a snapshot of an item's marketplace state at request time.
// It is built fresh for every request and never shared between requests.
type AssetState struct {
	Mint          string
	Name          string
	Description   string
	ImageURI      string
	PriceLamports *uint64 // nil when the item is not listed at a fixed price
}

// Listed reports whether the item can be bought at a fixed price.
func (s AssetState) Listed() bool {
	return s.PriceLamports != nil
}

// Descriptor is the action protocol response for an item.
type Descriptor struct {
	Icon        string     `json:"icon"`
	Label       string     `json:"label"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Actions     ActionMenu `json:"actions"`
}

// ActionMenu lists the sub-actions available for an item.
type ActionMenu struct {
	Buy       *BuyAction      `json:"buy"`
	MakeOffer MakeOfferAction `json:"makeOffer"`
}

// BuyAction is present only when the item has a fixed price.
type BuyAction struct {
	Label string `json:"label"`
	Price string `json:"price"`
}

// MakeOfferAction is always present.
type MakeOfferAction struct {
	Label string `json:"label"`
}

// IntentKind names the client's requested action.
type IntentKind string

const (
	IntentBuy   IntentKind = "buy"
	IntentOffer IntentKind = "offer"
)

// Intent is a validated client request: Buy{Account} or Offer{Account, OfferAmount}.
// OfferAmount is denominated in SOL and only meaningful for IntentOffer.
type Intent struct {
	Kind        IntentKind
	Account     string
	OfferAmount float64
}

// Buy returns a buy intent for the given payer account.
func Buy(account string) Intent {
	return Intent{Kind: IntentBuy, Account: account}
}

// Offer returns an offer intent for the given payer account and amount.
func Offer(account string, amount float64) Intent {
	return Intent{Kind: IntentOffer, Account: account, OfferAmount: amount}
}

// UnsignedTransaction is a serialized, unsigned transaction produced by the
// transaction builder. It is forwarded to the client as-is.
type UnsignedTransaction string

// Resolver fetches the current marketplace state of an item.
// found is false when the marketplace does not know the item; err is reserved
// for failures talking to the marketplace.
type Resolver interface {
	Resolve(ctx context.Context, id AssetID) (state AssetState, found bool, err error)
}

// TransactionBuilder constructs unsigned marketplace transactions.
// An empty result means the builder produced no transaction.
type TransactionBuilder interface {
	BuildBuyTransaction(ctx context.Context, mint, account string) (UnsignedTransaction, error)
	BuildOfferTransaction(ctx context.Context, mint, account string, amount float64) (UnsignedTransaction, error)
}

// Outcome of a prepare call, recorded in Event.
const (
	OutcomePrepared = "prepared"
	OutcomeFailed   = "failed"
)

// Event describes one prepare call for audit and streaming consumers.
type Event struct {
	ID          string    `json:"id"`
	ItemID      string    `json:"item_id"`
	Mint        string    `json:"mint,omitempty"`
	Intent      string    `json:"intent"`
	Account     string    `json:"account"`
	OfferAmount *float64  `json:"offer_amount,omitempty"`
	Outcome     string    `json:"outcome"`
	FailureKind string    `json:"failure_kind,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Recorder receives an Event after every prepare call. Recorders are
// write-only sinks called outside the request path, with a context that
// outlives the request but carries its own deadline.
type Recorder interface {
	RecordAction(ctx context.Context, event *Event) error
}

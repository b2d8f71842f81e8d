package actions

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/brojonat/blinkmart/service/metrics"
	"github.com/google/uuid"
)

const describeFailureMessage = "failed to load item"

// recordTimeout bounds how long one event may spend in the recorders.
const recordTimeout = 5 * time.Second

// Orchestrator serves the read path (descriptor) and the write path
// (unsigned transaction) of the action protocol.
//
// Every call resolves the item again. Nothing is cached between calls, so the
// transaction is always built against the marketplace state current at the
// time of the POST, not the state the client saw on GET.
type Orchestrator struct {
	resolver  Resolver
	builder   TransactionBuilder
	recorders []Recorder
	metrics   *metrics.Metrics
	logger    *slog.Logger
	pending   sync.WaitGroup
}

// NewOrchestrator creates an Orchestrator. Metrics may be nil.
// Recorders receive one Event per Prepare call, off the request path.
func NewOrchestrator(resolver Resolver, builder TransactionBuilder, m *metrics.Metrics, logger *slog.Logger, recorders ...Recorder) *Orchestrator {
	return &Orchestrator{
		resolver:  resolver,
		builder:   builder,
		recorders: recorders,
		metrics:   m,
		logger:    logger,
	}
}

// Validate checks the intent's shape. It is the last line of defense behind
// the HTTP boundary's schema validation.
func (i Intent) Validate() *Failure {
	if strings.TrimSpace(i.Account) == "" {
		return SchemaInvalid("account is required")
	}
	switch i.Kind {
	case IntentBuy:
		return nil
	case IntentOffer:
		if math.IsNaN(i.OfferAmount) || math.IsInf(i.OfferAmount, 0) || i.OfferAmount <= 0 {
			return SchemaInvalid("offerAmount must be a positive number")
		}
		return nil
	default:
		return SchemaInvalid(fmt.Sprintf("unsupported intent %q", i.Kind))
	}
}

// Describe resolves the item and returns its action descriptor.
func (o *Orchestrator) Describe(ctx context.Context, id AssetID) (d Descriptor, failure *Failure) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic while describing item: %v", r)
			o.logger.ErrorContext(ctx, "failed to resolve item", "item_id", id, "error", err)
			d = Descriptor{}
			failure = &Failure{Kind: KindConstructionFailed, Message: describeFailureMessage, Cause: err}
		}
	}()

	state, found, err := o.resolver.Resolve(ctx, id)
	if err != nil {
		o.logger.ErrorContext(ctx, "failed to resolve item", "item_id", id, "error", err)
		return Descriptor{}, &Failure{Kind: KindConstructionFailed, Message: describeFailureMessage, Cause: err}
	}
	if !found {
		o.logger.DebugContext(ctx, "item not found", "item_id", id)
		return Descriptor{}, NotFound(id)
	}
	return BuildDescriptor(state), nil
}

// Prepare resolves the item, checks the intent's preconditions and asks the
// builder for an unsigned transaction.
//
// Client input problems come back as NotFound, NotListed or SchemaInvalid with
// a displayable message. Everything else, including a panicking builder,
// becomes ConstructionFailed with a generic message; the cause is logged.
func (o *Orchestrator) Prepare(ctx context.Context, id AssetID, intent Intent) (tx UnsignedTransaction, failure *Failure) {
	start := time.Now()
	var mint string

	defer func() {
		if r := recover(); r != nil {
			tx = ""
			failure = ConstructionFailed(fmt.Errorf("panic while preparing transaction: %v", r))
		}
		o.finish(ctx, id, mint, intent, failure, time.Since(start))
	}()

	if f := intent.Validate(); f != nil {
		return "", f
	}

	state, found, err := o.resolver.Resolve(ctx, id)
	if err != nil {
		return "", ConstructionFailed(fmt.Errorf("resolve item %s: %w", id, err))
	}
	if !found {
		return "", NotFound(id)
	}
	mint = state.Mint

	switch intent.Kind {
	case IntentBuy:
		if !state.Listed() {
			return "", NotListed(id)
		}
		tx, err = o.builder.BuildBuyTransaction(ctx, state.Mint, intent.Account)
	case IntentOffer:
		tx, err = o.builder.BuildOfferTransaction(ctx, state.Mint, intent.Account, intent.OfferAmount)
	}
	if err != nil {
		return "", ConstructionFailed(fmt.Errorf("build %s transaction for mint %s: %w", intent.Kind, state.Mint, err))
	}
	if tx == "" {
		return "", ConstructionFailed(fmt.Errorf("builder returned no %s transaction for mint %s", intent.Kind, state.Mint))
	}

	return tx, nil
}

// finish logs, records metrics and hands the outcome to the recorders.
func (o *Orchestrator) finish(ctx context.Context, id AssetID, mint string, intent Intent, failure *Failure, elapsed time.Duration) {
	outcome := OutcomePrepared
	kind := ""
	if failure != nil {
		outcome = OutcomeFailed
		kind = failure.Kind.String()
	}

	switch {
	case failure == nil:
		o.logger.InfoContext(ctx, "transaction prepared",
			"item_id", id,
			"mint", mint,
			"intent", intent.Kind,
			"account", intent.Account,
		)
	case failure.Kind.ClientError():
		o.logger.DebugContext(ctx, "prepare rejected",
			"item_id", id,
			"intent", intent.Kind,
			"kind", kind,
			"message", failure.Message,
		)
	default:
		o.logger.ErrorContext(ctx, "failed to prepare transaction",
			"item_id", id,
			"mint", mint,
			"intent", intent.Kind,
			"account", intent.Account,
			"error", failure.Cause,
		)
	}

	if o.metrics != nil {
		o.metrics.RecordAction(string(intent.Kind), outcome, kind, elapsed.Seconds())
	}

	if len(o.recorders) == 0 {
		return
	}

	event := &Event{
		ID:          uuid.New().String(),
		ItemID:      string(id),
		Mint:        mint,
		Intent:      string(intent.Kind),
		Account:     intent.Account,
		Outcome:     outcome,
		FailureKind: kind,
		CreatedAt:   time.Now().UTC(),
	}
	if intent.Kind == IntentOffer {
		amount := intent.OfferAmount
		event.OfferAmount = &amount
	}

	o.pending.Add(1)
	go o.record(context.WithoutCancel(ctx), event)
}

// record hands event to every recorder. It runs after the response is decided,
// so a slow or failing sink never delays or changes it.
func (o *Orchestrator) record(ctx context.Context, event *Event) {
	defer o.pending.Done()

	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()

	for _, r := range o.recorders {
		o.recordOne(ctx, r, event)
	}
}

func (o *Orchestrator) recordOne(ctx context.Context, r Recorder, event *Event) {
	defer func() {
		if p := recover(); p != nil {
			o.logger.ErrorContext(ctx, "action recorder panicked",
				"event_id", event.ID,
				"item_id", event.ItemID,
				"panic", fmt.Sprint(p),
			)
		}
	}()

	if err := r.RecordAction(ctx, event); err != nil {
		o.logger.WarnContext(ctx, "failed to record action event",
			"event_id", event.ID,
			"item_id", event.ItemID,
			"error", err,
		)
	}
}

// Wait blocks until every event handed to the recorders so far has been
// delivered or has timed out. Call it after the HTTP server has stopped.
func (o *Orchestrator) Wait() {
	o.pending.Wait()
}

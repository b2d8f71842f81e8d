package actions

import (
	"fmt"
	"net/http"
)

// Kind classifies a Failure.
type Kind int

const (
	// KindNotFound means the item id does not resolve.
	KindNotFound Kind = iota + 1
	// KindNotListed means a buy was requested for an item without a fixed price.
	KindNotListed
	// KindSchemaInvalid means the request body failed validation.
	KindSchemaInvalid
	// KindConstructionFailed covers every server-side failure while preparing a transaction.
	KindConstructionFailed
)

// String returns the snake_case name used in logs, metrics and events.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindNotListed:
		return "not_listed"
	case KindSchemaInvalid:
		return "schema_invalid"
	case KindConstructionFailed:
		return "construction_failed"
	default:
		return "unknown"
	}
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindNotFound, KindNotListed:
		return http.StatusUnprocessableEntity
	case KindSchemaInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ClientError reports whether the failure was caused by the caller's input.
func (k Kind) ClientError() bool {
	return k.Status() < http.StatusInternalServerError
}

// genericFailureMessage is the only message ever shown for server-side failures.
const genericFailureMessage = "failed to prepare transaction"

// Failure is the typed error returned by the action operations.
// Message is safe to show to the caller. Cause is for operators only.
type Failure struct {
	Kind    Kind
	Message string
	Cause   error
}

func (f *Failure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Cause)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Cause
}

// Status returns the HTTP status code for the failure.
func (f *Failure) Status() int {
	return f.Kind.Status()
}

// NotFound returns a failure for an item id that does not resolve.
func NotFound(id AssetID) *Failure {
	return &Failure{Kind: KindNotFound, Message: fmt.Sprintf("item %s not found", id)}
}

// NotListed returns a failure for a buy on an item without a fixed price.
func NotListed(id AssetID) *Failure {
	return &Failure{Kind: KindNotListed, Message: fmt.Sprintf("item %s is not listed for sale", id)}
}

// SchemaInvalid returns a failure for a malformed request body.
func SchemaInvalid(message string) *Failure {
	return &Failure{Kind: KindSchemaInvalid, Message: message}
}

// ConstructionFailed returns a server-side failure. The cause never reaches the caller.
func ConstructionFailed(cause error) *Failure {
	return &Failure{Kind: KindConstructionFailed, Message: genericFailureMessage, Cause: cause}
}

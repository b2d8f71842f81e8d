package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/brojonat/blinkmart/service/actions"
	"github.com/go-playground/validator/v10"
)

const maxRequestBodySize = 1 << 20 // 1MB

type buyRequest struct {
	Account string `json:"account" validate:"required"`
}

type offerRequest struct {
	Account     string   `json:"account" validate:"required"`
	OfferAmount *float64 `json:"offerAmount" validate:"required,gt=0"`
}

type transactionResponse struct {
	Transaction actions.UnsignedTransaction `json:"transaction"`
}

type actionRule struct {
	PathPattern string `json:"pathPattern"`
	APIPath     string `json:"apiPath"`
}

// handleGetItem returns the action descriptor for an item.
func handleGetItem(service ActionService, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := actions.AssetID(r.PathValue("itemId"))

		descriptor, failure := service.Describe(r.Context(), id)
		if failure != nil {
			writeFailure(w, failure)
			return
		}

		logger.DebugContext(r.Context(), "served action descriptor", "item_id", id, "listed", descriptor.Actions.Buy != nil)
		writeJSON(w, descriptor, http.StatusOK)
	})
}

// handleBuy prepares a buy-now transaction for the account in the body.
func handleBuy(service ActionService, validate *validator.Validate, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req buyRequest
		if !decodeRequest(w, r, validate, &req, logger) {
			return
		}

		id := actions.AssetID(r.PathValue("itemId"))
		tx, failure := service.Prepare(r.Context(), id, actions.Buy(req.Account))
		if failure != nil {
			writeFailure(w, failure)
			return
		}

		writeJSON(w, transactionResponse{Transaction: tx}, http.StatusOK)
	})
}

// handleOffer prepares a bid transaction for the account and amount in the body.
func handleOffer(service ActionService, validate *validator.Validate, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req offerRequest
		if !decodeRequest(w, r, validate, &req, logger) {
			return
		}

		id := actions.AssetID(r.PathValue("itemId"))
		tx, failure := service.Prepare(r.Context(), id, actions.Offer(req.Account, *req.OfferAmount))
		if failure != nil {
			writeFailure(w, failure)
			return
		}

		writeJSON(w, transactionResponse{Transaction: tx}, http.StatusOK)
	})
}

// handleActionsJSON serves the rules file that maps item URLs to the action API.
func handleActionsJSON() http.Handler {
	body := map[string][]actionRule{
		"rules": {
			{PathPattern: "/item/*", APIPath: "/item/*"},
		},
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, body, http.StatusOK)
	})
}

// decodeRequest reads a size-limited JSON body into req and validates it.
// On failure it writes a 400 response and returns false.
func decodeRequest(w http.ResponseWriter, r *http.Request, validate *validator.Validate, req any, logger *slog.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		logger.DebugContext(r.Context(), "failed to decode action request", "path", r.URL.Path, "error", err)
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeFailure(w, actions.SchemaInvalid("request body too large: maximum size is 1MB"))
			return false
		}
		writeFailure(w, actions.SchemaInvalid("invalid request body: must be valid JSON"))
		return false
	}

	if err := validate.Struct(req); err != nil {
		logger.DebugContext(r.Context(), "action request failed validation", "path", r.URL.Path, "error", err)
		writeFailure(w, actions.SchemaInvalid(validationMessage(err)))
		return false
	}

	return true
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationMessage turns validator errors into a client-safe message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body"
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(msgs, "; ")
}

func writeFailure(w http.ResponseWriter, failure *actions.Failure) {
	writeError(w, failure.Message, failure.Status())
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, map[string]string{"message": message}, statusCode)
}

package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"freshcart/internal/middleware"
	"freshcart/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 64 << 10

// statusByCode maps domain error codes to HTTP statuses.
var statusByCode = map[string]int{
	model.ErrCodeInvalidJSON:          http.StatusBadRequest,
	model.ErrCodeMissingField:         http.StatusBadRequest,
	model.ErrCodeInvalidPaymentMethod: http.StatusBadRequest,
	model.ErrCodeInvalidQuantity:      http.StatusBadRequest,

	model.ErrCodeUnauthorised: http.StatusUnauthorized,

	model.ErrCodeAddressNotFound: http.StatusNotFound,
	model.ErrCodeOrderNotFound:   http.StatusNotFound,
	model.ErrCodeProductNotFound: http.StatusNotFound,

	model.ErrCodeInsufficientStock:       http.StatusConflict,
	model.ErrCodeProductUnavailable:      http.StatusConflict,
	model.ErrCodeOrderInvalidState:       http.StatusConflict,
	model.ErrCodeCouponUsageLimitReached: http.StatusConflict,
	model.ErrCodeCouponPerUserLimit:      http.StatusConflict,

	model.ErrCodeInsufficientWallet:  http.StatusPaymentRequired,
	model.ErrCodePaymentVerification: http.StatusPaymentRequired,

	model.ErrCodeAddressNotServed:   http.StatusUnprocessableEntity,
	model.ErrCodeBelowAreaMinimum:   http.StatusUnprocessableEntity,
	model.ErrCodeEmptyCart:          http.StatusUnprocessableEntity,
	model.ErrCodeCouponNotFound:     http.StatusUnprocessableEntity,
	model.ErrCodeCouponInactive:     http.StatusUnprocessableEntity,
	model.ErrCodeCouponExpired:      http.StatusUnprocessableEntity,
	model.ErrCodeCouponBelowMinimum: http.StatusUnprocessableEntity,

	model.ErrCodeGatewayTimeout: http.StatusGatewayTimeout,
	model.ErrCodePaymentGateway: http.StatusBadGateway,
}

var errInvalidJSON = model.NewDomainError(model.ErrCodeInvalidJSON, "Request body is not valid JSON")

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps err to a status and writes the error envelope. Errors that
// are not domain errors are logged and reported as INTERNAL_ERROR.
func writeError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	correlationID := middleware.CorrelationIDFromContext(r.Context())

	var domainErr *model.DomainError
	if !errors.As(err, &domainErr) {
		logger.Error().
			Err(err).
			Str("path", r.URL.Path).
			Str("correlation_id", correlationID).
			Msg("handler error")
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
			Error:         model.ErrCodeInternalError,
			Message:       "internal server error",
			CorrelationID: correlationID,
		})
		return
	}

	status, ok := statusByCode[domainErr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	logger.Debug().
		Str("code", domainErr.Code).
		Int("status", status).
		Str("path", r.URL.Path).
		Msg("request rejected")

	writeJSON(w, status, model.ErrorResponse{
		Error:         domainErr.Code,
		Message:       domainErr.Message,
		Details:       domainErr.Details,
		CorrelationID: correlationID,
	})
}

// decodeJSON decodes a size-limited request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	body, err := readBody(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errInvalidJSON
	}
	return nil
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errInvalidJSON.WithDetail("reason", "body too large or unreadable")
	}
	return body, nil
}

// pathUUID parses a uuid path parameter, reporting notFound when malformed.
func pathUUID(raw string, notFound *model.DomainError) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, notFound
	}
	return id, nil
}

// requireUserID reads the caller placed in the context by RequireUser.
func requireUserID(r *http.Request) (uuid.UUID, error) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, model.NewDomainError(model.ErrCodeUnauthorised, "user id is required")
	}
	return userID, nil
}

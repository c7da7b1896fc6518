package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/roach88/storefront/internal/cart"
	"github.com/roach88/storefront/internal/identity"
	"github.com/roach88/storefront/internal/remote"
)

// Error codes for failures that do not come from a collaborator.
const (
	CodeBadRequest = "bad_request"
	CodeNotFound   = "not_found"
	CodeConflict   = "conflict"
	CodeTimeout    = "timeout"
	CodeInternal   = "internal"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("response encode failed", "error", err)
	}
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// writeError maps err to a status code and writes it.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrUnknownItem), errors.Is(err, cart.ErrNotInCart):
		writeErrorCode(w, http.StatusNotFound, CodeNotFound, err.Error())
		return
	case errors.Is(err, context.DeadlineExceeded):
		writeErrorCode(w, http.StatusGatewayTimeout, CodeTimeout, err.Error())
		return
	}

	if re, ok := remote.As(err); ok {
		writeErrorCode(w, remoteStatus(re.Code), re.Code, re.Message)
		return
	}

	slog.Error("request failed", "error", err)
	writeErrorCode(w, http.StatusInternalServerError, CodeInternal, err.Error())
}

// remoteStatus picks the status for a collaborator error. Identity errors
// caused by the request map to 4xx; everything else is a bad gateway.
func remoteStatus(code string) int {
	switch code {
	case identity.CodeInvalidEmail, identity.CodeWeakPassword:
		return http.StatusBadRequest
	case identity.CodeUserNotFound, identity.CodeWrongPassword, identity.CodeNoCurrentUser:
		return http.StatusUnauthorized
	case identity.CodeEmailInUse:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

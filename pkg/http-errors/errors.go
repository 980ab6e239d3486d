// Package httpErrors maps domain error codes onto HTTP statuses and a
// stable JSON error envelope so every handler answers failures the same way.
package httpErrors

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "vericred/pkg/domain-errors"
)

// ToHTTPStatus translates a domain error code to an HTTP status.
func ToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput, dErrors.CodeValidation, dErrors.CodeEmptyInput, dErrors.CodeIndexOutOfRange:
		return http.StatusBadRequest
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeSyncInProgress:
		return http.StatusConflict
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case dErrors.CodeNetwork:
		return http.StatusBadGateway
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// envelope is the wire shape of every error response.
type envelope struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Write answers err as a JSON error response, deriving the status from the
// domain code when one is present.
func Write(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	message := ""
	var de *dErrors.Error
	if errors.As(err, &de) {
		code = de.Code
		message = de.Message
	} else if err != nil {
		message = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(envelope{Error: string(code), Message: message})
}

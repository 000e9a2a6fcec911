// Path: internal/delivery/rest/respond.go
package rest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"tictactoe/internal/domain"
)

func writeJSON(w http.ResponseWriter, log *zap.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("Failed to write JSON response", zap.Error(err))
	}
}

// StatusFor maps an error to its HTTP status by kind.
func StatusFor(err error) int {
	switch domain.Kind(err) {
	case domain.ErrValidation:
		return http.StatusBadRequest
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrConflict:
		return http.StatusConflict
	case domain.ErrDependency:
		return http.StatusBadGateway
	case domain.ErrTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("Unhandled error", zap.Error(err))
		msg = "internal server error"
	} else if status >= http.StatusInternalServerError {
		log.Warn("Request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, log, status, map[string]string{"error": msg})
}

var errMalformedBody = fmt.Errorf("%w: malformed JSON body", domain.ErrValidation)

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return errMalformedBody
	}
	return nil
}

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ekropotin/daybook/internal/errs"
)

const maxBodyBytes = 1 << 20 // 1 MiB request body cap

// decodeJSON decodes the request body into dst with a size cap.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	return dec.Decode(dst)
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorJSON writes a {"error": msg} body with the given status.
func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// internalError hides store/internal detail behind a generic message.
func internalError(w http.ResponseWriter) {
	errorJSON(w, http.StatusInternalServerError, "internal server error")
}

// mapError converts service sentinels to HTTP responses. Unmatched errors
// fall through to a generic 500 and the caller is expected to have logged them.
func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrInvalidInput):
		errorJSON(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrUnauthorized):
		errorJSON(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, errs.ErrNotFound):
		errorJSON(w, http.StatusNotFound, "not found")
	case errors.Is(err, errs.ErrRateLimited):
		errorJSON(w, http.StatusTooManyRequests, "too many attempts, try again later")
	default:
		internalError(w)
	}
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/parisxmas/OxiDB/OxiSubmit/internal/errdefs"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errdefs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errdefs.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError renders err with the response shape of its status.
func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusBadRequest:
		var verr *errdefs.ValidationError
		missing := []string{}
		if errors.As(err, &verr) {
			missing = verr.Missing
		}
		writeJSON(w, status, map[string]any{
			"message": "All fields are required",
			"missing": missing,
		})
	case http.StatusNotFound:
		writeError(w, status, "Not found")
	default:
		writeJSON(w, status, map[string]string{
			"message": "Server error",
			"error":   err.Error(),
		})
	}
}

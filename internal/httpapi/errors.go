package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/forPelevin/mp4trim/internal/loader"
	"github.com/forPelevin/mp4trim/internal/trimmer"
)

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, kind, detail string) {
	writeJSON(w, code, errorBody{Error: kind, Detail: detail})
}

// statusFor maps loader and cut errors to a status and a machine readable kind.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, loader.ErrNotMP4):
		return http.StatusBadRequest, "invalid_file"
	case errors.Is(err, loader.ErrBadMetadata):
		return http.StatusUnprocessableEntity, "unreadable_metadata"
	}
	switch trimmer.KindOf(err) {
	case trimmer.KindValidation:
		return http.StatusUnprocessableEntity, trimmer.KindValidation.String()
	case trimmer.KindNoMedia:
		return http.StatusBadRequest, trimmer.KindNoMedia.String()
	case trimmer.KindInitialization:
		return http.StatusServiceUnavailable, trimmer.KindInitialization.String()
	default:
		return http.StatusInternalServerError, trimmer.KindExecution.String()
	}
}

// detailFor is the message the workspace showed the user for err.
func detailFor(err error) string {
	if msg := loader.Message(err); msg != "" {
		return msg
	}
	return trimmer.Message(err)
}

package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pathtracker/pathtracker/app"
	"github.com/pathtracker/pathtracker/ports"
)

// Error codes of the stable wire taxonomy.
const (
	codeInvalidRequest = "INVALID_REQUEST"
	codeUnauthorized   = "UNAUTHORIZED"
	codeForbidden      = "FORBIDDEN"
	codeNotFound       = "NOT_FOUND"
	codeDuplicateName  = "DUPLICATE_NAME"
	codeInternal       = "INTERNAL_ERROR"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

// handleError maps service-layer errors onto the wire taxonomy. Anything
// unrecognized becomes an opaque 500; the underlying error is logged, not
// exposed.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "Resource not found")
	case errors.Is(err, app.ErrDuplicateName):
		writeError(w, http.StatusConflict, codeDuplicateName, "A key with this name already exists")
	case errors.Is(err, app.ErrValidation):
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
	case errors.Is(err, app.ErrBatchTooLarge):
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
	default:
		h.logger.Error().Err(err).Str("op", op).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, codeInternal, "Internal server error")
	}
}

package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/xyntoro/xyntoro/internal/connector"
	"github.com/xyntoro/xyntoro/internal/model"
	"github.com/xyntoro/xyntoro/internal/server/middleware"
	"github.com/xyntoro/xyntoro/internal/storage"
	"github.com/xyntoro/xyntoro/internal/store"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error response using the standard error
// envelope. The optional ctx map provides additional context fields.
func writeError(w http.ResponseWriter, code int, message string, ctx ...map[string]interface{}) {
	var ctxMap map[string]interface{}
	if len(ctx) > 0 {
		ctxMap = ctx[0]
	}
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Message: message,
			Context: ctxMap,
		},
	})
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// writeStoreError maps an error from the store or one of its collaborators
// onto the error envelope. notFound is the message used for store.ErrNotFound.
// Unclassified errors are logged and answered with a generic 500.
func writeStoreError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, notFound string) {
	if fields := model.ValidationFields(err); fields != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", map[string]interface{}{
			"fields": fields,
		})
		return
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, storage.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, "Only .jpg, .jpeg, .png and .webp images are allowed")
	case errors.Is(err, errUploadsDisabled):
		writeError(w, http.StatusBadRequest, "Image uploads are not enabled")
	case errors.Is(err, connector.ErrConfigurationMissing):
		writeError(w, http.StatusServiceUnavailable, "Database is not configured")
	case errors.Is(err, connector.ErrConnection):
		logger.Warn("database unavailable", "path", r.URL.Path, "error", err,
			"request_id", middleware.GetRequestID(r.Context()))
		writeError(w, http.StatusServiceUnavailable, "Database unavailable")
	default:
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err,
			"request_id", middleware.GetRequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

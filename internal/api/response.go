package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/carlot/internal/inventory"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: encode response", zap.Error(err))
	}
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error     string `json:"error"`
	Reason    string `json:"reason,omitempty"`
	Field     string `json:"field,omitempty"`
	Retryable bool   `json:"retryable"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeLoadError maps inventory failures: an unreachable source is a
// retryable 503, anything else a 500.
func writeLoadError(w http.ResponseWriter, err error) {
	var sue *inventory.SourceUnavailableError
	if errors.As(err, &sue) {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:     sue.UserMessage(),
			Reason:    string(sue.Reason()),
			Retryable: sue.Retryable(),
		})
		return
	}
	zap.L().Error("api: load inventory", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Could not load the inventory.")
}

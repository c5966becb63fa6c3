package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	sderrors "github.com/shaderdex/shaderdex/internal/errors"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response_encode_failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: message, Code: code})
}

// writeDexError maps a structured error onto the JSON error body. The
// bare message is used so the code is not rendered twice.
func writeDexError(w http.ResponseWriter, status int, err error) {
	var dex *sderrors.DexError
	if errors.As(err, &dex) {
		writeError(w, status, dex.Code, dex.Message)
		return
	}
	writeError(w, status, "", err.Error())
}

package matrix

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
)

const apiPrefix = "/_matrix/client/v3"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func textContent(body string) json.RawMessage {
	data, _ := json.Marshal(map[string]any{"msgtype": "m.text", "body": body})
	return data
}

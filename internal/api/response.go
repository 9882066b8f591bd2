// Package api provides HTTP response utilities for FocusGuard.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// fallbackBody is served when a response value cannot be marshaled. It
// mirrors the models.Error shape so clients always parse valid JSON.
const fallbackBody = `{"status":"error","message":"Internal server error"}`

// writeJSONResponse marshals response and writes it with the given status
// code. A marshal failure degrades to the canned 500 body instead of
// leaving the client with a half-written response.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	body, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal response", "error", err)
		body = []byte(fallbackBody)
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		slog.Error("Server.writeJSONResponse: failed to write response", "error", err)
	}
}

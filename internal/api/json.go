package api

import (
	"encoding/json"
	"net/http"
)

// Every JSON response uses the product envelope: {success, ...payload,
// message?}. Failures are data, not HTTP-only signals, so the client can
// always decode one shape.

func writeEnvelope(w http.ResponseWriter, status int, payload map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeOK(w http.ResponseWriter, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["success"] = true
	writeEnvelope(w, http.StatusOK, payload)
}

func writeFail(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, map[string]any{"success": false, "message": message})
}

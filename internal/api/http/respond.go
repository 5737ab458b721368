// Package http is the HTTP boundary: it decodes requests, invokes the
// publish manager or launch orchestrator, and maps tagged errors to
// responses. No business rules live here.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/lamb-project/lamb-lti/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders the structured error body used by the publish API.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.StatusOf(err), map[string]any{
		"success": false,
		"error":   apperr.CodeOf(err),
		"detail":  apperr.MessageOf(err),
	})
}

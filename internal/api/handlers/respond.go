package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/coursehub-api/coursehub/internal/core/errs"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service errors to their HTTP status and emits the
// {"error": message} body the clients expect. Unclassified errors become an
// opaque 500.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errs.StatusOf(err), map[string]string{"error": errs.MessageOf(err)})
}

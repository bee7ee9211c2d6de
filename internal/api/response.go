// Shared JSON response helpers so every handler answers in the same shape.

package api

import (
	"encoding/json"
	"net/http"
)

// RespondWithJSON marshals payload and writes it with the given status code.
// A payload that cannot be marshaled degrades to a 500 error response.
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to marshal response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// RespondWithError writes an error message as {"error": message}.
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]string{"error": message})
}

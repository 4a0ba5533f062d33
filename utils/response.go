package utils

import (
	"encoding/json"
	"net/http"
	"os"
)

func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, map[string]string{"error": msg})
}

// RespondWithInternalError hides the underlying error from callers unless
// DEV_MODE is set; the detail always goes to the server log first.
func RespondWithInternalError(w http.ResponseWriter, err error) {
	msg := "internal error"
	if os.Getenv("DEV_MODE") == "true" && err != nil {
		msg = err.Error()
	}
	RespondWithError(w, http.StatusInternalServerError, msg)
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

type M map[string]interface{}

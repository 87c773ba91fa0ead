package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"store-dashboard-api/internal/models"
)

// AuthMiddleware provides API key authentication
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			slog.Warn("Authentication failed: missing API key", "remote_addr", r.RemoteAddr)
			writeErrorResponse(w, http.StatusUnauthorized, "unauthorized", "API key required")
			return
		}

		if !isValidAPIKey(apiKey) {
			slog.Warn("Authentication failed: invalid API key", "remote_addr", r.RemoteAddr)
			writeErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// isValidAPIKey checks the provided key against the API_KEYS environment
// variable (comma separated).
func isValidAPIKey(apiKey string) bool {
	apiKeysStr := os.Getenv("API_KEYS")
	if apiKeysStr == "" {
		apiKeysStr = "demo" // Default fallback
	}

	for _, validKey := range strings.Split(apiKeysStr, ",") {
		if strings.TrimSpace(validKey) == apiKey {
			return true
		}
	}
	return false
}

// writeErrorResponse is a helper function to write error responses
func writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

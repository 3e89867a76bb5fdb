package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/JonMunkholm/datacheck/internal/logging"
)

// APIKeyAuth returns middleware that checks the X-API-Key header against
// keys. With no keys configured every request passes.
func APIKeyAuth(keys []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				logging.FromContext(r.Context()).Warn("auth: missing API key", "path", r.URL.Path, "method", r.Method)
				writeAuthError(w, http.StatusUnauthorized, "missing API key", "AUTH_MISSING_KEY")
				return
			}
			if !isValidAPIKey(apiKey, keys) {
				logging.FromContext(r.Context()).Warn("auth: invalid API key", "path", r.URL.Path, "method", r.Method)
				writeAuthError(w, http.StatusForbidden, "invalid API key", "AUTH_INVALID_KEY")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// isValidAPIKey compares against every key in constant time.
func isValidAPIKey(key string, validKeys []string) bool {
	valid := 0
	for _, validKey := range validKeys {
		valid |= subtle.ConstantTimeCompare([]byte(key), []byte(validKey))
	}
	return valid == 1
}

func writeAuthError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `","code":"` + code + `"}`))
}

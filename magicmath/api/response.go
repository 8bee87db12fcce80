package api

import (
	"encoding/json"
	"net/http"

	rldomain "magic-math-gateway/middleware/ratelimit/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// RateLimited é o OnLimited do middleware de rate limit: 429 em JSON.
func RateLimited(w http.ResponseWriter, _ *http.Request, res rldomain.Result) {
	writeJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":   "Too many requests, please try again later.",
		"limit":   res.Limit,
		"resetAt": res.ResetAt.Unix(),
	})
}

// Overloaded é o OnReject do limite de concorrência: 503 em JSON.
func Overloaded(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusServiceUnavailable, "Server is busy, please try again later.")
}

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/kasuganosora/sedna-go/pkg/api"
	"github.com/kasuganosora/sedna-go/pkg/config"
)

type contextKey string

const ctxKeyClient contextKey = "api_client"

// maxBodySize caps request bodies, bulk loaded documents included.
const maxBodySize = 32 << 20

// GetClientFromContext returns the authenticated API client from the request context
func GetClientFromContext(ctx context.Context) *config.APIClient {
	client, _ := ctx.Value(ctxKeyClient).(*config.APIClient)
	return client
}

// RecoveryMiddleware recovers from panics and returns a 500 error
func RecoveryMiddleware(logger api.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("[HTTP API] panic recovered: %v", err)
					writeError(w, http.StatusInternalServerError, "internal server error", "")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware adds CORS headers
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+headerAPIKey+", "+headerTimestamp+", "+headerNonce+", "+headerSignature)
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(logger api.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			logger.Info("[HTTP API] %s %s %d %s", r.Method, r.URL.Path, wrapped.statusCode, time.Since(start))
		})
	}
}

// AuthMiddleware validates API key and HMAC signature. The body is read for
// the signature and handed on unchanged.
func AuthMiddleware(store *ClientStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get(headerAPIKey)
			if apiKey == "" {
				writeError(w, http.StatusUnauthorized, "missing X-API-Key header", "")
				return
			}

			client, err := store.GetClient(apiKey)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error(), "")
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
			if err != nil {
				writeError(w, http.StatusBadRequest, "failed to read request body", "")
				return
			}

			timestamp := r.Header.Get(headerTimestamp)
			nonce := r.Header.Get(headerNonce)
			signature := r.Header.Get(headerSignature)

			if timestamp == "" || nonce == "" || signature == "" {
				writeError(w, http.StatusUnauthorized, "missing signature headers (X-Timestamp, X-Nonce, X-Signature)", "")
				return
			}

			if err := ValidateSignature(client.APISecret, r.Method, r.URL.Path, timestamp, nonce, string(body), signature); err != nil {
				writeError(w, http.StatusUnauthorized, "signature verification failed: "+err.Error(), "")
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			ctx := context.WithValue(r.Context(), ctxKeyClient, client)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture status code
type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, kind string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Kind: kind, Code: status})
}

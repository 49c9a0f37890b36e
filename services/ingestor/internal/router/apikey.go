package router

import (
	"crypto/sha256"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/vanamuthuV/logsy/services/ingestor/internal/telemetry"
)

// APIKeyHeader carries the ingest key.
const APIKeyHeader = "X-API-Key"

// APIKeyVerifier checks keys against a bcrypt hash. Keys that verified once
// are remembered by SHA-256 digest so bcrypt runs once per distinct key.
type APIKeyVerifier struct {
	hash  []byte
	prom  *telemetry.IngestMetrics
	mu    sync.RWMutex
	valid map[[sha256.Size]byte]struct{}
}

// NewAPIKeyVerifier returns nil when hash is empty, which disables the check.
func NewAPIKeyVerifier(hash string, prom *telemetry.IngestMetrics) *APIKeyVerifier {
	if hash == "" {
		return nil
	}
	return &APIKeyVerifier{
		hash:  []byte(hash),
		prom:  prom,
		valid: make(map[[sha256.Size]byte]struct{}),
	}
}

// Verify reports whether key matches the configured hash.
func (v *APIKeyVerifier) Verify(key string) bool {
	if key == "" {
		return false
	}
	digest := sha256.Sum256([]byte(key))

	v.mu.RLock()
	_, ok := v.valid[digest]
	v.mu.RUnlock()
	if ok {
		v.prom.APIKeyCacheHits.Inc()
		return true
	}
	v.prom.APIKeyCacheMisses.Inc()

	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(key)); err != nil {
		return false
	}

	v.mu.Lock()
	v.valid[digest] = struct{}{}
	v.mu.Unlock()
	return true
}

// apiKeyMiddleware rejects requests without a valid key. A nil verifier
// lets every request through.
func apiKeyMiddleware(v *APIKeyVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if v == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(APIKeyHeader)
			if key == "" {
				slog.Warn("API key missing from request", "remote_addr", r.RemoteAddr)
				http.Error(w, "Unauthorized: API key required", http.StatusUnauthorized)
				return
			}
			if !v.Verify(key) {
				slog.Warn("Invalid API key provided", "remote_addr", r.RemoteAddr)
				http.Error(w, "Unauthorized: Invalid API key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

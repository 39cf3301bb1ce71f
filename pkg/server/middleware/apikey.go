package middleware

import (
	"crypto/subtle"
	"net/http"
	"sync"

	"github.com/sqlbee/sqlbee/pkg/trace"
)

// APIKeyAuthenticator is middleware that validates the team key header.
// The key can be rotated at runtime via SetKey.
type APIKeyAuthenticator struct {
	mu  sync.RWMutex
	key string
}

// NewAPIKeyAuthenticator creates a new API key authenticator middleware
func NewAPIKeyAuthenticator(key string) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{key: key}
}

// SetKey replaces the team key. Used for config hot reload.
func (a *APIKeyAuthenticator) SetKey(key string) {
	a.mu.Lock()
	a.key = key
	a.mu.Unlock()
}

func (a *APIKeyAuthenticator) currentKey() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.key
}

// Middleware returns an HTTP middleware that validates the team key
func (a *APIKeyAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := a.currentKey()

		// No key configured means an open collector
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		presented := r.Header.Get(trace.APIKeyHeader)

		if len(presented) == 0 {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Team key missing"))
			return
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Invalid team key"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/sqlbee/sqlbee/pkg/server"
	"github.com/sqlbee/sqlbee/pkg/store"
)

// HealthResponse represents the response from /health
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// RegisterStatusEndpoints registers the status and health endpoints
func RegisterStatusEndpoints(s *server.Server) {
	// GET / - Status page (no auth required)
	s.Router.HandleFunc("/", handleStatus()).Methods("GET")

	// GET /health - Database health (no auth required)
	s.Router.HandleFunc("/health", handleHealth(s.Store)).Methods("GET")
}

// RegisterAll registers every collector endpoint
func RegisterAll(s *server.Server) {
	RegisterStatusEndpoints(s)
	RegisterIngestEndpoints(s)
	RegisterSpanEndpoints(s)
}

func handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := os.Getenv("SQLBEE_VERSION_DISPLAY")
		if version == "" {
			version = "dev"
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "<html><head><title>sqlbee collector</title></head>"+
			"<body><h1>sqlbee collector</h1><p>Version %s</p>"+
			"<p>Your sqlbee collector is running!</p></body></html>", version)
	}
}

func handleHealth(spanStore *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok", Database: "ok"}
		code := http.StatusOK

		if spanStore == nil {
			resp.Database = "not configured"
		} else if err := spanStore.Ping(); err != nil {
			resp.Status = "degraded"
			resp.Database = "unreachable"
			code = http.StatusServiceUnavailable
		}

		respondWithJSON(w, code, resp)
	}
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, payload interface{}) {
	respondWithJSON(w, statusCode, payload)
}

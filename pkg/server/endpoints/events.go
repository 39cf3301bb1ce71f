package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sqlbee/sqlbee/pkg/server"
	"github.com/sqlbee/sqlbee/pkg/store"
	"github.com/sqlbee/sqlbee/pkg/trace"
)

// IngestResponse reports how many spans were accepted
type IngestResponse struct {
	Accepted int `json:"accepted"`
}

// RegisterIngestEndpoints registers the span ingest endpoints
func RegisterIngestEndpoints(s *server.Server) {
	spanStore := s.Store

	// POST /1/events/{dataset} - single span ingest
	s.API.HandleFunc("/events/{dataset}", handleEvent(spanStore)).Methods("POST")

	// POST /1/batch/{dataset} - batch span ingest
	s.API.HandleFunc("/batch/{dataset}", handleBatch(spanStore)).Methods("POST")
}

func handleEvent(spanStore *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// The collector can run without a database; ingest is unavailable then.
		if spanStore == nil {
			respondWithError(w, http.StatusServiceUnavailable, map[string]string{
				"error": "span store not configured",
			})
			return
		}

		dataset := mux.Vars(r)["dataset"]

		var event trace.Event
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			respondWithError(w, http.StatusBadRequest, map[string]string{
				"error": "malformed event payload",
			})
			return
		}
		// The path is authoritative for the dataset
		event.Dataset = dataset

		if err := spanStore.Save(event); err != nil {
			respondWithError(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to store span",
			})
			return
		}

		respondWithJSON(w, http.StatusAccepted, IngestResponse{Accepted: 1})
	}
}

func handleBatch(spanStore *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if spanStore == nil {
			respondWithError(w, http.StatusServiceUnavailable, map[string]string{
				"error": "span store not configured",
			})
			return
		}

		dataset := mux.Vars(r)["dataset"]

		var events []trace.Event
		if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
			respondWithError(w, http.StatusBadRequest, map[string]string{
				"error": "malformed batch payload",
			})
			return
		}
		for i := range events {
			events[i].Dataset = dataset
		}

		if err := spanStore.SaveBatch(events); err != nil {
			respondWithError(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to store spans",
			})
			return
		}

		respondWithJSON(w, http.StatusAccepted, IngestResponse{Accepted: len(events)})
	}
}

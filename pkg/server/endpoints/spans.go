package endpoints

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/sqlbee/sqlbee/pkg/server"
	"github.com/sqlbee/sqlbee/pkg/store"
)

const defaultListLimit = 100

// RegisterSpanEndpoints registers the span read endpoints
func RegisterSpanEndpoints(s *server.Server) {
	// GET /1/spans/{dataset} - recent spans, newest first
	s.API.HandleFunc("/spans/{dataset}", handleListSpans(s.Store, s.Config.SpanListLimitMax)).Methods("GET")
}

func handleListSpans(spanStore *store.Store, limitMax int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if spanStore == nil {
			respondWithError(w, http.StatusServiceUnavailable, map[string]string{
				"error": "span store not configured",
			})
			return
		}

		dataset := mux.Vars(r)["dataset"]

		limit := defaultListLimit
		if val := r.URL.Query().Get("limit"); val != "" {
			parsed, err := strconv.Atoi(val)
			if err != nil || parsed < 1 {
				respondWithError(w, http.StatusBadRequest, map[string]string{
					"error": "invalid limit parameter",
				})
				return
			}
			limit = parsed
		}
		if limitMax > 0 && limit > limitMax {
			limit = limitMax
		}

		spans, err := spanStore.List(dataset, limit)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to list spans",
			})
			return
		}
		if spans == nil {
			spans = []store.StoredSpan{}
		}

		respondWithJSON(w, http.StatusOK, spans)
	}
}

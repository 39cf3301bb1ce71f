package server

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/sqlbee/sqlbee/pkg/config"
	"github.com/sqlbee/sqlbee/pkg/server/middleware"
	"github.com/sqlbee/sqlbee/pkg/store"
)

type Server struct {
	Store  *store.Store
	Config *config.Config
	Router *mux.Router
	// API is the authenticated subrouter all /1/* endpoints hang off
	API  *mux.Router
	Auth *middleware.APIKeyAuthenticator
	srv  *http.Server
}

func NewServer(
	spanStore *store.Store,
	cfg *config.Config,
	host string,
	port string,
) *Server {

	router := mux.NewRouter().UseEncodedPath()
	srv := &http.Server{
		Handler: handlers.LoggingHandler(os.Stdout, router),
		Addr:    host + ":" + port,
		// Good practice: enforce timeouts for servers you create!
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	api := router.PathPrefix("/1").Subrouter()
	auth := middleware.NewAPIKeyAuthenticator(cfg.APIKey)
	api.Use(auth.Middleware)

	return &Server{
		Store:  spanStore,
		Config: cfg,
		Router: router,
		API:    api,
		Auth:   auth,
		srv:    srv,
	}
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Package server provides the HTTP server for the sqlbee collector.
//
// The collector receives spans from instrumented applications and
// persists them for later inspection. It uses gorilla/mux for routing
// and an API-key middleware for request authentication.
//
// # Server Setup
//
//	srv := server.NewServer(spanStore, cfg, host, port)
//	endpoints.RegisterAll(srv)
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Endpoints
//
// API endpoints are registered via the endpoints subpackage:
//
//   - POST /1/events/{dataset} - single span ingest
//   - POST /1/batch/{dataset} - batch span ingest
//   - GET /1/spans/{dataset} - recent spans
//   - GET / - status page (no auth)
//   - GET /health - database health (no auth)
package server

// Package main implements beectl, the CLI for the sqlbee span collector.
//
// sqlbee traces database queries: each query an instrumented application
// runs produces a span carrying the query text, its arguments, its
// duration, and its outcome. Spans are sent to a collector which stores
// them in PostgreSQL.
//
// # Architecture
//
// The project is organized into several packages:
//
//   - pkg/trace: Span model, wire format, and senders
//   - pkg/instrument/gormtrace: GORM plugin instrumentation
//   - pkg/instrument/sqltrace: database/sql driver instrumentation
//   - pkg/server: Collector HTTP server and routing
//   - pkg/server/endpoints: Collector REST API endpoint handlers
//   - pkg/store: Span persistence
//   - pkg/db: Database connection utilities
//   - pkg/config: Configuration management
//
// # Quick Start
//
// The collector is run via the beectl CLI:
//
//	# Run database migrations
//	beectl db migrate
//
//	# Start the collector
//	beectl server
//
//	# Follow incoming spans
//	beectl spans tail --dataset sqlbee
//
// # Environment Variables
//
//   - SQLBEE_DATABASE_URL: PostgreSQL connection string (falls back to DATABASE_URL)
//   - SQLBEE_API_KEY: Team key clients must present to the collector
//   - SQLBEE_DATASET: Default dataset name (default: sqlbee)
//   - SQLBEE_CONFIG_PATH: Config file directory (default: /etc/sqlbee/config)
//   - PORT: Collector port (default: 8000)
package main

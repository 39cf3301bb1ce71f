// Package config provides configuration management for sqlbee.
//
// This package handles loading and validating sqlbee configuration from
// environment variables and configuration files.
//
// # Configuration Sources
//
// Configuration is loaded from:
//
//   - Environment variables (primary)
//   - Configuration files (optional)
//
// # Key Configuration Options
//
//   - SQLBEE_DATASET: Dataset name spans are tagged with
//   - SQLBEE_API_KEY: Team key for the collector
//   - SQLBEE_COLLECTOR_URL: Collector base URL
//   - SQLBEE_SAMPLE_RATE: Send one span in N
//   - SQLBEE_CAPTURE_QUERY_ARGS: Capture statement parameters
//   - DATABASE_URL: Database connection
//   - PORT: Collector listen port
package config

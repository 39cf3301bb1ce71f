// Package trace provides the span model and client for sqlbee.
//
// A span represents a single traced operation, typically one database
// query. Spans carry a name, a kind, and a flat field map using the
// db.* field naming convention:
//
//   - db.query: the SQL statement
//   - db.query_args: formatted statement parameters
//   - db.duration: query duration in milliseconds
//   - db.rows_affected: rows affected by the statement
//   - db.last_insert_id: last insert id, when the driver reports one
//   - db.error: error message, on failure
//
// # Usage
//
//	span := trace.NewSpan("sql_query", trace.KindDB)
//	span.AddField("db.query", "SELECT 1")
//	// ... run the query ...
//	span.Finish()
//	trace.Send(span)
//
// Finished spans are handed to a Sender. The package-level default client
// writes JSON lines to stdout and can be disabled with SQLBEE_ENABLED=false.
package trace

// Package sqltrace instruments database/sql drivers with sqlbee spans.
//
// Any driver can be wrapped; a ready-made lib/pq wrapper is registered
// as "sqlbee-postgres":
//
//	db, err := sql.Open("sqlbee-postgres", os.Getenv("DATABASE_URL"))
//
// Every Exec and Query on the wrapped driver emits a span named
// "sql_query" carrying db.query, db.query_args, db.duration and, for
// Exec, db.rows_affected and db.last_insert_id when the driver reports
// them. Failures are recorded as db.error.
package sqltrace

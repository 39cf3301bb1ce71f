// Package gormtrace instruments GORM with sqlbee spans.
//
// The plugin registers before/after callbacks around every GORM
// operation (create, query, update, delete, row, raw) and emits one
// span per executed statement:
//
//	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := db.Use(gormtrace.NewPlugin()); err != nil {
//	    log.Fatal(err)
//	}
//
// Spans are named "gorm_query" and carry db.query, db.query_args,
// db.duration, db.rows_affected and, on failure, db.error.
package gormtrace

package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/sqlbee/sqlbee/pkg/trace"
)

func testEvent() trace.Event {
	span := trace.NewSpan("sql_query", trace.KindDB)
	span.AddField("db.query", "SELECT 1")
	span.AddField("db.query_args", []interface{}{})
	span.Finish()
	return span.Eventize("test-dataset")
}

func TestStoreSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)
	event := testEvent()

	mock.ExpectExec(`INSERT INTO spans`).
		WithArgs(
			"test-dataset",   // dataset
			"sql_query",      // name
			"db",             // kind
			sqlmock.AnyArg(), // timestamp
			sqlmock.AnyArg(), // duration_ms
			sqlmock.AnyArg(), // fields (JSON)
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.Save(event)
	if err != nil {
		t.Errorf("Save() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreSaveBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	mock.ExpectBegin()
	mock.ExpectPrepare(`INSERT INTO spans`)
	mock.ExpectExec(`INSERT INTO spans`).
		WithArgs("test-dataset", "sql_query", "db", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO spans`).
		WithArgs("test-dataset", "sql_query", "db", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err = store.SaveBatch([]trace.Event{testEvent(), testEvent()})
	if err != nil {
		t.Errorf("SaveBatch() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreSaveBatchEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	// No expectations: an empty batch must not touch the database.
	if err := store.SaveBatch(nil); err != nil {
		t.Errorf("SaveBatch(nil) error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreList(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	fields, _ := json.Marshal(map[string]interface{}{"db.query": "SELECT 1"})
	rows := sqlmock.NewRows([]string{"id", "dataset", "name", "kind", "timestamp", "duration_ms", "fields"}).
		AddRow(int64(1), "test-dataset", "sql_query", "db", time.Now(), 1.5, fields)

	mock.ExpectQuery(`SELECT id, dataset, name, kind, timestamp, duration_ms, fields`).
		WithArgs("test-dataset", 10).
		WillReturnRows(rows)

	spans, err := store.List("test-dataset", 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if len(spans) != 1 {
		t.Fatalf("List() returned %d spans, want 1", len(spans))
	}
	if spans[0].Name != "sql_query" {
		t.Errorf("span name = %q, want 'sql_query'", spans[0].Name)
	}
	if spans[0].Fields["db.query"] != "SELECT 1" {
		t.Errorf("span fields = %v, want db.query set", spans[0].Fields)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreNilDB(t *testing.T) {
	store := &Store{db: nil}

	// Should not error when db is nil
	if err := store.Save(testEvent()); err != nil {
		t.Errorf("Save() with nil db should not error, got: %v", err)
	}

	if _, err := store.List("test-dataset", 10); err == nil {
		t.Error("List() with nil db should error")
	}
}

func TestStoreClose(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	store := NewStoreWithDB(db)

	mock.ExpectClose()

	if err := store.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreCloseNilDB(t *testing.T) {
	store := &Store{db: nil}

	if err := store.Close(); err != nil {
		t.Errorf("Close() with nil db should not error, got: %v", err)
	}
}

func TestSender(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	sender := NewSender(NewStoreWithDB(db))

	mock.ExpectExec(`INSERT INTO spans`).
		WithArgs("test-dataset", "sql_query", "db", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := sender.Send(testEvent()); err != nil {
		t.Errorf("Send() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

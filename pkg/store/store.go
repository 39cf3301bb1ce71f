package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/sqlbee/sqlbee/pkg/trace"
)

// Store handles span persistence to the database
type Store struct {
	db *sql.DB
}

// StoredSpan represents a span row read back from the database
type StoredSpan struct {
	ID         int64                  `json:"id"`
	Dataset    string                 `json:"dataset"`
	Name       string                 `json:"name"`
	Kind       string                 `json:"kind"`
	Timestamp  time.Time              `json:"timestamp"`
	DurationMs float64                `json:"duration_ms"`
	Fields     map[string]interface{} `json:"fields"`
}

// NewStore creates a new span store from SQLBEE_DATABASE_URL, falling
// back to DATABASE_URL. Returns nil if neither is set (store disabled).
func NewStore() (*Store, error) {
	dbURL := os.Getenv("SQLBEE_DATABASE_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return nil, nil
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// NewStoreWithDB creates a store with an existing database connection
// Useful for testing with sqlmock
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks database connectivity
func (s *Store) Ping() error {
	if s.db == nil {
		return fmt.Errorf("store has no database connection")
	}
	return s.db.Ping()
}

// Save persists a span event to the database
func (s *Store) Save(event trace.Event) error {
	if s.db == nil {
		return nil
	}

	fieldsJSON, err := json.Marshal(event.Fields)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO spans (dataset, name, kind, timestamp, duration_ms, fields)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		event.Dataset,
		event.Name,
		event.Kind.String(),
		event.Timestamp,
		event.DurationMs,
		fieldsJSON,
	)

	return err
}

// SaveBatch persists a batch of span events in a single transaction
func (s *Store) SaveBatch(events []trace.Event) error {
	if s.db == nil || len(events) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO spans (dataset, name, kind, timestamp, duration_ms, fields)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, event := range events {
		fieldsJSON, err := json.Marshal(event.Fields)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := stmt.Exec(
			event.Dataset,
			event.Name,
			event.Kind.String(),
			event.Timestamp,
			event.DurationMs,
			fieldsJSON,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// List returns the most recent spans for a dataset, newest first
func (s *Store) List(dataset string, limit int) ([]StoredSpan, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store has no database connection")
	}

	rows, err := s.db.Query(`
		SELECT id, dataset, name, kind, timestamp, duration_ms, fields
		FROM spans
		WHERE dataset = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`, dataset, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var spans []StoredSpan
	for rows.Next() {
		var span StoredSpan
		var fieldsJSON []byte
		if err := rows.Scan(
			&span.ID,
			&span.Dataset,
			&span.Name,
			&span.Kind,
			&span.Timestamp,
			&span.DurationMs,
			&fieldsJSON,
		); err != nil {
			return nil, err
		}
		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &span.Fields); err != nil {
				return nil, fmt.Errorf("failed to decode span fields: %w", err)
			}
		}
		spans = append(spans, span)
	}

	return spans, rows.Err()
}

// DB returns the underlying database connection (for testing)
func (s *Store) DB() *sql.DB {
	return s.db
}

// Sender adapts a Store to the trace.Sender interface
type Sender struct {
	store *Store
}

// NewSender creates a trace sender backed by the store
func NewSender(store *Store) *Sender {
	return &Sender{store: store}
}

func (s *Sender) Send(event trace.Event) error {
	if s.store == nil {
		return nil
	}
	return s.store.Save(event)
}

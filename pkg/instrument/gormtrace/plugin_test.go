package gormtrace

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sqlbee/sqlbee/pkg/trace"
)

// recordingSender captures events for assertions.
type recordingSender struct {
	events []trace.Event
}

func (s *recordingSender) Send(event trace.Event) error {
	s.events = append(s.events, event)
	return nil
}

type user struct {
	ID   int64
	Name string
}

func openMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	db, err := gorm.Open(
		postgres.New(postgres.Config{
			Conn:                 conn,
			PreferSimpleProtocol: true,
		}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		},
	)
	require.NoError(t, err)

	return db, mock
}

func instrumentedDB(t *testing.T, opts ...ApplyOption) (*gorm.DB, sqlmock.Sqlmock, *recordingSender) {
	t.Helper()

	db, mock := openMockDB(t)
	sender := &recordingSender{}
	opts = append(opts, WithClient(trace.NewClient("test-dataset", sender)))
	require.NoError(t, db.Use(NewPlugin(opts...)))

	return db, mock, sender
}

func TestInstallRegistersCallbacks(t *testing.T) {
	db, _ := openMockDB(t)
	require.NoError(t, db.Use(NewPlugin()))

	assert.NotNil(t, db.Callback().Create().Get("sqlbee:before_create"))
	assert.NotNil(t, db.Callback().Query().Get("sqlbee:after_query"))
	assert.NotNil(t, db.Callback().Raw().Get("sqlbee:before_raw"))
	assert.NotNil(t, db.Callback().Row().Get("sqlbee:after_row"))
}

func TestInstallIsIdempotent(t *testing.T) {
	db, _ := openMockDB(t)

	plugin := NewPlugin()
	require.NoError(t, plugin.Initialize(db))
	require.NoError(t, plugin.Initialize(db))

	assert.NotNil(t, db.Callback().Query().Get("sqlbee:before_query"))
}

func TestUninstall(t *testing.T) {
	db, _ := openMockDB(t)
	require.NoError(t, db.Use(NewPlugin()))
	require.NoError(t, Uninstall(db))

	assert.Nil(t, db.Callback().Create().Get("sqlbee:before_create"))
	assert.Nil(t, db.Callback().Query().Get("sqlbee:after_query"))

	// Uninstalling twice is fine.
	require.NoError(t, Uninstall(db))
}

func TestQueryProducesSpan(t *testing.T) {
	db, mock, sender := instrumentedDB(t)

	rows := sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "ada")
	mock.ExpectQuery(`SELECT \* FROM users WHERE id = \$1`).
		WithArgs(1).
		WillReturnRows(rows)

	var u user
	require.NoError(t, db.Raw("SELECT * FROM users WHERE id = $1", 1).Scan(&u).Error)

	require.Len(t, sender.events, 1)
	event := sender.events[0]
	assert.Equal(t, SpanName, event.Name)
	assert.Equal(t, trace.KindDB, event.Kind)
	assert.Equal(t, "SELECT * FROM users WHERE id = $1", event.Fields["db.query"])
	assert.Equal(t, []interface{}{1}, event.Fields["db.query_args"])
	assert.GreaterOrEqual(t, event.DurationMs, 0.0)
	assert.NotContains(t, event.Fields, "db.error")
}

func TestExecProducesSpan(t *testing.T) {
	db, mock, sender := instrumentedDB(t)

	mock.ExpectExec(`UPDATE users SET name = \$1`).
		WithArgs("grace").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, db.Exec("UPDATE users SET name = $1", "grace").Error)

	require.Len(t, sender.events, 1)
	event := sender.events[0]
	assert.Equal(t, "UPDATE users SET name = $1", event.Fields["db.query"])
	assert.Equal(t, int64(2), event.Fields["db.rows_affected"])
}

func TestFailedQueryRecordsError(t *testing.T) {
	db, mock, sender := instrumentedDB(t)

	mock.ExpectQuery(`SELECT doesnotexist`).
		WillReturnError(errors.New(`column "doesnotexist" does not exist`))

	var u user
	err := db.Raw("SELECT doesnotexist").Scan(&u).Error
	require.Error(t, err)

	require.Len(t, sender.events, 1)
	event := sender.events[0]
	assert.Equal(t, "SELECT doesnotexist", event.Fields["db.query"])
	assert.Contains(t, event.Fields["db.error"], "does not exist")
}

func TestWithoutQueryArgs(t *testing.T) {
	db, mock, sender := instrumentedDB(t, WithoutQueryArgs())

	mock.ExpectQuery(`SELECT \* FROM users WHERE id = \$1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	var u user
	require.NoError(t, db.Raw("SELECT * FROM users WHERE id = $1", 1).Scan(&u).Error)

	require.Len(t, sender.events, 1)
	assert.NotContains(t, sender.events[0].Fields, "db.query_args")
}

func TestMaxQueryLength(t *testing.T) {
	db, mock, sender := instrumentedDB(t, WithMaxQueryLength(8))

	mock.ExpectExec(`DELETE FROM users`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, db.Exec("DELETE FROM users").Error)

	require.Len(t, sender.events, 1)
	assert.Equal(t, "DELETE F", sender.events[0].Fields["db.query"])
}

func TestOverlappingQueryEmitsSingleSpan(t *testing.T) {
	db, _ := openMockDB(t)
	sender := &recordingSender{}
	p := NewPlugin(WithClient(trace.NewClient("test-dataset", sender))).(tracePlugin)

	tx := db.Raw("SELECT 1")

	// A second before-event on the same statement must not open
	// another span; the guard warns and keeps the first one.
	p.before(tx)
	p.before(tx)
	p.after(tx)

	require.Len(t, sender.events, 1)
	assert.Equal(t, "SELECT 1", sender.events[0].Fields["db.query"])

	// State is cleared after the span finishes; a stray after-event
	// emits nothing.
	p.after(tx)
	assert.Len(t, sender.events, 1)
}

func TestSampleRate(t *testing.T) {
	db, mock, sender := instrumentedDB(t, WithSampleRate(2))

	for i := 0; i < 4; i++ {
		mock.ExpectExec(`DELETE FROM users`).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, db.Exec("DELETE FROM users").Error)
	}

	assert.Len(t, sender.events, 2)
}

package gormtrace

import (
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatQueryArgsPositional(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	args := formatQueryArgs([]interface{}{"string", 123, ts})

	assert.Equal(t, []interface{}{"string", 123, "2024-03-01T12:30:00Z"}, args)
}

func TestFormatQueryArgsNamed(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	args := formatQueryArgs([]interface{}{
		sql.Named("foo", "string"),
		sql.Named("bar", 123),
		sql.Named("baz", ts),
	})

	assert.Equal(t, []interface{}{
		"foo=string",
		"bar=123",
		"baz=2024-03-01T12:30:00Z",
	}, args)
}

func TestFormatQueryArgsDriverNamedValues(t *testing.T) {
	args := formatQueryArgs([]interface{}{
		driver.NamedValue{Name: "foo", Value: "string"},
		driver.NamedValue{Ordinal: 1, Value: int64(42)},
	})

	assert.Equal(t, []interface{}{"foo=string", int64(42)}, args)
}

func TestFormatQueryArgsEmpty(t *testing.T) {
	assert.Equal(t, []interface{}{}, formatQueryArgs(nil))
}

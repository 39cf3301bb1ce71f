package trace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSpanFields(t *testing.T) {
	span := NewSpan("sql_query", KindDB)
	span.AddField("db.query", "SELECT 1")
	span.AddFields(map[string]interface{}{
		"db.rows_affected": int64(3),
	})

	assert.Equal(t, "sql_query", span.Name())
	assert.Equal(t, KindDB, span.Kind())
	assert.Equal(t, "SELECT 1", span.Field("db.query"))
	assert.Equal(t, int64(3), span.Field("db.rows_affected"))
	assert.Nil(t, span.Field("db.error"))
}

func TestSpanFinish(t *testing.T) {
	span := NewSpan("sql_query", KindDB)
	time.Sleep(10 * time.Millisecond)
	span.Finish()

	assert.True(t, span.Finished())
	assert.GreaterOrEqual(t, span.DurationMs(), 10.0)
	assert.Equal(t, span.DurationMs(), span.Field("db.duration"))
}

func TestSpanFinishIsIdempotent(t *testing.T) {
	span := NewSpan("sql_query", KindDB)
	span.Finish()
	first := span.DurationMs()

	time.Sleep(5 * time.Millisecond)
	span.Finish()

	assert.Equal(t, first, span.DurationMs())
}

func TestSpanFieldsReturnsCopy(t *testing.T) {
	span := NewSpan("sql_query", KindDB)
	span.AddField("db.query", "SELECT 1")

	fields := span.Fields()
	fields["db.query"] = "mutated"

	assert.Equal(t, "SELECT 1", span.Field("db.query"))
}

func TestEventize(t *testing.T) {
	span := NewSpan("gorm_query", KindDB)
	span.AddField("db.query", "SELECT 1")
	span.Finish()

	event := span.Eventize("production")

	assert.Equal(t, "production", event.Dataset)
	assert.Equal(t, "gorm_query", event.Name)
	assert.Equal(t, KindDB, event.Kind)
	assert.Equal(t, span.DurationMs(), event.DurationMs)
	assert.Equal(t, "SELECT 1", event.Fields["db.query"])
}

func TestFormatQueryValue(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	assert.Equal(t, "string", FormatQueryValue("string"))
	assert.Equal(t, 123, FormatQueryValue(123))
	assert.Equal(t, "2024-03-01T12:30:00Z", FormatQueryValue(ts))
	assert.Equal(t, "bytes", FormatQueryValue([]byte("bytes")))
}

func TestFormatNamedQueryValue(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	assert.Equal(t, "foo=string", FormatNamedQueryValue("foo", "string"))
	assert.Equal(t, "bar=123", FormatNamedQueryValue("bar", 123))
	assert.Equal(t, "baz=2024-03-01T12:30:00Z", FormatNamedQueryValue("baz", ts))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "db", KindDB.String())
	assert.Equal(t, "http", KindHTTP.String())

	kind, err := KindString("db")
	assert.NoError(t, err)
	assert.Equal(t, KindDB, kind)

	_, err = KindString("bogus")
	assert.Error(t, err)
}

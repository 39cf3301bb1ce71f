package sqltrace

import (
	"database/sql"
	"database/sql/driver"
	"log"

	"github.com/lib/pq"

	"github.com/sqlbee/sqlbee/pkg/config"
	"github.com/sqlbee/sqlbee/pkg/trace"
)

// SpanName is the name given to every span emitted by this package.
const SpanName = "sql_query"

type options struct {
	// The client to send spans with; nil means the default client
	client *trace.Client

	captureArgs    bool
	maxQueryLength int
}

// ApplyOption applies a given set of supplied options
type ApplyOption func(o *options)

// WithClient sends spans with the supplied client instead of the
// package default.
func WithClient(client *trace.Client) ApplyOption {
	return func(o *options) {
		o.client = client
	}
}

// WithoutQueryArgs disables capture of statement parameters.
func WithoutQueryArgs() ApplyOption {
	return func(o *options) {
		o.captureArgs = false
	}
}

// WithMaxQueryLength truncates db.query beyond n bytes.
func WithMaxQueryLength(n int) ApplyOption {
	return func(o *options) {
		o.maxQueryLength = n
	}
}

// FromConfig derives wrapper options from a sqlbee configuration.
func FromConfig(cfg *config.Config) []ApplyOption {
	var opts []ApplyOption
	if !cfg.CaptureQueryArgs {
		opts = append(opts, WithoutQueryArgs())
	}
	if cfg.MaxQueryLength > 0 {
		opts = append(opts, WithMaxQueryLength(cfg.MaxQueryLength))
	}
	return opts
}

func defaultOptions() *options {
	return &options{
		captureArgs: true,
	}
}

func init() {
	sql.Register("sqlbee-postgres", Wrap(&pq.Driver{}))
}

// Driver wraps another database/sql driver and emits a span per
// executed statement.
type Driver struct {
	parent driver.Driver
	opt    *options
}

// Wrap returns an instrumented copy of the parent driver.
func Wrap(parent driver.Driver, opts ...ApplyOption) driver.Driver {
	dst := defaultOptions()

	for _, apply := range opts {
		apply(dst)
	}

	return &Driver{
		parent: parent,
		opt:    dst,
	}
}

// Register wraps the parent driver and registers it under name.
func Register(name string, parent driver.Driver, opts ...ApplyOption) {
	sql.Register(name, Wrap(parent, opts...))
}

func (d *Driver) Open(dsn string) (driver.Conn, error) {
	parent, err := d.parent.Open(dsn)
	if err != nil {
		return nil, err
	}
	return &conn{parent: parent, opt: d.opt}, nil
}

// startSpan opens a span for a statement about to execute.
func (o *options) startSpan(query string, args []driver.NamedValue) *trace.Span {
	span := trace.NewSpan(SpanName, trace.KindDB)

	if o.maxQueryLength > 0 && len(query) > o.maxQueryLength {
		query = query[:o.maxQueryLength]
	}
	span.AddField("db.query", query)
	if o.captureArgs {
		span.AddField("db.query_args", formatNamedValues(args))
	}

	return span
}

// finish closes the span, records the outcome and sends it.
func (o *options) finish(span *trace.Span, res driver.Result, err error) {
	if err != nil {
		span.AddField("db.error", err.Error())
	}
	if res != nil {
		if rows, rerr := res.RowsAffected(); rerr == nil {
			span.AddField("db.rows_affected", rows)
		}
		if id, ierr := res.LastInsertId(); ierr == nil {
			span.AddField("db.last_insert_id", id)
		}
	}
	span.Finish()
	o.send(span)
}

func (o *options) send(span *trace.Span) {
	if o.client != nil {
		if err := o.client.SendSpan(span); err != nil {
			log.Printf("sqlbee: failed to send span: %v", err)
		}
		return
	}
	trace.Send(span)
}

// formatNamedValues renders driver arguments for the db.query_args field.
func formatNamedValues(args []driver.NamedValue) []interface{} {
	out := make([]interface{}, 0, len(args))
	for _, arg := range args {
		if arg.Name != "" {
			out = append(out, trace.FormatNamedQueryValue(arg.Name, arg.Value))
		} else {
			out = append(out, trace.FormatQueryValue(arg.Value))
		}
	}
	return out
}

package gormtrace

import (
	"log"
	"sync/atomic"

	"gorm.io/gorm"

	"github.com/sqlbee/sqlbee/pkg/config"
	"github.com/sqlbee/sqlbee/pkg/trace"
)

// SpanName is the name given to every span emitted by this plugin.
const SpanName = "gorm_query"

// stateKey carries the open span on the statement instance.
const stateKey = "sqlbee:span"

type options struct {
	// The client to send spans with; nil means the default client
	client *trace.Client

	captureArgs    bool
	maxQueryLength int
	sampleRate     int
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

// WithSampleRate sends one span in n.
func WithSampleRate(n int) ApplyOption {
	return func(o *options) {
		o.sampleRate = n
	}
}

// FromConfig derives plugin options from a sqlbee configuration.
func FromConfig(cfg *config.Config) []ApplyOption {
	var opts []ApplyOption
	if !cfg.CaptureQueryArgs {
		opts = append(opts, WithoutQueryArgs())
	}
	if cfg.MaxQueryLength > 0 {
		opts = append(opts, WithMaxQueryLength(cfg.MaxQueryLength))
	}
	if cfg.SampleRate > 1 {
		opts = append(opts, WithSampleRate(cfg.SampleRate))
	}
	return opts
}

func defaultOptions() *options {
	return &options{
		captureArgs: true,
		sampleRate:  1,
	}
}

type tracePlugin struct {
	opt     *options
	counter *atomic.Int64
}

// NewPlugin constructs the instrumentation plugin. It emits one span per
// executed statement on every GORM operation.
func NewPlugin(opts ...ApplyOption) gorm.Plugin {
	dst := defaultOptions()

	for _, apply := range opts {
		apply(dst)
	}

	return tracePlugin{
		opt:     dst,
		counter: new(atomic.Int64),
	}
}

func (p tracePlugin) Name() string {
	return "sqlbee"
}

func (p tracePlugin) Initialize(db *gorm.DB) (err error) {
	// Registering twice would replace the callbacks under a gorm
	// warning; install is idempotent instead.
	if db.Callback().Create().Get("sqlbee:before_create") != nil {
		return nil
	}

	db.Callback().Create().Before("gorm:create").Register("sqlbee:before_create", p.before)
	db.Callback().Create().After("gorm:create").Register("sqlbee:after_create", p.after)
	db.Callback().Query().Before("gorm:query").Register("sqlbee:before_query", p.before)
	db.Callback().Query().After("gorm:query").Register("sqlbee:after_query", p.after)
	db.Callback().Update().Before("gorm:update").Register("sqlbee:before_update", p.before)
	db.Callback().Update().After("gorm:update").Register("sqlbee:after_update", p.after)
	db.Callback().Delete().Before("gorm:delete").Register("sqlbee:before_delete", p.before)
	db.Callback().Delete().After("gorm:delete").Register("sqlbee:after_delete", p.after)
	db.Callback().Row().Before("gorm:row").Register("sqlbee:before_row", p.before)
	db.Callback().Row().After("gorm:row").Register("sqlbee:after_row", p.after)
	db.Callback().Raw().Before("gorm:raw").Register("sqlbee:before_raw", p.before)
	db.Callback().Raw().After("gorm:raw").Register("sqlbee:after_raw", p.after)

	return
}

// Uninstall removes all callbacks registered by the plugin.
func Uninstall(db *gorm.DB) error {
	if db.Callback().Create().Get("sqlbee:before_create") == nil {
		return nil
	}

	_ = db.Callback().Create().Remove("sqlbee:before_create")
	_ = db.Callback().Create().Remove("sqlbee:after_create")
	_ = db.Callback().Query().Remove("sqlbee:before_query")
	_ = db.Callback().Query().Remove("sqlbee:after_query")
	_ = db.Callback().Update().Remove("sqlbee:before_update")
	_ = db.Callback().Update().Remove("sqlbee:after_update")
	_ = db.Callback().Delete().Remove("sqlbee:before_delete")
	_ = db.Callback().Delete().Remove("sqlbee:after_delete")
	_ = db.Callback().Row().Remove("sqlbee:before_row")
	_ = db.Callback().Row().Remove("sqlbee:after_row")
	_ = db.Callback().Raw().Remove("sqlbee:before_raw")
	_ = db.Callback().Raw().Remove("sqlbee:after_raw")

	return nil
}

func (p tracePlugin) before(db *gorm.DB) {
	if v, ok := db.InstanceGet(stateKey); ok && v != nil {
		log.Printf("sqlbee: overlapping query events, skipping span")
		return
	}
	db.InstanceSet(stateKey, trace.NewSpan(SpanName, trace.KindDB))
}

func (p tracePlugin) after(db *gorm.DB) {
	v, ok := db.InstanceGet(stateKey)
	if !ok || v == nil {
		return
	}
	span, ok := v.(*trace.Span)
	if !ok {
		return
	}
	db.InstanceSet(stateKey, nil)

	query := db.Statement.SQL.String()
	if p.opt.maxQueryLength > 0 && len(query) > p.opt.maxQueryLength {
		query = query[:p.opt.maxQueryLength]
	}
	span.AddField("db.query", query)
	if p.opt.captureArgs {
		span.AddField("db.query_args", formatQueryArgs(db.Statement.Vars))
	}
	span.AddField("db.rows_affected", db.RowsAffected)
	if db.Error != nil {
		span.AddField("db.error", db.Error.Error())
	}
	span.Finish()

	if !p.sampled() {
		return
	}
	p.send(span)
}

// sampled reports whether this span falls within the sample rate.
func (p tracePlugin) sampled() bool {
	rate := p.opt.sampleRate
	if rate <= 1 {
		return true
	}
	return p.counter.Add(1)%int64(rate) == 1
}

func (p tracePlugin) send(span *trace.Span) {
	if p.opt.client != nil {
		if err := p.opt.client.SendSpan(span); err != nil {
			log.Printf("sqlbee: failed to send span: %v", err)
		}
		return
	}
	trace.Send(span)
}

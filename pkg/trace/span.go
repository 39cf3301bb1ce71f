package trace

import (
	"fmt"
	"sync"
	"time"
)

// Span is a single traced operation. A span is started by NewSpan and
// closed by Finish; fields may be added at any point in between.
type Span struct {
	name string
	kind Kind

	mu       sync.Mutex
	fields   map[string]interface{}
	start    time.Time
	duration time.Duration
	finished bool
}

// NewSpan starts a new span. The start time is recorded immediately.
func NewSpan(name string, kind Kind) *Span {
	return &Span{
		name:   name,
		kind:   kind,
		fields: map[string]interface{}{},
		start:  time.Now(),
	}
}

// Name returns the span name.
func (s *Span) Name() string {
	return s.name
}

// Kind returns the span kind.
func (s *Span) Kind() Kind {
	return s.kind
}

// Start returns the time the span was started.
func (s *Span) Start() time.Time {
	return s.start
}

// AddField sets a single field on the span.
func (s *Span) AddField(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields[key] = value
}

// AddFields sets multiple fields on the span.
func (s *Span) AddFields(fields map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range fields {
		s.fields[k] = v
	}
}

// Field returns the value of a field, or nil if it was never set.
func (s *Span) Field(key string) interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fields[key]
}

// Fields returns a copy of the span's field map.
func (s *Span) Fields() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]interface{}, len(s.fields))
	for k, v := range s.fields {
		out[k] = v
	}
	return out
}

// Finish closes the span and records db.duration in milliseconds.
// Finish is idempotent; only the first call takes the duration.
func (s *Span) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.finished = true
	s.duration = time.Since(s.start)
	s.fields["db.duration"] = s.durationMsLocked()
}

// Finished reports whether Finish has been called.
func (s *Span) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// DurationMs returns the span duration in milliseconds. It is zero until
// the span is finished.
func (s *Span) DurationMs() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.durationMsLocked()
}

func (s *Span) durationMsLocked() float64 {
	return float64(s.duration) / float64(time.Millisecond)
}

// Event is the wire form of a finished span.
type Event struct {
	Dataset    string                 `json:"dataset"`
	Name       string                 `json:"name"`
	Kind       Kind                   `json:"kind"`
	Timestamp  time.Time              `json:"timestamp"`
	DurationMs float64                `json:"duration_ms"`
	Fields     map[string]interface{} `json:"fields"`
}

// Eventize converts a finished span into its wire form.
func (s *Span) Eventize(dataset string) Event {
	return Event{
		Dataset:    dataset,
		Name:       s.name,
		Kind:       s.kind,
		Timestamp:  s.start.UTC(),
		DurationMs: s.DurationMs(),
		Fields:     s.Fields(),
	}
}

// FormatQueryValue renders a positional query parameter for the
// db.query_args field. Times are rendered as RFC3339; byte slices as
// strings; everything else passes through unchanged.
func FormatQueryValue(value interface{}) interface{} {
	switch v := value.(type) {
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case []byte:
		return string(v)
	default:
		return value
	}
}

// FormatNamedQueryValue renders a named query parameter as "name=value".
func FormatNamedQueryValue(name string, value interface{}) string {
	return fmt.Sprintf("%s=%v", name, FormatQueryValue(value))
}

package trace

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
)

// Client hands finished spans to a Sender, tagged with a dataset name.
type Client struct {
	dataset string
	sender  Sender
}

// NewClient creates a client that sends spans to the given sender.
func NewClient(dataset string, sender Sender) *Client {
	return &Client{
		dataset: dataset,
		sender:  sender,
	}
}

// Dataset returns the dataset spans are tagged with.
func (c *Client) Dataset() string {
	return c.dataset
}

// SendSpan finishes the span if needed and hands it to the sender.
func (c *Client) SendSpan(span *Span) error {
	if span == nil {
		return nil
	}
	if !span.Finished() {
		span.Finish()
	}
	return c.sender.Send(span.Eventize(c.dataset))
}

// DefaultDataset is used when no dataset is configured.
const DefaultDataset = "sqlbee"

// Default client instance, writing JSON lines to stdout.
var (
	defaultClient   = NewClient(DefaultDataset, NewWriterSender(os.Stdout))
	defaultClientMu sync.RWMutex
)

// Tracing enabled state - defaults to true.
// Can be disabled via SQLBEE_ENABLED=false.
var (
	traceEnabled     atomic.Bool
	traceEnabledOnce sync.Once
)

// IsEnabled returns whether span sending is enabled.
func IsEnabled() bool {
	traceEnabledOnce.Do(func() {
		enabled := true
		if env := os.Getenv("SQLBEE_ENABLED"); env != "" {
			enabled = env != "false" && env != "0" && env != "no"
		}
		traceEnabled.Store(enabled)
	})
	return traceEnabled.Load()
}

// SetEnabled allows programmatic control of span sending. It takes
// precedence over SQLBEE_ENABLED and is safe to call concurrently
// with Send.
func SetEnabled(enabled bool) {
	traceEnabledOnce.Do(func() {})
	traceEnabled.Store(enabled)
}

// SetDefault replaces the default client. Useful for tests and for wiring
// a configured client at startup.
func SetDefault(client *Client) {
	defaultClientMu.Lock()
	defaultClient = client
	defaultClientMu.Unlock()
}

// Default returns the default client.
func Default() *Client {
	defaultClientMu.RLock()
	defer defaultClientMu.RUnlock()
	return defaultClient
}

// Send hands a span to the default client (if tracing is enabled).
// Send failures are reported on stderr, never to the caller: tracing
// must not fail the instrumented query.
func Send(span *Span) {
	if !IsEnabled() {
		return
	}
	if err := Default().SendSpan(span); err != nil {
		fmt.Fprintf(os.Stderr, "sqlbee: failed to send span: %v\n", err)
	}
}

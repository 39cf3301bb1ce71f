package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Sender delivers finished spans somewhere: a writer, a collector, a
// database. Senders must be safe for concurrent use.
type Sender interface {
	Send(event Event) error
}

// WriterSender writes spans as JSON lines.
type WriterSender struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewWriterSender creates a sender that writes JSON lines to w.
func NewWriterSender(w io.Writer) *WriterSender {
	return &WriterSender{writer: w}
}

func (s *WriterSender) Send(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.writer.Write(append(data, '\n'))
	return err
}

// APIKeyHeader carries the team key on collector requests.
const APIKeyHeader = "X-Sqlbee-Team"

// HTTPSender posts spans to a sqlbee collector. Events are buffered and
// flushed as a batch once BatchSize is reached; Flush sends the remainder.
type HTTPSender struct {
	// BatchSize is the number of events that triggers an automatic
	// flush. Defaults to 50.
	BatchSize int

	baseURL string
	apiKey  string
	client  *http.Client

	mu      sync.Mutex
	pending []Event
}

// NewHTTPSender creates a sender that posts batches to the collector at
// baseURL, authenticating with apiKey.
func NewHTTPSender(baseURL string, apiKey string) *HTTPSender {
	return &HTTPSender{
		BatchSize: 50,
		baseURL:   baseURL,
		apiKey:    apiKey,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSender) Send(event Event) error {
	s.mu.Lock()
	s.pending = append(s.pending, event)
	flush := len(s.pending) >= s.batchSize()
	s.mu.Unlock()

	if flush {
		return s.Flush()
	}
	return nil
}

// maxPending bounds the buffer when the collector is unreachable;
// beyond it the oldest events are dropped.
const maxPending = 1000

// Flush posts all buffered events to the collector. Events are grouped
// by dataset, one batch request per dataset. A batch that fails to post
// returns to the buffer for a later flush.
func (s *HTTPSender) Flush() error {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	byDataset := map[string][]Event{}
	for _, event := range pending {
		byDataset[event.Dataset] = append(byDataset[event.Dataset], event)
	}

	var failed []Event
	var firstErr error
	for dataset, events := range byDataset {
		if err := s.postBatch(dataset, events); err != nil {
			failed = append(failed, events...)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if len(failed) > 0 {
		s.mu.Lock()
		s.pending = append(failed, s.pending...)
		if len(s.pending) > maxPending {
			s.pending = s.pending[len(s.pending)-maxPending:]
		}
		s.mu.Unlock()
	}
	return firstErr
}

func (s *HTTPSender) postBatch(dataset string, events []Event) error {
	body, err := json.Marshal(events)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/1/batch/%s", s.baseURL, url.PathEscape(dataset))
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(APIKeyHeader, s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post batch to collector: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("collector rejected batch: %s", resp.Status)
	}
	return nil
}

func (s *HTTPSender) batchSize() int {
	if s.BatchSize > 0 {
		return s.BatchSize
	}
	return 50
}

// MultiSender fans a span out to several senders. The first error wins,
// but every sender still sees the event.
type MultiSender struct {
	senders []Sender
}

// NewMultiSender creates a sender that delivers to all of the given senders.
func NewMultiSender(senders ...Sender) *MultiSender {
	return &MultiSender{senders: senders}
}

func (s *MultiSender) Send(event Event) error {
	var firstErr error
	for _, sender := range s.senders {
		if err := sender.Send(event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cucumber/godog"

	"github.com/sqlbee/sqlbee/pkg/trace"
)

func (s *StepsContext) registerCollectorSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I post a span to dataset "([^"]*)" without a team key$`, s.iPostASpanWithoutATeamKey)
	sc.Step(`^I post a batch of (\d+) spans to dataset "([^"]*)"$`, s.iPostABatchOfSpans)
	sc.Step(`^I request the health endpoint$`, s.iRequestTheHealthEndpoint)
	sc.Step(`^I list the spans for dataset "([^"]*)"$`, s.iListTheSpansForDataset)
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^the response should list (\d+) spans$`, s.theResponseShouldListSpans)
	sc.Step(`^the response body should contain "([^"]*)"$`, s.theResponseBodyShouldContain)
}

func (s *StepsContext) doRequest(method, path, body string, withKey bool) error {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, s.tc.ServerURL+path, reader)
	if err != nil {
		return err
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if withKey {
		req.Header.Set(trace.APIKeyHeader, teamKey)
	}

	resp, err := s.tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	s.lastStatus = resp.StatusCode
	s.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (s *StepsContext) iPostASpanWithoutATeamKey(dataset string) error {
	body := `{"name": "sql_query", "kind": "db", "timestamp": "2026-01-01T00:00:00Z", "fields": {}}`
	return s.doRequest("POST", "/1/events/"+dataset, body, false)
}

func (s *StepsContext) iPostABatchOfSpans(count int, dataset string) error {
	var events []map[string]interface{}
	for i := 0; i < count; i++ {
		events = append(events, map[string]interface{}{
			"name":        "sql_query",
			"kind":        "db",
			"timestamp":   fmt.Sprintf("2026-01-01T00:00:%02dZ", i),
			"duration_ms": 1.5,
			"fields":      map[string]interface{}{"db.query": fmt.Sprintf("SELECT %d", i)},
		})
	}

	body, err := json.Marshal(events)
	if err != nil {
		return err
	}
	return s.doRequest("POST", "/1/batch/"+dataset, string(body), true)
}

func (s *StepsContext) iRequestTheHealthEndpoint() error {
	return s.doRequest("GET", "/health", "", false)
}

func (s *StepsContext) iListTheSpansForDataset(dataset string) error {
	return s.doRequest("GET", "/1/spans/"+dataset, "", true)
}

func (s *StepsContext) theResponseStatusShouldBe(status int) error {
	if s.lastStatus != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, s.lastStatus, s.lastBody)
	}
	return nil
}

func (s *StepsContext) theResponseShouldListSpans(count int) error {
	var spans []json.RawMessage
	if err := json.Unmarshal(s.lastBody, &spans); err != nil {
		return fmt.Errorf("response is not a span list: %w", err)
	}
	if len(spans) != count {
		return fmt.Errorf("expected %d spans, got %d", count, len(spans))
	}
	return nil
}

func (s *StepsContext) theResponseBodyShouldContain(substr string) error {
	if !strings.Contains(string(s.lastBody), substr) {
		return fmt.Errorf("response body %q does not contain %q", s.lastBody, substr)
	}
	return nil
}

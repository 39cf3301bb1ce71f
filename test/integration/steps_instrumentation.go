package integration

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cucumber/godog"

	"github.com/sqlbee/sqlbee/pkg/store"
)

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc *TestContext

	spans      []store.StoredSpan
	lastStatus int
	lastBody   []byte
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{tc: tc}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	// Background steps
	sc.Step(`^the span store is empty$`, s.theSpanStoreIsEmpty)

	// Instrumentation steps
	sc.Step(`^I run the query "([^"]*)"$`, s.iRunTheQuery)
	sc.Step(`^I run the query "([^"]*)" expecting an error$`, s.iRunTheQueryExpectingAnError)
	sc.Step(`^I execute "([^"]*)" with argument "([^"]*)" over database/sql$`, s.iExecuteOverDatabaseSQL)
	sc.Step(`^I run (\d+) queries concurrently$`, s.iRunQueriesConcurrently)

	// Span assertion steps
	sc.Step(`^(\d+) "([^"]*)" spans? should be stored$`, s.spansShouldBeStored)
	sc.Step(`^the span field "([^"]*)" should contain "([^"]*)"$`, s.theSpanFieldShouldContain)
	sc.Step(`^every span should have a positive duration$`, s.everySpanShouldHaveAPositiveDuration)

	s.registerCollectorSteps(sc)
}

func (s *StepsContext) theSpanStoreIsEmpty() error {
	s.spans = nil
	return s.tc.ClearSpans()
}

func (s *StepsContext) iRunTheQuery(query string) error {
	var result []map[string]interface{}
	if err := s.tc.DB.Raw(query).Scan(&result).Error; err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	return nil
}

func (s *StepsContext) iRunTheQueryExpectingAnError(query string) error {
	var result []map[string]interface{}
	if err := s.tc.DB.Raw(query).Scan(&result).Error; err == nil {
		return fmt.Errorf("expected query %q to fail", query)
	}
	return nil
}

func (s *StepsContext) iExecuteOverDatabaseSQL(query, arg string) error {
	rows, err := s.tc.SQLDB.Query(query, arg)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	return rows.Close()
}

func (s *StepsContext) iRunQueriesConcurrently(count int) error {
	var wg sync.WaitGroup
	errs := make(chan error, count)

	for i := 0; i < count; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			// Each query sleeps a different amount so durations differ
			var result []map[string]interface{}
			query := fmt.Sprintf("SELECT pg_sleep(0.0%d)", n+1)
			if err := s.tc.DB.Raw(query).Scan(&result).Error; err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		return err
	}
	return nil
}

func (s *StepsContext) spansShouldBeStored(count int, name string) error {
	spans, err := s.tc.Store.List(testDataset, 1000)
	if err != nil {
		return err
	}

	var matched []store.StoredSpan
	for _, span := range spans {
		if span.Name == name {
			matched = append(matched, span)
		}
	}

	if len(matched) != count {
		return fmt.Errorf("expected %d %q spans, found %d", count, name, len(matched))
	}

	s.spans = matched
	return nil
}

func (s *StepsContext) theSpanFieldShouldContain(field, substr string) error {
	if len(s.spans) == 0 {
		return fmt.Errorf("no spans matched by a previous step")
	}

	for _, span := range s.spans {
		value := fmt.Sprintf("%v", span.Fields[field])
		if strings.Contains(value, substr) {
			return nil
		}
	}
	return fmt.Errorf("no span has field %q containing %q", field, substr)
}

func (s *StepsContext) everySpanShouldHaveAPositiveDuration() error {
	if len(s.spans) == 0 {
		return fmt.Errorf("no spans matched by a previous step")
	}

	for _, span := range s.spans {
		if span.DurationMs <= 0 {
			return fmt.Errorf("span %d has duration %f", span.ID, span.DurationMs)
		}
	}
	return nil
}

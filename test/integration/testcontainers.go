package integration

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	sqlbeedb "github.com/sqlbee/sqlbee/db"
	"github.com/sqlbee/sqlbee/pkg/config"
	"github.com/sqlbee/sqlbee/pkg/instrument/gormtrace"
	"github.com/sqlbee/sqlbee/pkg/instrument/sqltrace"
	"github.com/sqlbee/sqlbee/pkg/server"
	"github.com/sqlbee/sqlbee/pkg/server/endpoints"
	"github.com/sqlbee/sqlbee/pkg/store"
	"github.com/sqlbee/sqlbee/pkg/trace"
)

const (
	teamKey     = "integration-team-key"
	testDataset = "integration"
	serverPort  = "18080"
)

// TestContext holds all the resources needed for integration tests
type TestContext struct {
	DB          *gorm.DB // instrumented via the gormtrace plugin
	SQLDB       *sql.DB  // instrumented via the sqltrace driver
	RawDB       *sql.DB  // uninstrumented, for assertions
	Store       *store.Store
	Container   testcontainers.Container
	Server      *server.Server
	ServerURL   string
	DatabaseURL string
	Sender      *trace.HTTPSender
	Client      *trace.Client
	HTTPClient  *http.Client
}

// NewTestContext starts a PostgreSQL testcontainer, runs the migrations,
// starts an in-process collector, and opens two instrumented database
// connections that report to it.
func NewTestContext(ctx context.Context) (*TestContext, error) {
	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("sqlbee_test"),
		tcpostgres.WithUsername("sqlbee"),
		tcpostgres.WithPassword("sqlbee"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}
	connStr := fmt.Sprintf("postgres://sqlbee:sqlbee@%s:%s/sqlbee_test?sslmode=disable", host, port.Port())

	if err := runMigrations(connStr); err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	rawDB, err := sql.Open("postgres", connStr)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	spanStore := store.NewStoreWithDB(rawDB)

	cfg := &config.Config{
		Dataset:          testDataset,
		APIKey:           teamKey,
		SampleRate:       1,
		CaptureQueryArgs: true,
		SpanListLimitMax: 1000,
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%s", serverPort)
	s := server.NewServer(spanStore, cfg, "127.0.0.1", serverPort)
	endpoints.RegisterAll(s)
	go func() { _ = s.Start() }()

	if err := waitForCollector(serverURL, 30*time.Second); err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("collector failed to become ready: %w", err)
	}

	// BatchSize 1 so every span reaches the collector synchronously
	sender := trace.NewHTTPSender(serverURL, teamKey)
	sender.BatchSize = 1
	client := trace.NewClient(testDataset, sender)

	db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{
		DSN:                  connStr,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Use(gormtrace.NewPlugin(gormtrace.WithClient(client))); err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to install plugin: %w", err)
	}

	sqltrace.Register("sqlbee-postgres-integration", &pq.Driver{}, sqltrace.WithClient(client))
	sqlDB, err := sql.Open("sqlbee-postgres-integration", connStr)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to open instrumented database: %w", err)
	}

	return &TestContext{
		DB:          db,
		SQLDB:       sqlDB,
		RawDB:       rawDB,
		Store:       spanStore,
		Container:   pgContainer,
		Server:      s,
		ServerURL:   serverURL,
		DatabaseURL: connStr,
		Sender:      sender,
		Client:      client,
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// runMigrations applies the embedded migrations to the test database
func runMigrations(dbURL string) error {
	migrationsFS, err := fs.Sub(sqlbeedb.Migrations, "migrations")
	if err != nil {
		return err
	}
	d, err := iofs.New(migrationsFS, ".")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", d, dbURL)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// waitForCollector polls the collector until it responds or times out
func waitForCollector(serverURL string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(serverURL + "/")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("collector did not become ready within %v", timeout)
}

// ClearSpans empties the span store between scenarios
func (tc *TestContext) ClearSpans() error {
	_, err := tc.RawDB.Exec("DELETE FROM spans")
	return err
}

// Close cleans up all test resources
func (tc *TestContext) Close(ctx context.Context) {
	if tc.Server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_ = tc.Server.Shutdown(shutdownCtx)
		cancel()
	}
	if tc.SQLDB != nil {
		_ = tc.SQLDB.Close()
	}
	if tc.RawDB != nil {
		_ = tc.RawDB.Close()
	}
	if tc.Container != nil {
		_ = tc.Container.Terminate(ctx)
	}
}

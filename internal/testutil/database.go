package testutil

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dimitrije/boltstax-api/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// tables in the order TRUNCATE lists them. CASCADE takes care of the
// foreign keys, the order only keeps the statement readable.
var tables = []string{
	"notifications",
	"compliance_reports",
	"compliance_records",
	"response_drafts",
	"questionnaire_responses",
	"company_products",
	"product_sheets",
	"template_versions",
	"questionnaire_templates",
	"questions",
	"question_sections",
	"question_tags",
	"supplier_answers",
	"invites",
	"refresh_tokens",
	"users",
	"companies",
}

// TestDB is a migrated database for integration tests. Container is nil when
// TEST_DATABASE_URL pointed the tests at an existing server.
type TestDB struct {
	DB        *database.DB
	Container testcontainers.Container
}

// SetupTestDB connects to TEST_DATABASE_URL when it is set and otherwise
// starts a throwaway PostgreSQL container. Everything is torn down with t.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test needs PostgreSQL")
	}
	ctx := context.Background()

	tdb := &TestDB{}
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		tdb.Container, dsn = startPostgres(t, ctx)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	tdb.DB = &database.DB{Pool: pool}
	if err := tdb.DB.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return tdb
}

func startPostgres(t *testing.T, ctx context.Context) (testcontainers.Container, string) {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "boltstax_test",
			},
			// the entrypoint restarts the server once after init
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.PortEndpoint(ctx, "5432/tcp", "postgres")
	if err != nil {
		t.Fatalf("failed to resolve container endpoint: %v", err)
	}
	return container, "postgres://test:test@" + strings.TrimPrefix(endpoint, "postgres://") + "/boltstax_test?sslmode=disable"
}

// CleanTables empties every table so subtests start from nothing.
func (tdb *TestDB) CleanTables(t *testing.T) {
	t.Helper()
	_, err := tdb.DB.Pool.Exec(context.Background(), "TRUNCATE TABLE "+strings.Join(tables, ", ")+" CASCADE")
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

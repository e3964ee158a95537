package testutil

import (
	"context"
	"fmt"
	"os/exec"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/nkiryanov/seatpass/internal/db"
)

// Tables with seatpass data, children first
var seatpassTables = []string{"password_reset_tokens", "seats", "subscriptions", "users"}

type PostgresContainer struct {
	DSN       string
	Pool      *pgxpool.Pool
	Terminate func()
}

// StartPostgresContainer runs migrated postgres in docker or fails the test
// Call Terminate when the test finishes
func StartPostgresContainer(t *testing.T) PostgresContainer {
	t.Helper()

	out, err := exec.Command("docker", "info", "--format", "{{.ServerVersion}}").CombinedOutput()
	if err != nil {
		t.Fatalf("docker is not available. Err: %s", out)
	}

	port, err := RandomPort()
	require.NoError(t, err, "can't pick port for postgres")

	container, err := postgres.Run(t.Context(),
		"postgres:17-alpine",
		postgres.WithDatabase("seatpass-test"),
		postgres.WithUsername("seatpass"),
		postgres.WithPassword("pwd"),
		postgres.BasicWaitStrategies(),
		testcontainers.CustomizeRequestOption(func(req *testcontainers.GenericContainerRequest) error {
			req.ExposedPorts = []string{fmt.Sprintf("%d:5432", port)}
			return nil
		}),
	)
	require.NoError(t, err, "can't start postgres container")

	dsn, err := container.ConnectionString(t.Context(), "sslmode=disable")
	require.NoError(t, err)
	t.Logf("Postgres started, DSN=%v", dsn)

	pool, err := db.ConnectAndMigrate(t.Context(), dsn)
	require.NoError(t, err, "can't migrate seatpass schema")

	return PostgresContainer{
		DSN:  dsn,
		Pool: pool,
		Terminate: func() {
			pool.Close()
			testcontainers.CleanupContainer(t, container)
		},
	}
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// CleanTables empties seatpass tables when the test finishes
// Use it for tests that commit data outside WithTx
func CleanTables(t *testing.T, conn execer) {
	t.Helper()

	t.Cleanup(func() {
		// t.Context() is already canceled in cleanup
		for _, table := range seatpassTables {
			_, err := conn.Exec(context.Background(), "DELETE FROM "+table)
			require.NoError(t, err, "can't clean %s", table)
		}
	})
}

package common

import (
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var postgres = &sharedContainer{name: "PostgreSQL", port: "5432/tcp"}

// PostgresContainer is a running PostgreSQL test instance.
type PostgresContainer struct {
	host string
	port string
}

// StartPostgres starts a shared PostgreSQL container for the test run.
func StartPostgres(t *testing.T) *PostgresContainer {
	t.Helper()

	postgres.start(t, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "brokeclub",
			"POSTGRES_PASSWORD": "brokeclub",
			"POSTGRES_DB":       "brokeclub",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		).WithDeadline(60 * time.Second),
	})

	return &PostgresContainer{host: postgres.host, port: postgres.mapped}
}

// DSN returns a connection string for the test database.
func (c *PostgresContainer) DSN() string {
	return fmt.Sprintf("postgres://brokeclub:brokeclub@%s:%s/brokeclub?sslmode=disable", c.host, c.port)
}

// Cleanup terminates the container.
func (c *PostgresContainer) Cleanup() {
	postgres.terminate()
}

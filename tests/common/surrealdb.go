package common

import (
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var surreal = &sharedContainer{name: "SurrealDB", port: "8000/tcp"}

// SurrealDBContainer is a running SurrealDB test instance.
type SurrealDBContainer struct {
	host string
	port string
}

// StartSurrealDB starts a shared SurrealDB container for the test run.
func StartSurrealDB(t *testing.T) *SurrealDBContainer {
	t.Helper()

	surreal.start(t, testcontainers.ContainerRequest{
		Image:        "surrealdb/surrealdb:v3.0.0",
		ExposedPorts: []string{"8000/tcp"},
		Cmd:          []string{"start", "--user", "root", "--pass", "root"},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("8000/tcp"),
			wait.ForLog("Started web server"),
		).WithDeadline(60 * time.Second),
	})

	return &SurrealDBContainer{host: surreal.host, port: surreal.mapped}
}

// Address returns the WebSocket RPC address for SurrealDB.
func (c *SurrealDBContainer) Address() string {
	return fmt.Sprintf("ws://%s:%s/rpc", c.host, c.port)
}

// Cleanup terminates the container. Call from TestMain if needed.
func (c *SurrealDBContainer) Cleanup() {
	surreal.terminate()
}

// Package common provides shared test infrastructure
package common

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
)

// sharedContainer starts one container per process and records its
// host and mapped port.
type sharedContainer struct {
	once      sync.Once
	err       error
	name      string
	port      nat.Port
	container testcontainers.Container
	host      string
	mapped    string
}

func (s *sharedContainer) start(t *testing.T, req testcontainers.ContainerRequest) {
	t.Helper()

	s.once.Do(func() {
		ctx := context.Background()

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err != nil {
			s.err = fmt.Errorf("start %s container: %w", s.name, err)
			return
		}

		host, err := container.Host(ctx)
		if err != nil {
			container.Terminate(ctx)
			s.err = fmt.Errorf("get %s host: %w", s.name, err)
			return
		}

		mappedPort, err := container.MappedPort(ctx, s.port)
		if err != nil {
			container.Terminate(ctx)
			s.err = fmt.Errorf("get %s port: %w", s.name, err)
			return
		}

		s.container = container
		s.host = host
		s.mapped = mappedPort.Port()
	})

	if s.err != nil {
		t.Fatalf("%s container failed: %v", s.name, s.err)
	}
}

func (s *sharedContainer) terminate() {
	if s != nil && s.container != nil {
		s.container.Terminate(context.Background())
	}
}

// CleanupSurrealDB terminates the shared SurrealDB container if one was started.
func CleanupSurrealDB() {
	surreal.terminate()
}

// CleanupPostgres terminates the shared PostgreSQL container if one was started.
func CleanupPostgres() {
	postgres.terminate()
}

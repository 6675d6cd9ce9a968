package neo4j

import (
	"context"
	"fmt"

	"github.com/artigraph/backend/pkg/store"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const defaultBatchSize = 500

// GraphNeo4jStorage implements store.GraphStorage on a Neo4j database. It
// owns the driver; every call opens its own session so concurrent runs never
// share one.
type GraphNeo4jStorage struct {
	driver    neo4j.DriverWithContext
	database  string
	batchSize int
}

var _ store.GraphStorage = (*GraphNeo4jStorage)(nil)

// NewGraphNeo4jStorageParams configures the connection. Database may be empty
// to use the server default.
type NewGraphNeo4jStorageParams struct {
	URI      string
	User     string
	Password string
	Database string

	BatchSize int
}

// NewGraphNeo4jStorage creates the driver and verifies that the server is
// reachable. Close releases the driver.
func NewGraphNeo4jStorage(ctx context.Context, params NewGraphNeo4jStorageParams) (*GraphNeo4jStorage, error) {
	driver, err := neo4j.NewDriverWithContext(params.URI, neo4j.BasicAuth(params.User, params.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to reach neo4j at %s: %w", params.URI, err)
	}
	return NewGraphNeo4jStorageWithDriver(driver, params.Database, params.BatchSize), nil
}

// NewGraphNeo4jStorageWithDriver wraps an existing driver.
func NewGraphNeo4jStorageWithDriver(driver neo4j.DriverWithContext, database string, batchSize int) *GraphNeo4jStorage {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &GraphNeo4jStorage{
		driver:    driver,
		database:  database,
		batchSize: batchSize,
	}
}

// Close shuts the driver down.
func (s *GraphNeo4jStorage) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *GraphNeo4jStorage) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/artigraph/backend/internal/util"
	"github.com/artigraph/backend/pkg/logger"
	graphneo4j "github.com/artigraph/backend/pkg/store/neo4j"

	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const connectAttempts = 5

// OpenGraphStorage connects to Neo4j, retrying while the server comes up.
func OpenGraphStorage(ctx context.Context, cfg Neo4jConfig) (*graphneo4j.GraphNeo4jStorage, error) {
	var storage *graphneo4j.GraphNeo4jStorage
	err := util.RetryErrWithContext(ctx, connectAttempts, func(ctx context.Context) error {
		s, err := graphneo4j.NewGraphNeo4jStorage(ctx, graphneo4j.NewGraphNeo4jStorageParams{
			URI:      cfg.URI,
			User:     cfg.User,
			Password: cfg.Password,
			Database: cfg.Database,
		})
		if err != nil {
			logger.Warn("[App] Neo4j not reachable yet", "uri", cfg.URI, "err", err)
			return err
		}
		storage = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return storage, nil
}

// OpenPostgres creates a pool with the pgvector types registered on every
// connection.
func OpenPostgres(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := util.RetryErrWithContext(ctx, connectAttempts, pool.Ping); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database not reachable: %w", err)
	}
	return pool, nil
}

// Migrate applies the ledger migrations found in path.
func Migrate(databaseURL, path string) error {
	m, err := migrate.New("file://"+path, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	version, dirty, _ := m.Version()
	logger.Info("[App] Ledger schema ready", "version", version, "dirty", dirty)
	return nil
}

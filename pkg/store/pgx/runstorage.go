package pgx

import (
	"context"

	"github.com/artigraph/backend/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

const defaultEmbeddingChunkSize = 1000

// RunDBStorage implements store.RunStorage on PostgreSQL. Runs live in the
// runs table, attribute embeddings in node_embeddings as pgvector columns.
type RunDBStorage struct {
	conn      pgxIConn
	chunkSize int
}

var _ store.RunStorage = (*RunDBStorage)(nil)

type RunDBStorageOption func(*RunDBStorage)

// WithChunkSize sets how many embedding rows are written per transaction.
func WithChunkSize(size int) RunDBStorageOption {
	return func(s *RunDBStorage) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// NewRunDBStorageWithConnection creates a RunDBStorage on an existing pool or
// connection. The pool must have the pgvector types registered.
func NewRunDBStorageWithConnection(conn pgxIConn, opts ...RunDBStorageOption) *RunDBStorage {
	s := &RunDBStorage{
		conn:      conn,
		chunkSize: defaultEmbeddingChunkSize,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

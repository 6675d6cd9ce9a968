package pgx

import (
	"context"
	"fmt"
	"sort"

	"github.com/artigraph/backend/pkg/common"
	"github.com/artigraph/backend/pkg/logger"
	"github.com/artigraph/backend/pkg/store"

	"github.com/pgvector/pgvector-go"
)

type embeddingRows struct {
	nodeIDs    []string
	kinds      []string
	attributes []string
	vectors    []pgvector.Vector
}

func (r *embeddingRows) len() int { return len(r.nodeIDs) }

// collectEmbeddings flattens the embeddings of all nodes into parallel
// columns. Attributes are sorted per node so the row order is stable.
func collectEmbeddings(nodes []common.Node) embeddingRows {
	var rows embeddingRows
	for _, n := range nodes {
		vectors := n.Embeddings()
		if len(vectors) == 0 {
			continue
		}
		attrs := make([]string, 0, len(vectors))
		for attr := range vectors {
			attrs = append(attrs, attr)
		}
		sort.Strings(attrs)

		for _, attr := range attrs {
			if len(vectors[attr]) == 0 {
				continue
			}
			rows.nodeIDs = append(rows.nodeIDs, n.NodeID())
			rows.kinds = append(rows.kinds, string(n.Kind()))
			rows.attributes = append(rows.attributes, attr)
			rows.vectors = append(rows.vectors, pgvector.NewVector(vectors[attr]))
		}
	}
	return rows
}

// SaveEmbeddings writes every attribute embedding of the nodes and returns
// how many rows were stored. Each chunk commits on its own.
func (s *RunDBStorage) SaveEmbeddings(ctx context.Context, runID string, nodes []common.Node) (int, error) {
	rows := collectEmbeddings(nodes)
	if rows.len() == 0 {
		return 0, nil
	}

	logger.Debug("[Runs][SaveEmbeddings] Writing attribute embeddings", "run", runID, "rows", rows.len())

	saved := 0
	err := store.ChunkRange(rows.len(), s.chunkSize, func(start, end int) error {
		tx, err := s.conn.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		tag, err := tx.Exec(ctx, insertEmbeddingsSQL,
			runID,
			rows.nodeIDs[start:end],
			rows.kinds[start:end],
			rows.attributes[start:end],
			rows.vectors[start:end],
		)
		if err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}
		saved += int(tag.RowsAffected())
		return nil
	})
	if err != nil {
		return saved, fmt.Errorf("failed to save embeddings for run %s: %w", runID, err)
	}
	return saved, nil
}

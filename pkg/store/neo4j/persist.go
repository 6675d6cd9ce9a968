package neo4j

import (
	"context"
	"fmt"

	"github.com/artigraph/backend/pkg/common"
	"github.com/artigraph/backend/pkg/logger"
	"github.com/artigraph/backend/pkg/store"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Persist writes one run's graph. Each batch commits in its own transaction,
// so a failure leaves the batches before it in place. Nodes and
// relationships are created, never merged: persisting the same update twice
// duplicates them. The artifact, its GENERATED edges and the user's
// CREATED_BY edge are merged.
func (s *GraphNeo4jStorage) Persist(ctx context.Context, update common.GraphUpdate) (store.PersistResult, error) {
	var result store.PersistResult

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	nodeBatches, skippedNodes := groupNodes(update.Nodes)
	for _, n := range skippedNodes {
		logger.Warn("[Neo4j] Skipping node outside the schema", "id", n.NodeID(), "kind", n.Kind())
	}
	for _, batch := range nodeBatches {
		query, err := createNodesQuery(batch.kind)
		if err != nil {
			return result, err
		}
		err = store.ChunkRange(len(batch.rows), s.batchSize, func(start, end int) error {
			counters, err := s.write(ctx, session, query, map[string]any{"rows": batch.rows[start:end]})
			if err != nil {
				return fmt.Errorf("failed to create %s nodes: %w", batch.kind, err)
			}
			result.NodesCreated += counters.NodesCreated()
			return nil
		})
		if err != nil {
			return result, err
		}
	}

	relBatches, skippedRels := groupRelationships(update.Relationships)
	for _, r := range skippedRels {
		logger.Warn("[Neo4j] Skipping relationship outside the schema",
			"source", r.SourceID, "target", r.TargetID, "type", r.Type)
	}
	for _, batch := range relBatches {
		query, err := createRelationshipsQuery(batch.rule.Source, batch.rule.Target, batch.rule.Type)
		if err != nil {
			return result, err
		}
		err = store.ChunkRange(len(batch.rows), s.batchSize, func(start, end int) error {
			counters, err := s.write(ctx, session, query, map[string]any{"rows": batch.rows[start:end]})
			if err != nil {
				return fmt.Errorf("failed to create %s relationships: %w", batch.rule.Type, err)
			}
			result.RelationshipsCreated += counters.RelationshipsCreated()
			return nil
		})
		if err != nil {
			return result, err
		}
	}

	if update.Artifact == nil {
		return result, nil
	}

	links, err := s.linkArtifact(ctx, session, update)
	result.ProvenanceLinks = links
	if err != nil {
		return result, err
	}

	logger.Debug("[Neo4j] Persisted graph update",
		"artifact", update.Artifact.ID,
		"nodes", result.NodesCreated,
		"relationships", result.RelationshipsCreated,
		"provenance", result.ProvenanceLinks)
	return result, nil
}

func (s *GraphNeo4jStorage) linkArtifact(ctx context.Context, session neo4j.SessionWithContext, update common.GraphUpdate) (int, error) {
	artifact := update.Artifact
	if _, err := s.write(ctx, session, mergeArtifactQuery, map[string]any{
		"id":   artifact.ID,
		"code": artifact.Code,
	}); err != nil {
		return 0, fmt.Errorf("failed to merge artifact: %w", err)
	}

	links := 0
	ids := provenanceIDs(update.Nodes)
	for _, kind := range common.AllKinds() {
		kindIDs, ok := ids[kind]
		if !ok {
			continue
		}
		query, err := linkGeneratedQuery(kind)
		if err != nil {
			return links, err
		}
		err = store.ChunkRange(len(kindIDs), s.batchSize, func(start, end int) error {
			counters, err := s.write(ctx, session, query, map[string]any{
				"artifact_id": artifact.ID,
				"ids":         kindIDs[start:end],
			})
			if err != nil {
				return fmt.Errorf("failed to link artifact to %s nodes: %w", kind, err)
			}
			links += counters.RelationshipsCreated()
			return nil
		})
		if err != nil {
			return links, err
		}
	}

	if update.User != nil && update.User.ID != "" {
		counters, err := s.write(ctx, session, linkUserQuery, map[string]any{
			"user_id":     update.User.ID,
			"artifact_id": artifact.ID,
		})
		if err != nil {
			return links, fmt.Errorf("failed to link user: %w", err)
		}
		links += counters.RelationshipsCreated()
	}
	return links, nil
}

// write runs one statement in a managed write transaction and returns its
// counters. The driver may retry the function on transient errors, so it
// must not carry state between attempts.
func (s *GraphNeo4jStorage) write(ctx context.Context, session neo4j.SessionWithContext, query string, params map[string]any) (neo4j.Counters, error) {
	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return nil, err
		}
		return summary.Counters(), nil
	})
	if err != nil {
		return nil, err
	}
	return out.(neo4j.Counters), nil
}

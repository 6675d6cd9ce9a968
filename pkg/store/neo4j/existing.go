package neo4j

import (
	"context"
	"fmt"

	"github.com/artigraph/backend/pkg/common"
	"github.com/artigraph/backend/pkg/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// GetExistingNodes loads up to limit stored nodes so new nodes can be linked
// to them. Artifacts, users and records whose labels are outside the schema
// are left out.
func (s *GraphNeo4jStorage) GetExistingNodes(ctx context.Context, limit int) ([]common.Node, error) {
	if limit <= 0 {
		return nil, nil
	}

	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, existingNodesQuery, map[string]any{"limit": limit})
		if err != nil {
			return nil, err
		}

		nodes := make([]common.Node, 0, limit)
		for res.Next(ctx) {
			record := res.Record()
			id, _ := record.Get("id")
			labels, _ := record.Get("labels")
			props, _ := record.Get("props")

			node, err := nodeFromRecord(id, labels, props)
			if err != nil {
				logger.Warn("[Neo4j] Skipping stored node", "id", id, "labels", labels, "err", err)
				continue
			}
			nodes = append(nodes, node)
		}
		return nodes, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load existing nodes: %w", err)
	}
	return out.([]common.Node), nil
}

// nodeFromRecord decodes the id, labels and properties columns of one row.
// The first label that names a schema kind decides the node type.
func nodeFromRecord(id, labels, props any) (common.Node, error) {
	nodeID, ok := id.(string)
	if !ok || nodeID == "" {
		return nil, fmt.Errorf("%w: missing node id", common.ErrSchemaViolation)
	}

	kind, err := kindFromLabels(labels)
	if err != nil {
		return nil, err
	}
	if kind == common.KindArtifact || kind == common.KindUser {
		return nil, fmt.Errorf("%w: %s is not a pipeline node", common.ErrSchemaViolation, kind)
	}

	properties, _ := props.(map[string]any)
	clean := make(map[string]any, len(properties))
	for k, v := range properties {
		if k == "id" {
			continue
		}
		clean[k] = v
	}
	return common.NodeFromProperties(kind, nodeID, clean)
}

func kindFromLabels(labels any) (common.NodeKind, error) {
	var names []string
	switch v := labels.(type) {
	case []string:
		names = v
	case []any:
		for _, l := range v {
			if s, ok := l.(string); ok {
				names = append(names, s)
			}
		}
	}
	for _, name := range names {
		if kind := common.NodeKind(name); kind.Valid() {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: labels %v", common.ErrUnknownKind, names)
}

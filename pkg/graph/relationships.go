package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/artigraph/backend/pkg/ai"
	"github.com/artigraph/backend/pkg/common"
	"github.com/artigraph/backend/pkg/logger"
)

type promptNode struct {
	ID         string          `json:"id"`
	Kind       common.NodeKind `json:"tipo"`
	Properties map[string]any  `json:"properties"`
}

func toPromptNodes(nodes []common.Node) []promptNode {
	out := make([]promptNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, promptNode{ID: n.NodeID(), Kind: n.Kind(), Properties: n.Properties()})
	}
	return out
}

// Infer asks the model for relationships between the new nodes and the
// existing ones, then keeps only proposals whose endpoints are known and
// whose (source kind, target kind, type) triple is in the allow-list.
// Identical proposals are kept once.
func (g *GraphClient) Infer(
	ctx context.Context,
	newNodes []common.Node,
	existingNodes []common.Node,
	aiClient ai.GraphAIClient,
) ([]common.Relationship, error) {
	if len(newNodes) == 0 || len(newNodes)+len(existingNodes) < 2 {
		logger.Debug("[Relations] Not enough nodes to relate", "new", len(newNodes), "existing", len(existingNodes))
		return []common.Relationship{}, nil
	}

	newData, err := json.Marshal(toPromptNodes(newNodes))
	if err != nil {
		return nil, fmt.Errorf("failed to encode new nodes: %w", err)
	}
	existingData, err := json.Marshal(toPromptNodes(existingNodes))
	if err != nil {
		return nil, fmt.Errorf("failed to encode existing nodes: %w", err)
	}
	rulesData, err := json.Marshal(common.AllowedRelationships())
	if err != nil {
		return nil, fmt.Errorf("failed to encode relationship rules: %w", err)
	}

	var out common.ExtractedRelationships
	err = aiClient.GenerateCompletionWithFormat(
		ctx,
		"relationships",
		"Relationships between knowledge graph nodes",
		fmt.Sprintf(ai.RelationshipPrompt, string(newData), string(existingData), string(rulesData)),
		&out,
	)
	if err != nil {
		if errors.Is(err, ai.ErrMalformedOutput) {
			logger.Warn("[Relations] Discarding malformed model output", "err", err)
			return []common.Relationship{}, nil
		}
		return nil, fmt.Errorf("%w: relationship inference: %w", ErrExternalService, err)
	}

	kinds := make(map[string]common.NodeKind, len(newNodes)+len(existingNodes))
	for _, n := range existingNodes {
		kinds[n.NodeID()] = n.Kind()
	}
	for _, n := range newNodes {
		kinds[n.NodeID()] = n.Kind()
	}

	rels, dropped := filterRelationships(out.Relaciones, kinds)
	logger.Info("[Relations] Relationships inferred", "proposed", len(out.Relaciones), "accepted", len(rels), "dropped", dropped)
	return rels, nil
}

// filterRelationships validates proposals against the known node kinds and
// the allow-list. Rejected proposals are logged and counted.
func filterRelationships(
	proposals []common.ExtractedRelationship,
	kinds map[string]common.NodeKind,
) ([]common.Relationship, int) {
	rels := make([]common.Relationship, 0, len(proposals))
	seen := make(map[common.Relationship]struct{}, len(proposals))
	dropped := 0

	for _, p := range proposals {
		rel, err := resolveRelationship(p, kinds)
		if err != nil {
			logger.Warn("[Relations] Dropping relationship", "origen", p.Origen, "destino", p.Destino, "tipo", p.Tipo, "err", err)
			dropped++
			continue
		}
		if _, ok := seen[rel]; ok {
			continue
		}
		seen[rel] = struct{}{}
		rels = append(rels, rel)
	}

	return rels, dropped
}

func resolveRelationship(p common.ExtractedRelationship, kinds map[string]common.NodeKind) (common.Relationship, error) {
	source, ok := kinds[strings.TrimSpace(p.Origen)]
	if !ok {
		return common.Relationship{}, fmt.Errorf("%w: unknown source node %q", common.ErrSchemaViolation, p.Origen)
	}
	target, ok := kinds[strings.TrimSpace(p.Destino)]
	if !ok {
		return common.Relationship{}, fmt.Errorf("%w: unknown target node %q", common.ErrSchemaViolation, p.Destino)
	}

	rel := common.Relationship{
		SourceID:   strings.TrimSpace(p.Origen),
		TargetID:   strings.TrimSpace(p.Destino),
		SourceKind: source,
		TargetKind: target,
		Type:       common.RelationshipType(strings.ToUpper(strings.TrimSpace(p.Tipo))),
	}
	if err := rel.Validate(); err != nil {
		return common.Relationship{}, err
	}
	return rel, nil
}

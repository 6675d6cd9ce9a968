package neo4j

import (
	"fmt"

	"github.com/artigraph/backend/pkg/common"
)

// Labels and relationship types are the only values interpolated into Cypher.
// Both come from the closed schema in pkg/common and are checked before use;
// everything else is a bound parameter.

func label(kind common.NodeKind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", common.ErrUnknownKind, kind)
	}
	return string(kind), nil
}

// createNodesQuery creates one node per row. Rows carry id and props.
func createNodesQuery(kind common.NodeKind) (string, error) {
	l, err := label(kind)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"UNWIND $rows AS row CREATE (n:%s {id: row.id}) SET n += row.props",
		l,
	), nil
}

// createRelationshipsQuery creates one edge per row whose endpoints both
// exist. Rows carry source and target ids.
func createRelationshipsQuery(source, target common.NodeKind, relType common.RelationshipType) (string, error) {
	if err := common.ValidateRelationship(source, target, relType); err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"UNWIND $rows AS row MATCH (a:%s {id: row.source}), (b:%s {id: row.target}) CREATE (a)-[:%s]->(b)",
		source, target, relType,
	), nil
}

const mergeArtifactQuery = "MERGE (a:Artifact {id: $id}) SET a.code = $code"

// linkGeneratedQuery merges GENERATED edges from the artifact to nodes of
// one provenance-eligible kind.
func linkGeneratedQuery(kind common.NodeKind) (string, error) {
	if !kind.ProvenanceEligible() {
		return "", fmt.Errorf("%w: %s nodes are not linked to artifacts", common.ErrSchemaViolation, kind)
	}
	return fmt.Sprintf(
		"MATCH (a:Artifact {id: $artifact_id}) UNWIND $ids AS nid MATCH (n:%s {id: nid}) MERGE (a)-[:%s]->(n)",
		kind, common.RelGenerated,
	), nil
}

var linkUserQuery = fmt.Sprintf(
	"MERGE (u:User {id: $user_id}) WITH u MATCH (a:Artifact {id: $artifact_id}) MERGE (u)-[:%s]->(a)",
	common.RelCreatedBy,
)

const existingNodesQuery = `MATCH (n)
WHERE NOT n:Artifact AND NOT n:User AND n.id IS NOT NULL
RETURN n.id AS id, labels(n) AS labels, properties(n) AS props
LIMIT $limit`

type nodeBatch struct {
	kind common.NodeKind
	rows []map[string]any
}

// groupNodes batches nodes by kind in first-seen order. Artifact and User
// nodes and kinds outside the schema are returned as skipped.
func groupNodes(nodes []common.Node) ([]nodeBatch, []common.Node) {
	var batches []nodeBatch
	index := map[common.NodeKind]int{}
	var skipped []common.Node

	for _, n := range nodes {
		switch n.Kind() {
		case common.KindAPI,
			common.KindEndpoint,
			common.KindDatabase,
			common.KindTable,
			common.KindQuery,
			common.KindKPI,
			common.KindStatistic,
			common.KindVisualization:
		default:
			skipped = append(skipped, n)
			continue
		}

		i, ok := index[n.Kind()]
		if !ok {
			i = len(batches)
			index[n.Kind()] = i
			batches = append(batches, nodeBatch{kind: n.Kind()})
		}
		batches[i].rows = append(batches[i].rows, map[string]any{
			"id":    n.NodeID(),
			"props": n.Properties(),
		})
	}
	return batches, skipped
}

type relationshipBatch struct {
	rule common.RelationshipRule
	rows []map[string]any
}

// groupRelationships batches relationships by triple. Triples outside the
// allow-list are returned as skipped.
func groupRelationships(rels []common.Relationship) ([]relationshipBatch, []common.Relationship) {
	var batches []relationshipBatch
	index := map[common.RelationshipRule]int{}
	var skipped []common.Relationship

	for _, r := range rels {
		if err := r.Validate(); err != nil {
			skipped = append(skipped, r)
			continue
		}
		rule := common.RelationshipRule{Source: r.SourceKind, Target: r.TargetKind, Type: r.Type}
		i, ok := index[rule]
		if !ok {
			i = len(batches)
			index[rule] = i
			batches = append(batches, relationshipBatch{rule: rule})
		}
		batches[i].rows = append(batches[i].rows, map[string]any{
			"source": r.SourceID,
			"target": r.TargetID,
		})
	}
	return batches, skipped
}

// provenanceIDs lists the ids of provenance-eligible nodes per kind.
func provenanceIDs(nodes []common.Node) map[common.NodeKind][]string {
	out := map[common.NodeKind][]string{}
	for _, n := range nodes {
		if n.Kind().ProvenanceEligible() {
			out[n.Kind()] = append(out[n.Kind()], n.NodeID())
		}
	}
	return out
}

package common

import (
	"errors"
	"fmt"
)

// ErrSchemaViolation marks a relationship or node that does not fit the
// fixed schema. Violations are filtered out, never fatal.
var ErrSchemaViolation = errors.New("schema violation")

// RelationshipType is an edge label.
type RelationshipType string

const (
	RelExposes         RelationshipType = "EXPOSES"
	RelQueries         RelationshipType = "QUERIES"
	RelCalls           RelationshipType = "CALLS"
	RelReadsFrom       RelationshipType = "READS_FROM"
	RelStores          RelationshipType = "STORES"
	RelUses            RelationshipType = "USES"
	RelContainsDataFor RelationshipType = "CONTAINS_DATA_FOR"
	RelDerivedFrom     RelationshipType = "DERIVED_FROM"
	RelRepresents      RelationshipType = "REPRESENTS"

	// Provenance edges. They are written by the persistence layer only and
	// are not part of the allow-list.
	RelGenerated RelationshipType = "GENERATED"
	RelCreatedBy RelationshipType = "CREATED_BY"
)

// RelationshipRule is one permitted (source kind, target kind, type) triple.
type RelationshipRule struct {
	Source NodeKind         `json:"origen"`
	Target NodeKind         `json:"destino"`
	Type   RelationshipType `json:"tipo"`
}

var allowedRelationships = []RelationshipRule{
	{Source: KindAPI, Target: KindEndpoint, Type: RelExposes},
	{Source: KindEndpoint, Target: KindDatabase, Type: RelQueries},
	{Source: KindQuery, Target: KindEndpoint, Type: RelCalls},
	{Source: KindQuery, Target: KindDatabase, Type: RelReadsFrom},
	{Source: KindDatabase, Target: KindTable, Type: RelStores},
	{Source: KindTable, Target: KindQuery, Type: RelUses},
	{Source: KindTable, Target: KindVisualization, Type: RelUses},
	{Source: KindTable, Target: KindKPI, Type: RelContainsDataFor},
	{Source: KindKPI, Target: KindStatistic, Type: RelDerivedFrom},
	{Source: KindStatistic, Target: KindVisualization, Type: RelRepresents},
}

// AllowedRelationships returns a copy of the allow-list.
func AllowedRelationships() []RelationshipRule {
	out := make([]RelationshipRule, len(allowedRelationships))
	copy(out, allowedRelationships)
	return out
}

// AllowedTypes returns the distinct relationship types of the allow-list in
// allow-list order.
func AllowedTypes() []RelationshipType {
	seen := make(map[RelationshipType]struct{})
	out := make([]RelationshipType, 0, len(allowedRelationships))
	for _, r := range allowedRelationships {
		if _, ok := seen[r.Type]; ok {
			continue
		}
		seen[r.Type] = struct{}{}
		out = append(out, r.Type)
	}
	return out
}

// ValidateRelationship checks a triple against the allow-list.
func ValidateRelationship(source, target NodeKind, relType RelationshipType) error {
	for _, r := range allowedRelationships {
		if r.Source == source && r.Target == target && r.Type == relType {
			return nil
		}
	}
	return fmt.Errorf("%w: (%s)-[:%s]->(%s) is not allowed", ErrSchemaViolation, source, relType, target)
}

// Relationship is a directed, typed edge between two node ids. The kinds are
// carried along so the store can match both ends by label.
type Relationship struct {
	SourceID   string           `json:"origen"`
	TargetID   string           `json:"destino"`
	SourceKind NodeKind         `json:"source_kind"`
	TargetKind NodeKind         `json:"target_kind"`
	Type       RelationshipType `json:"tipo"`
}

// Validate checks the relationship's triple against the allow-list.
func (r Relationship) Validate() error {
	return ValidateRelationship(r.SourceKind, r.TargetKind, r.Type)
}

// GraphUpdate bundles everything one pipeline run writes to the graph store.
type GraphUpdate struct {
	Artifact      *ArtifactNode
	User          *UserNode
	Nodes         []Node
	Relationships []Relationship
}

package common

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownKind is returned when a node kind is outside the fixed schema.
var ErrUnknownKind = errors.New("unknown node kind")

// NodeKind is the closed set of entity kinds a knowledge graph may contain.
// The string value doubles as the node label in the graph store.
type NodeKind string

const (
	KindArtifact      NodeKind = "Artifact"
	KindUser          NodeKind = "User"
	KindAPI           NodeKind = "API"
	KindEndpoint      NodeKind = "Endpoint"
	KindDatabase      NodeKind = "Database"
	KindTable         NodeKind = "Table"
	KindQuery         NodeKind = "Query"
	KindKPI           NodeKind = "KPI"
	KindStatistic     NodeKind = "Statistic"
	KindVisualization NodeKind = "Visualization"
)

var allKinds = []NodeKind{
	KindArtifact,
	KindUser,
	KindAPI,
	KindEndpoint,
	KindDatabase,
	KindTable,
	KindQuery,
	KindKPI,
	KindStatistic,
	KindVisualization,
}

// AllKinds returns every kind of the schema.
func AllKinds() []NodeKind {
	out := make([]NodeKind, len(allKinds))
	copy(out, allKinds)
	return out
}

// Valid reports whether k is part of the schema.
func (k NodeKind) Valid() bool {
	for _, known := range allKinds {
		if k == known {
			return true
		}
	}
	return false
}

// ProvenanceEligible reports whether an Artifact links to nodes of this kind
// with a GENERATED edge. KPI and Statistic nodes are only reachable through
// Table and KPI edges.
func (k NodeKind) ProvenanceEligible() bool {
	switch k {
	case KindAPI, KindEndpoint, KindDatabase, KindQuery, KindTable, KindVisualization:
		return true
	default:
		return false
	}
}

// ParseNodeKind accepts both the label form ("Table") and the class form
// ("TableNode") that models tend to echo back.
func ParseNodeKind(s string) (NodeKind, error) {
	name := strings.TrimSpace(s)
	name = strings.TrimSuffix(name, "Node")
	for _, k := range allKinds {
		if strings.EqualFold(name, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Node is a typed entity record materialized into the property graph.
// The set of implementations is closed; see the Kind constants.
type Node interface {
	NodeID() string
	Kind() NodeKind
	// Properties returns every attribute except the id, keyed by its graph
	// property name. Values are strings or string slices.
	Properties() map[string]any
	Embeddings() map[string][]float32
	SetEmbedding(attribute string, vector []float32)

	isNode()
}

// EmbeddingInput is one attribute of a node that can be embedded.
type EmbeddingInput struct {
	Attribute string
	Text      string
}

// EmbeddingInputs lists the scalar string and string-list attributes of n that
// carry text, sorted by attribute name. Lists are joined with single spaces.
func EmbeddingInputs(n Node) []EmbeddingInput {
	props := n.Properties()
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	inputs := make([]EmbeddingInput, 0, len(keys))
	for _, k := range keys {
		var text string
		switch v := props[k].(type) {
		case string:
			text = v
		case []string:
			text = strings.Join(v, " ")
		default:
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		inputs = append(inputs, EmbeddingInput{Attribute: k, Text: text})
	}
	return inputs
}

// CountByKind tallies nodes per kind.
func CountByKind(nodes []Node) map[NodeKind]int {
	out := make(map[NodeKind]int)
	for _, n := range nodes {
		out[n.Kind()]++
	}
	return out
}

package store

import (
	"context"

	"github.com/artigraph/backend/pkg/common"
)

// PersistResult counts what a Persist call created. Provenance edges are
// counted separately because they are merged, not created.
type PersistResult struct {
	NodesCreated         int
	RelationshipsCreated int
	ProvenanceLinks      int
}

// GraphStorage is the property-graph side of the pipeline.
type GraphStorage interface {
	// Persist writes all nodes and relationships of one run, then links the
	// artifact to its provenance-eligible nodes and the user to the artifact.
	Persist(ctx context.Context, update common.GraphUpdate) (PersistResult, error)

	// GetExistingNodes returns up to limit stored nodes, artifacts and users
	// excluded. Records of unknown kinds are skipped.
	GetExistingNodes(ctx context.Context, limit int) ([]common.Node, error)
}

// RunStorage is the ledger of pipeline runs and the sidecar for attribute
// embeddings.
type RunStorage interface {
	SaveRun(ctx context.Context, run common.Run) error
	GetRun(ctx context.Context, id string) (*common.Run, error)
	SaveEmbeddings(ctx context.Context, runID string, nodes []common.Node) (int, error)
}

package graph

import (
	"github.com/artigraph/backend/pkg/store"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// GraphClient runs the knowledge-graph construction pipeline for code
// artifacts. It holds only configuration; the AI client and the graph store
// are passed to every call so that concurrent runs share no state.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	tokenEncoder       string
	extractAttempts    int
	maxRetries         int
	parallelAiRequests int
	analyzeBusiness    bool
	embedAttributes    bool
	linkExisting       bool
	existingLimit      int

	runStorage store.RunStorage
}

// NewGraphClientParams defines the configuration parameters for creating
// a new GraphClient.
//
// ExtractAttempts bounds the extraction calls per artifact while the result
// stays empty. MaxRetries bounds retries of single embedding calls.
// AnalyzeBusiness enables the business analyst stage, EmbedAttributes the
// embedding enrichment and LinkExisting the lookup of stored nodes for
// relationship inference. RunStorage is optional.
type NewGraphClientParams struct {
	TokenEncoder       string
	ExtractAttempts    int
	MaxRetries         int
	ParallelAiRequests int
	AnalyzeBusiness    bool
	EmbedAttributes    bool
	LinkExisting       bool
	ExistingLimit      int

	RunStorage store.RunStorage
}

// NewGraphClient creates and returns a new GraphClient configured with
// the provided parameters.
//
// Example:
//
//	client, err := graph.NewGraphClient(graph.NewGraphClientParams{
//		ExtractAttempts: 2,
//		AnalyzeBusiness: true,
//	})
func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	attempts := params.ExtractAttempts
	if attempts <= 0 {
		attempts = 2
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	parallel := params.ParallelAiRequests
	if parallel <= 0 {
		parallel = 4
	}
	limit := params.ExistingLimit
	if limit <= 0 {
		limit = 500
	}
	encoder := params.TokenEncoder
	if encoder == "" {
		encoder = "o200k_base"
	}

	return &GraphClient{
		tokenEncoder:       encoder,
		extractAttempts:    attempts,
		maxRetries:         maxRetries,
		parallelAiRequests: parallel,
		analyzeBusiness:    params.AnalyzeBusiness,
		embedAttributes:    params.EmbedAttributes,
		linkExisting:       params.LinkExisting,
		existingLimit:      limit,
		runStorage:         params.RunStorage,
	}, nil
}

func newID() string {
	return gonanoid.Must()
}

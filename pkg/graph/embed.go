package graph

import (
	"context"
	"sync"

	"github.com/artigraph/backend/internal/util"
	"github.com/artigraph/backend/pkg/ai"
	"github.com/artigraph/backend/pkg/common"
	"github.com/artigraph/backend/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Embed attaches an embedding to every text attribute of nodes. A failed
// attribute is logged and left without a vector; only cancellation of ctx
// aborts. It returns the number of attributes embedded.
func (g *GraphClient) Embed(
	ctx context.Context,
	nodes []common.Node,
	aiClient ai.GraphAIClient,
) (int, error) {
	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.parallelAiRequests)

	var mu sync.Mutex
	embedded := 0
	failed := 0

	for _, node := range nodes {
		for _, input := range common.EmbeddingInputs(node) {
			eg.Go(func() error {
				vec, err := util.RetryWithContext(gCtx, g.maxRetries, func(ctx context.Context) ([]float32, error) {
					return aiClient.GenerateEmbedding(ctx, []byte(input.Text))
				})
				if err != nil {
					if gCtx.Err() != nil {
						return gCtx.Err()
					}
					logger.Warn(
						"[Nodes] Skipping embedding",
						"node_id", node.NodeID(),
						"kind", node.Kind(),
						"attribute", input.Attribute,
						"err", err,
					)
					mu.Lock()
					failed++
					mu.Unlock()
					return nil
				}

				mu.Lock()
				node.SetEmbedding(input.Attribute, vec)
				embedded++
				mu.Unlock()
				return nil
			})
		}
	}

	if err := eg.Wait(); err != nil {
		return embedded, err
	}

	logger.Info("[Nodes] Embeddings attached", "attributes", embedded, "skipped", failed)
	return embedded, nil
}

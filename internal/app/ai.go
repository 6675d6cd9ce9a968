package app

import (
	"fmt"

	"github.com/artigraph/backend/pkg/ai"
	oai "github.com/artigraph/backend/pkg/ai/ollama"
	gai "github.com/artigraph/backend/pkg/ai/openai"
	"github.com/artigraph/backend/pkg/graph"
	"github.com/artigraph/backend/pkg/store"
)

// NewAIClient selects the language model adapter.
func NewAIClient(cfg AIConfig) (ai.GraphAIClient, error) {
	switch cfg.Adapter {
	case "ollama":
		client, err := oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
			EmbeddingModel:   cfg.EmbeddingModel,
			DescriptionModel: cfg.DescriptionModel,
			ExtractionModel:  cfg.ExtractionModel,
			EmbeddingDim:     cfg.EmbeddingDim,

			BaseURL: cfg.ChatURL,
			ApiKey:  cfg.ChatKey,

			MaxConcurrentRequests: int64(cfg.ParallelRequests),
			TimeoutMin:            cfg.TimeoutMin,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create ollama client: %w", err)
		}
		return client, nil
	case "openai", "":
		return gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
			EmbeddingModel:   cfg.EmbeddingModel,
			DescriptionModel: cfg.DescriptionModel,
			ExtractionModel:  cfg.ExtractionModel,
			EmbeddingDim:     cfg.EmbeddingDim,

			EmbeddingURL: cfg.EmbeddingURL,
			EmbeddingKey: cfg.EmbeddingKey,
			ChatURL:      cfg.ChatURL,
			ChatKey:      cfg.ChatKey,

			MaxConcurrentRequests: int64(cfg.ParallelRequests),
			TimeoutMin:            cfg.TimeoutMin,
		}), nil
	default:
		return nil, fmt.Errorf("unknown AI_ADAPTER %q", cfg.Adapter)
	}
}

// NewGraphClient builds the pipeline. runs may be nil.
func NewGraphClient(cfg Config, runs store.RunStorage) (*graph.GraphClient, error) {
	return graph.NewGraphClient(graph.NewGraphClientParams{
		ExtractAttempts:    cfg.Graph.ExtractAttempts,
		MaxRetries:         cfg.Graph.MaxRetries,
		ParallelAiRequests: cfg.AI.ParallelRequests,
		AnalyzeBusiness:    cfg.Graph.AnalyzeBusiness,
		EmbedAttributes:    cfg.Graph.EmbedAttributes,
		LinkExisting:       cfg.Graph.LinkExisting,
		ExistingLimit:      cfg.Graph.ExistingLimit,
		RunStorage:         runs,
	})
}

package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/artigraph/backend/pkg/ai"
	"github.com/artigraph/backend/pkg/common"
	"github.com/artigraph/backend/pkg/logger"
)

// Analyze annotates extracted entities with business insights. It returns an
// empty analysis without calling the model when the stage is disabled or
// there is nothing to analyze.
func (g *GraphClient) Analyze(
	ctx context.Context,
	entities common.ExtractedEntities,
	aiClient ai.GraphAIClient,
) (common.BusinessAnalysis, error) {
	if !g.analyzeBusiness {
		logger.Debug("[Analyze] Business analysis disabled")
		return common.BusinessAnalysis{}, nil
	}
	if entities.Count() == 0 {
		return common.BusinessAnalysis{}, nil
	}

	data, err := json.Marshal(entities)
	if err != nil {
		return common.BusinessAnalysis{}, fmt.Errorf("failed to encode entities: %w", err)
	}

	var out common.BusinessAnalysis
	err = aiClient.GenerateCompletionWithFormat(
		ctx,
		"business_analysis",
		"Business relevance, KPIs and statistical methods per entity",
		fmt.Sprintf(ai.BusinessAnalystPrompt, string(data)),
		&out,
		ai.WithTemperature(0.2),
		ai.WithDescriptionModel(),
	)
	if err != nil {
		if errors.Is(err, ai.ErrMalformedOutput) {
			logger.Warn("[Analyze] Discarding malformed model output", "err", err)
			return common.BusinessAnalysis{}, nil
		}
		return common.BusinessAnalysis{}, fmt.Errorf("%w: business analysis: %w", ErrExternalService, err)
	}

	logger.Info("[Analyze] Insights generated", "insights", len(out.Insights))
	return out, nil
}

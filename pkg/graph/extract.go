package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/artigraph/backend/internal/util"
	"github.com/artigraph/backend/pkg/ai"
	"github.com/artigraph/backend/pkg/common"
	"github.com/artigraph/backend/pkg/logger"

	"github.com/pkoukk/tiktoken-go"
)

// Extract asks the model once for the entities explicitly present in text.
// Output that cannot be parsed counts as an empty result.
func (g *GraphClient) Extract(
	ctx context.Context,
	text string,
	aiClient ai.GraphAIClient,
) (common.ExtractedEntities, error) {
	if strings.TrimSpace(text) == "" {
		return common.ExtractedEntities{}, fmt.Errorf("%w: artifact text is empty", ErrInvalidInput)
	}

	prompt := fmt.Sprintf(ai.ExtractPrompt, text)
	if tokens, err := g.countTokens(prompt); err == nil {
		logger.Debug("[Extract] Prompt prepared", "tokens", tokens)
	}

	var out common.ExtractedEntities
	err := aiClient.GenerateCompletionWithFormat(
		ctx,
		"extracted_entities",
		"APIs, endpoints, databases, queries and tables explicitly present in a code artifact",
		prompt,
		&out,
	)
	if err != nil {
		if errors.Is(err, ai.ErrMalformedOutput) {
			logger.Warn("[Extract] Discarding malformed model output", "err", err)
			return common.ExtractedEntities{}, nil
		}
		return common.ExtractedEntities{}, fmt.Errorf("%w: extraction: %w", ErrExternalService, err)
	}

	return out, nil
}

// ExtractWithRetries calls Extract up to maxAttempts times and returns the
// first result with any non-empty collection. When every attempt is empty the
// last, empty, result is returned without an error. The number of attempts
// made is returned alongside.
func (g *GraphClient) ExtractWithRetries(
	ctx context.Context,
	text string,
	maxAttempts int,
	aiClient ai.GraphAIClient,
) (common.ExtractedEntities, int, error) {
	if strings.TrimSpace(text) == "" {
		return common.ExtractedEntities{}, 0, fmt.Errorf("%w: artifact text is empty", ErrInvalidInput)
	}

	entities, attempts, err := util.RetryUntil(
		ctx,
		maxAttempts,
		func(ctx context.Context, attempt int) (common.ExtractedEntities, error) {
			res, err := g.Extract(ctx, text, aiClient)
			if err == nil && res.IsEmpty() && attempt < maxAttempts {
				logger.Debug("[Extract] Empty result, retrying", "attempt", attempt, "max_attempts", maxAttempts)
			}
			return res, err
		},
		func(e common.ExtractedEntities) bool { return !e.IsEmpty() },
	)
	if err != nil {
		return common.ExtractedEntities{}, attempts, err
	}

	if entities.IsEmpty() {
		logger.Warn("[Extract] No entities found", "attempts", attempts)
	} else {
		logger.Info(
			"[Extract] Entities extracted",
			"attempts", attempts,
			"apis", len(entities.APIs),
			"endpoints", len(entities.Endpoints),
			"databases", len(entities.Databases),
			"queries", len(entities.Queries),
			"tables", len(entities.Tables),
		)
	}

	return entities, attempts, nil
}

func (g *GraphClient) countTokens(text string) (int, error) {
	enc, err := tiktoken.GetEncoding(g.tokenEncoder)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artigraph/backend/pkg/ai"
	"github.com/artigraph/backend/pkg/common"
	"github.com/artigraph/backend/pkg/logger"
	"github.com/artigraph/backend/pkg/store"

	"github.com/google/uuid"
)

const (
	messageProcessed = "Artifact processed successfully"
	messageSimulated = "Artifact processed in simulation mode, nothing was persisted"
)

// ArtifactRequest is one submission to the pipeline. ArtifactID is assigned
// when empty; queued submissions carry the id handed out at enqueue time.
type ArtifactRequest struct {
	ArtifactID string
	Code       string
	UserID     string
	Simulate   bool
}

// Summary describes the outcome of a run. In simulation mode the counts are
// what would have been written.
type Summary struct {
	ArtifactID            string          `json:"artifact_id"`
	Message               string          `json:"message"`
	NodesInserted         int             `json:"nodes_inserted"`
	RelationshipsInserted int             `json:"relationships_inserted"`
	State                 common.RunState `json:"state"`
	ExtractionEmpty       bool            `json:"extraction_empty"`
	Simulated             bool            `json:"simulated"`
}

// ProcessArtifact runs extraction, business analysis, node generation,
// relationship inference and persistence for one artifact, in that order.
//
// Empty code fails with ErrInvalidInput before any external call. A stage
// failure stops the run and leaves the side effects of earlier stages in
// place. storeClient may be nil when req.Simulate is set.
func (g *GraphClient) ProcessArtifact(
	ctx context.Context,
	req ArtifactRequest,
	aiClient ai.GraphAIClient,
	storeClient store.GraphStorage,
) (*Summary, error) {
	if strings.TrimSpace(req.Code) == "" {
		return nil, fmt.Errorf("%w: artifact code is empty", ErrInvalidInput)
	}
	if storeClient == nil && !req.Simulate {
		return nil, errors.New("graph storage is required unless simulating")
	}

	artifactID := strings.TrimSpace(req.ArtifactID)
	if artifactID == "" {
		artifactID = uuid.NewString()
	}

	now := time.Now().UTC()
	run := &common.Run{
		ID:        artifactID,
		UserID:    req.UserID,
		State:     common.RunReceived,
		Simulate:  req.Simulate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	g.saveRun(ctx, run)

	logger.Info("[Pipeline] Artifact received", "artifact_id", run.ID, "user_id", req.UserID, "simulate", req.Simulate)

	entities, _, err := g.ExtractWithRetries(ctx, req.Code, g.extractAttempts, aiClient)
	if err != nil {
		return nil, g.fail(ctx, run, err)
	}
	g.advance(ctx, run, common.RunExtracted)

	analysis, err := g.Analyze(ctx, entities, aiClient)
	if err != nil {
		return nil, g.fail(ctx, run, err)
	}
	g.advance(ctx, run, common.RunAnalyzed)

	nodes := g.Generate(entities, analysis)
	if g.embedAttributes && len(nodes) > 0 {
		if _, err := g.Embed(ctx, nodes, aiClient); err != nil {
			return nil, g.fail(ctx, run, err)
		}
	}
	run.Nodes = len(nodes)
	g.advance(ctx, run, common.RunNodesGenerated)

	var existing []common.Node
	if g.linkExisting && storeClient != nil && len(nodes) > 0 {
		existing, err = storeClient.GetExistingNodes(ctx, g.existingLimit)
		if err != nil {
			return nil, g.fail(ctx, run, fmt.Errorf("%w: existing nodes: %w", ErrExternalService, err))
		}
		logger.Debug("[Pipeline] Loaded existing nodes", "count", len(existing))
	}

	rels, err := g.Infer(ctx, nodes, existing, aiClient)
	if err != nil {
		return nil, g.fail(ctx, run, err)
	}
	run.Relationships = len(rels)
	g.advance(ctx, run, common.RunRelationshipsInferred)

	summary := &Summary{
		ArtifactID:      run.ID,
		ExtractionEmpty: entities.IsEmpty(),
		Simulated:       req.Simulate,
	}

	if req.Simulate {
		summary.Message = messageSimulated
		summary.NodesInserted = len(nodes)
		summary.RelationshipsInserted = len(rels)
		summary.State = run.State
		logger.Info("[Pipeline] Simulation finished", "artifact_id", run.ID, "nodes", len(nodes), "relationships", len(rels))
		return summary, nil
	}

	update := common.GraphUpdate{
		Artifact:      &common.ArtifactNode{ID: run.ID, Code: req.Code},
		Nodes:         nodes,
		Relationships: rels,
	}
	if strings.TrimSpace(req.UserID) != "" {
		update.User = &common.UserNode{ID: strings.TrimSpace(req.UserID)}
	}

	res, err := storeClient.Persist(ctx, update)
	if err != nil {
		return nil, g.fail(ctx, run, fmt.Errorf("%w: persist: %w", ErrExternalService, err))
	}

	if g.embedAttributes && g.runStorage != nil {
		if saved, err := g.runStorage.SaveEmbeddings(ctx, run.ID, nodes); err != nil {
			logger.Warn("[Pipeline] Failed to store embeddings", "artifact_id", run.ID, "err", err)
		} else {
			logger.Debug("[Pipeline] Embeddings stored", "artifact_id", run.ID, "count", saved)
		}
	}

	run.Nodes = res.NodesCreated
	run.Relationships = res.RelationshipsCreated
	g.advance(ctx, run, common.RunPersisted)

	summary.Message = messageProcessed
	summary.NodesInserted = res.NodesCreated
	summary.RelationshipsInserted = res.RelationshipsCreated
	summary.State = run.State

	logger.Info(
		"[Pipeline] Artifact persisted",
		"artifact_id", run.ID,
		"nodes", res.NodesCreated,
		"relationships", res.RelationshipsCreated,
		"provenance_links", res.ProvenanceLinks,
	)
	return summary, nil
}

func (g *GraphClient) advance(ctx context.Context, run *common.Run, next common.RunState) {
	if !run.State.CanAdvance(next) {
		logger.Warn("[Pipeline] Ignoring invalid run transition", "artifact_id", run.ID, "from", run.State, "to", next)
		return
	}
	run.State = next
	run.UpdatedAt = time.Now().UTC()
	logger.Debug("[Pipeline] Run advanced", "artifact_id", run.ID, "state", next)
	g.saveRun(ctx, run)
}

func (g *GraphClient) fail(ctx context.Context, run *common.Run, cause error) error {
	logger.Error("[Pipeline] Run failed", "artifact_id", run.ID, "state", run.State, "err", cause)
	run.FailedAt = run.State
	run.Error = cause.Error()
	g.advance(context.WithoutCancel(ctx), run, common.RunFailed)
	return cause
}

// saveRun records the run in the ledger. Ledger failures never abort a run.
func (g *GraphClient) saveRun(ctx context.Context, run *common.Run) {
	if g.runStorage == nil {
		return
	}
	if err := g.runStorage.SaveRun(ctx, *run); err != nil {
		logger.Warn("[Pipeline] Failed to record run", "artifact_id", run.ID, "state", run.State, "err", err)
	}
}

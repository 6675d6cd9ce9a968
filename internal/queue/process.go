package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/artigraph/backend/pkg/ai"
	"github.com/artigraph/backend/pkg/graph"
	"github.com/artigraph/backend/pkg/leaselock"
	"github.com/artigraph/backend/pkg/loader"
	"github.com/artigraph/backend/pkg/logger"
	"github.com/artigraph/backend/pkg/store"
)

// Leaser serializes work per key. *leaselock.Client satisfies it.
type Leaser interface {
	WithLease(ctx context.Context, key string, opts leaselock.Options, fn func(ctx context.Context) error) error
}

// Processor runs the pipeline for queued artifacts.
type Processor struct {
	Graph   *graph.GraphClient
	AI      ai.GraphAIClient
	Store   store.GraphStorage
	Loader  loader.ArtifactLoader
	Leases  Leaser
	MaxSize int
}

// ProcessArtifactMessage decodes one message body, loads the artifact and
// runs the pipeline under a lease on the artifact id, if leases are
// configured.
func (p *Processor) ProcessArtifactMessage(ctx context.Context, body []byte) (*graph.Summary, error) {
	msg, err := DecodeArtifactMsg(body)
	if err != nil {
		return nil, err
	}

	code := msg.Code
	if msg.S3Key != "" {
		if p.Loader == nil {
			return nil, fmt.Errorf("no artifact loader configured for %s", msg.S3Key)
		}
		src := loader.ArtifactSource{
			ID:       msg.ArtifactID,
			Path:     msg.S3Key,
			MaxBytes: p.MaxSize,
			Loader:   p.Loader,
		}
		code, err = src.GetText(ctx)
		if err != nil {
			return nil, fmt.Errorf("load artifact %s: %w", msg.S3Key, err)
		}
	}

	req := graph.ArtifactRequest{
		ArtifactID: msg.ArtifactID,
		Code:       code,
		UserID:     msg.UserID,
		Simulate:   msg.Simulate,
	}

	run := func(ctx context.Context) (*graph.Summary, error) {
		return p.Graph.ProcessArtifact(ctx, req, p.AI, p.Store)
	}
	if p.Leases == nil || msg.ArtifactID == "" {
		return run(ctx)
	}

	var summary *graph.Summary
	err = p.Leases.WithLease(ctx, leaselock.ArtifactKey(msg.ArtifactID), leaselock.Options{}, func(ctx context.Context) error {
		var err error
		summary, err = run(ctx)
		return err
	})
	if errors.Is(err, leaselock.ErrBusy) {
		logger.Warn("[Queue] Artifact is being processed elsewhere", "artifact_id", msg.ArtifactID)
	}
	return summary, err
}

// IsPermanent reports whether retrying err can never succeed.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrInvalidMessage) ||
		errors.Is(err, graph.ErrInvalidInput) ||
		errors.Is(err, loader.ErrNotText) ||
		errors.Is(err, loader.ErrTooLarge)
}

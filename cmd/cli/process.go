package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/artigraph/backend/internal/app"
	"github.com/artigraph/backend/internal/storage"
	"github.com/artigraph/backend/pkg/ai"
	"github.com/artigraph/backend/pkg/graph"
	"github.com/artigraph/backend/pkg/loader"
	ioloader "github.com/artigraph/backend/pkg/loader/io"
	s3loader "github.com/artigraph/backend/pkg/loader/s3"
	"github.com/artigraph/backend/pkg/store"

	"github.com/spf13/cobra"
)

type processOptions struct {
	Simulate bool
	UserID   string
	Attempts int
	MaxBytes int
}

func newProcessCmd() *cobra.Command {
	opts := processOptions{}
	cmd := &cobra.Command{
		Use:   "process <path>",
		Short: "Run the pipeline on one artifact",
		Long: `Run extraction, node generation and relationship inference on a local
file or an s3://bucket/key object and print the summary as JSON.
With --simulate nothing is written to Neo4j.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Simulate, "simulate", false, "Skip persistence and report what would be written")
	cmd.Flags().StringVar(&opts.UserID, "user", "", "User the artifact is attributed to")
	cmd.Flags().IntVar(&opts.Attempts, "attempts", 0, "Extraction attempts while the result is empty (default from GRAPH_EXTRACT_ATTEMPTS)")
	cmd.Flags().IntVar(&opts.MaxBytes, "max-bytes", loader.DefaultMaxBytes, "Largest artifact accepted")
	return cmd
}

func runProcess(ctx context.Context, out io.Writer, path string, opts processOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Attempts > 0 {
		cfg.Graph.ExtractAttempts = opts.Attempts
	}

	l, err := artifactLoader(ctx, path)
	if err != nil {
		return err
	}

	aiClient, err := app.NewAIClient(cfg.AI)
	if err != nil {
		return err
	}

	var graphStorage store.GraphStorage
	if !opts.Simulate {
		s, err := app.OpenGraphStorage(ctx, cfg.Neo4j)
		if err != nil {
			return fmt.Errorf("%w: %w", graph.ErrExternalService, err)
		}
		defer s.Close(context.Background())
		graphStorage = s
	}

	graphClient, err := app.NewGraphClient(cfg, nil)
	if err != nil {
		return err
	}

	return processArtifact(ctx, out, path, opts, l, graphClient, aiClient, graphStorage)
}

// processArtifact loads path through l, runs the pipeline and writes the
// summary to out.
func processArtifact(
	ctx context.Context,
	out io.Writer,
	path string,
	opts processOptions,
	l loader.ArtifactLoader,
	graphClient *graph.GraphClient,
	aiClient ai.GraphAIClient,
	graphStorage store.GraphStorage,
) error {
	src := loader.ArtifactSource{Path: path, MaxBytes: opts.MaxBytes, Loader: l}
	code, err := src.GetText(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	summary, err := graphClient.ProcessArtifact(ctx, graph.ArtifactRequest{
		Code:     code,
		UserID:   opts.UserID,
		Simulate: opts.Simulate,
	}, aiClient, graphStorage)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

// artifactLoader picks the S3 loader for s3:// paths and the filesystem
// loader for everything else.
func artifactLoader(ctx context.Context, path string) (loader.ArtifactLoader, error) {
	bucket, _, ok := loader.ParseS3URI(path)
	if !ok {
		return ioloader.NewIOArtifactLoader(), nil
	}
	client, err := storage.NewS3Client(ctx, storage.NewArchiveParams{
		Region:    cfg.S3.Region,
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		Bucket:    bucket,
	})
	if err != nil {
		return nil, err
	}
	return s3loader.NewS3ArtifactLoaderWithClient(bucket, client, 1), nil
}

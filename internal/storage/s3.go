package storage

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const artifactPrefix = "artifacts"

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archive keeps submitted artifacts in an S3 bucket. The worker reads them
// back through the S3 artifact loader.
type Archive struct {
	client putObjectAPI
	bucket string
}

type NewArchiveParams struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

// NewS3Client creates a path-style client, which S3-compatible stores such
// as MinIO require.
func NewS3Client(ctx context.Context, params NewArchiveParams) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(params.Region),
	}
	if params.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(params.Endpoint))
	}
	if params.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			params.AccessKey,
			params.SecretKey,
			"",
		)))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	}), nil
}

func NewArchive(client *s3.Client, bucket string) *Archive {
	return &Archive{client: client, bucket: bucket}
}

func (a *Archive) Bucket() string {
	return a.bucket
}

// ArtifactKey is the object key of an artifact. The extension of name is
// kept so the object gets a sensible content type.
func ArtifactKey(artifactID, name string, now time.Time) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		ext = ".txt"
	}
	return fmt.Sprintf("%s/%s/%s%s", artifactPrefix, now.UTC().Format("2006/01/02"), artifactID, ext)
}

// PutArtifact stores the code and returns its key.
func (a *Archive) PutArtifact(ctx context.Context, artifactID, name string, code []byte) (string, error) {
	key := ArtifactKey(artifactID, name, time.Now())
	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(code),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload artifact to S3: %w", err)
	}
	return key, nil
}

package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/artigraph/backend/pkg/loader"
)

type getObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3ArtifactLoader loads artifacts from an S3 bucket. A source path of the
// form s3://bucket/key overrides the configured bucket.
type S3ArtifactLoader struct {
	bucket string
	client getObjectAPI

	cache *lru.Cache[string, []byte]
	group singleflight.Group
}

// NewS3ArtifactLoaderWithClient reuses a configured client. At most
// cacheEntries artifacts are kept in memory; zero uses the default.
func NewS3ArtifactLoaderWithClient(bucket string, client *s3.Client, cacheEntries int) *S3ArtifactLoader {
	return newS3ArtifactLoader(bucket, client, cacheEntries)
}

func newS3ArtifactLoader(bucket string, client getObjectAPI, cacheEntries int) *S3ArtifactLoader {
	return &S3ArtifactLoader{
		bucket: bucket,
		client: client,
		cache:  loader.NewCache(cacheEntries),
	}
}

// GetArtifactBytes implements loader.ArtifactLoader.
func (l *S3ArtifactLoader) GetArtifactBytes(ctx context.Context, src loader.ArtifactSource) ([]byte, error) {
	cacheKey := loader.CacheKey(src)

	if cached, ok := l.cache.Get(cacheKey); ok {
		return cached, nil
	}

	result, err, _ := l.group.Do(cacheKey, func() (any, error) {
		if cached, ok := l.cache.Get(cacheKey); ok {
			return cached, nil
		}

		bucket, key := l.bucket, src.Path
		if b, k, ok := loader.ParseS3URI(src.Path); ok {
			bucket, key = b, k
		}
		if bucket == "" {
			return nil, fmt.Errorf("no bucket for artifact %s", src.Path)
		}

		out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get artifact %s from bucket %s: %w", key, bucket, err)
		}
		defer out.Body.Close()

		buf := new(bytes.Buffer)
		if _, err := io.Copy(buf, out.Body); err != nil {
			return nil, fmt.Errorf("failed to read artifact %s: %w", key, err)
		}
		b := buf.Bytes()

		l.cache.Add(cacheKey, b)
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

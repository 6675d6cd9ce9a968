package io

import (
	"context"
	"os"

	"github.com/artigraph/backend/pkg/loader"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// IOArtifactLoader reads artifacts from the local filesystem. Reads are
// cached per source and concurrent reads of the same file are collapsed.
type IOArtifactLoader struct {
	cache *lru.Cache[string, []byte]
	group singleflight.Group
}

func NewIOArtifactLoader() *IOArtifactLoader {
	return NewIOArtifactLoaderWithCacheSize(loader.DefaultCacheEntries)
}

// NewIOArtifactLoaderWithCacheSize keeps at most entries files in memory.
func NewIOArtifactLoaderWithCacheSize(entries int) *IOArtifactLoader {
	return &IOArtifactLoader{cache: loader.NewCache(entries)}
}

// GetArtifactBytes implements loader.ArtifactLoader.
func (l *IOArtifactLoader) GetArtifactBytes(ctx context.Context, src loader.ArtifactSource) ([]byte, error) {
	key := loader.CacheKey(src)

	if cached, ok := l.cache.Get(key); ok {
		return cached, nil
	}

	result, err, _ := l.group.Do(key, func() (any, error) {
		if cached, ok := l.cache.Get(key); ok {
			return cached, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		b, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, err
		}

		l.cache.Add(key, b)
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultMaxBytes caps the size of a loaded artifact.
	DefaultMaxBytes = 1 << 20

	// DefaultCacheEntries bounds the number of artifacts a loader keeps.
	DefaultCacheEntries = 64
)

var (
	ErrNotText  = errors.New("artifact is not valid UTF-8 text")
	ErrTooLarge = errors.New("artifact exceeds the size limit")
)

// ArtifactSource points at one code artifact. The content is fetched by the
// associated ArtifactLoader.
type ArtifactSource struct {
	ID       string
	Path     string
	MaxBytes int
	Loader   ArtifactLoader
}

// ArtifactLoader fetches the raw bytes of an artifact. Implementations may
// read from disk, object storage or any other source.
type ArtifactLoader interface {
	GetArtifactBytes(ctx context.Context, src ArtifactSource) ([]byte, error)
}

// GetText loads the artifact and returns it as text. A leading byte order
// mark is dropped and line endings are normalized to \n.
func (s *ArtifactSource) GetText(ctx context.Context) (string, error) {
	if s.Loader == nil {
		return "", fmt.Errorf("no loader for artifact %s", s.Path)
	}
	b, err := s.Loader.GetArtifactBytes(ctx, *s)
	if err != nil {
		return "", err
	}

	limit := s.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	if len(b) > limit {
		return "", fmt.Errorf("%w: %s is %d bytes, limit %d", ErrTooLarge, s.Path, len(b), limit)
	}
	return normalizeText(b)
}

func normalizeText(b []byte) (string, error) {
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(b) {
		return "", ErrNotText
	}
	s := strings.ReplaceAll(string(b), "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n"), nil
}

// NewCache returns a bounded LRU cache of artifact bytes. Sizes below one
// use DefaultCacheEntries.
func NewCache(entries int) *lru.Cache[string, []byte] {
	if entries <= 0 {
		entries = DefaultCacheEntries
	}
	// lru.New only fails for non-positive sizes.
	c, _ := lru.New[string, []byte](entries)
	return c
}

// CacheKey identifies a source in loader caches.
func CacheKey(src ArtifactSource) string {
	return src.ID + ":" + src.Path
}

// ParseS3URI splits s3://bucket/key. ok is false for anything else.
func ParseS3URI(uri string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(uri, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

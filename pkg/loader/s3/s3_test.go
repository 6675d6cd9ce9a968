package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/artigraph/backend/pkg/loader"
)

type fakeS3 struct {
	objects map[string]string
	calls   int
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.calls++
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3ArtifactLoader(t *testing.T) {
	client := &fakeS3{objects: map[string]string{
		"artifacts/a.js": "fetch('/orders')",
		"other/b.sql":    "SELECT 1",
	}}
	l := newS3ArtifactLoader("artifacts", client, 0)
	ctx := context.Background()

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "configured bucket", path: "a.js", want: "fetch('/orders')"},
		{name: "uri overrides bucket", path: "s3://other/b.sql", want: "SELECT 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := loader.ArtifactSource{ID: tt.name, Path: tt.path, Loader: l}
			got, err := src.GetText(ctx)
			if err != nil {
				t.Fatalf("GetText() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("GetText() = %q, want %q", got, tt.want)
			}
		})
	}

	src := loader.ArtifactSource{ID: "configured bucket", Path: "a.js", Loader: l}
	if _, err := src.GetText(ctx); err != nil {
		t.Fatal(err)
	}
	if client.calls != 2 {
		t.Fatalf("expected cached read, got %d calls", client.calls)
	}
}

func TestS3ArtifactLoaderMissing(t *testing.T) {
	l := newS3ArtifactLoader("artifacts", &fakeS3{}, 0)
	src := loader.ArtifactSource{Path: "missing.js", Loader: l}
	if _, err := src.GetText(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
}

func TestS3ArtifactLoaderCacheIsBounded(t *testing.T) {
	client := &fakeS3{objects: map[string]string{
		"artifacts/a.js": "a",
		"artifacts/b.js": "b",
	}}
	l := newS3ArtifactLoader("artifacts", client, 1)
	ctx := context.Background()

	read := func(id, path string) {
		t.Helper()
		src := loader.ArtifactSource{ID: id, Path: path, Loader: l}
		if _, err := src.GetText(ctx); err != nil {
			t.Fatalf("GetText(%s) error = %v", path, err)
		}
	}

	read("a", "a.js")
	read("a", "a.js") // redelivery of the same artifact
	if client.calls != 1 {
		t.Fatalf("calls after repeated read = %d, want 1", client.calls)
	}

	read("b", "b.js")
	read("a", "a.js") // evicted by b
	if client.calls != 3 {
		t.Fatalf("calls after eviction = %d, want 3", client.calls)
	}
}

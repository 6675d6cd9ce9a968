package io

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/artigraph/backend/pkg/loader"
)

func TestIOArtifactLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.js")
	if err := os.WriteFile(path, []byte("fetch('/orders')"), 0o600); err != nil {
		t.Fatal(err)
	}

	l := NewIOArtifactLoader()
	src := loader.ArtifactSource{ID: "1", Path: path, Loader: l}

	text, err := src.GetText(context.Background())
	if err != nil {
		t.Fatalf("GetText() error = %v", err)
	}
	if text != "fetch('/orders')" {
		t.Fatalf("GetText() = %q", text)
	}

	// Served from cache after the file is gone.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if _, err := src.GetText(context.Background()); err != nil {
		t.Fatalf("cached GetText() error = %v", err)
	}
}

func TestIOArtifactLoaderMissingFile(t *testing.T) {
	l := NewIOArtifactLoader()
	src := loader.ArtifactSource{ID: "1", Path: filepath.Join(t.TempDir(), "missing.js"), Loader: l}
	if _, err := src.GetText(context.Background()); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestIOArtifactLoaderEvictsOldest(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.js")
	second := filepath.Join(dir, "second.js")
	for _, p := range []string{first, second} {
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	l := NewIOArtifactLoaderWithCacheSize(1)
	ctx := context.Background()
	a := loader.ArtifactSource{ID: "a", Path: first, Loader: l}
	b := loader.ArtifactSource{ID: "b", Path: second, Loader: l}

	if _, err := a.GetText(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := b.GetText(ctx); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(first); err != nil {
		t.Fatal(err)
	}
	if _, err := a.GetText(ctx); err == nil {
		t.Fatal("expected the evicted file to be read again and fail")
	}
	if err := os.Remove(second); err != nil {
		t.Fatal(err)
	}
	if _, err := b.GetText(ctx); err != nil {
		t.Fatalf("most recent file should still be cached: %v", err)
	}
}

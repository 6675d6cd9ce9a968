package graph

import "errors"

var (
	// ErrInvalidInput is returned before any external call when the artifact
	// text is empty.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExternalService wraps failures of the language model, the embedding
	// service or the graph store that abort a run.
	ErrExternalService = errors.New("external service failure")
)

package graph

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/artigraph/backend/pkg/ai"
	"github.com/artigraph/backend/pkg/common"
	"github.com/artigraph/backend/pkg/store"
)

const (
	schemaEntities      = "extracted_entities"
	schemaBusiness      = "business_analysis"
	schemaRelationships = "relationships"
)

// responder builds an answer from the prompt it receives.
type responder func(prompt string) any

// fakeAIClient answers structured requests from per-schema scripts. Each
// script entry is a value, an error or a responder; the last entry repeats.
type fakeAIClient struct {
	mu      sync.Mutex
	scripts map[string][]any
	calls   map[string]int
	prompts map[string][]string

	embedErrFor map[string]bool
	embedCalls  int
}

func newFakeAIClient() *fakeAIClient {
	return &fakeAIClient{
		scripts:     map[string][]any{},
		calls:       map[string]int{},
		prompts:     map[string][]string{},
		embedErrFor: map[string]bool{},
	}
}

func (f *fakeAIClient) script(name string, entries ...any) *fakeAIClient {
	f.scripts[name] = entries
	return f
}

func (f *fakeAIClient) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[name]++
	f.prompts[name] = append(f.prompts[name], prompt)

	entries := f.scripts[name]
	if len(entries) == 0 {
		return nil
	}
	entry := entries[min(f.calls[name]-1, len(entries)-1)]

	switch v := entry.(type) {
	case error:
		return v
	case responder:
		entry = v(prompt)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (f *fakeAIClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.embedCalls++
	if f.embedErrFor[string(input)] {
		return nil, errors.New("embedding service unavailable")
	}
	return []float32{float32(len(input)), 1}, nil
}

func (f *fakeAIClient) ResetMetrics()               {}
func (f *fakeAIClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func (f *fakeAIClient) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

type fakeGraphStore struct {
	updates  []common.GraphUpdate
	existing []common.Node
	err      error
}

func (s *fakeGraphStore) Persist(ctx context.Context, update common.GraphUpdate) (store.PersistResult, error) {
	if s.err != nil {
		return store.PersistResult{}, s.err
	}
	s.updates = append(s.updates, update)

	links := 0
	for _, n := range update.Nodes {
		if n.Kind().ProvenanceEligible() {
			links++
		}
	}
	if update.User != nil {
		links++
	}
	return store.PersistResult{
		NodesCreated:         len(update.Nodes),
		RelationshipsCreated: len(update.Relationships),
		ProvenanceLinks:      links,
	}, nil
}

func (s *fakeGraphStore) GetExistingNodes(ctx context.Context, limit int) ([]common.Node, error) {
	if len(s.existing) > limit {
		return s.existing[:limit], nil
	}
	return s.existing, nil
}

type fakeRunStore struct {
	mu         sync.Mutex
	states     []common.RunState
	last       common.Run
	embeddings int
}

func (s *fakeRunStore) SaveRun(ctx context.Context, run common.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, run.State)
	s.last = run
	return nil
}

func (s *fakeRunStore) GetRun(ctx context.Context, id string) (*common.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last.ID != id {
		return nil, store.ErrNotFound
	}
	run := s.last
	return &run, nil
}

func (s *fakeRunStore) SaveEmbeddings(ctx context.Context, runID string, nodes []common.Node) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range nodes {
		s.embeddings += len(n.Embeddings())
	}
	return s.embeddings, nil
}

func ordersEntities() common.ExtractedEntities {
	return common.ExtractedEntities{
		APIs: []common.ExtractedAPI{
			{ID: "api_1", Name: "Order System API", Description: "orders", BaseURL: "https://api.ordersystem.com"},
		},
		Endpoints: []common.ExtractedEndpoint{
			{ID: "endpoint_1", APIID: "api_1", Path: "/orders", Method: "get", Parameters: nil},
		},
		Queries: []common.ExtractedQuery{
			{ID: "query_1", PreguntaOriginal: "Retrieve all customer orders", SQLQuery: "SELECT * FROM orders"},
		},
		Tables: []common.ExtractedTable{
			{ID: "table_1", NombreTabla: "orders", Columnas: []string{"id", "total"}, TiposDatos: []string{"INTEGER", "FLOAT"}},
		},
	}
}

func mustGraphClient(params NewGraphClientParams) *GraphClient {
	g, err := NewGraphClient(params)
	if err != nil {
		panic(err)
	}
	return g
}

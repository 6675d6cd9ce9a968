package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/artigraph/backend/internal/queue"
	mid "github.com/artigraph/backend/internal/server/middleware"
	"github.com/artigraph/backend/pkg/ai"
	"github.com/artigraph/backend/pkg/common"
	"github.com/artigraph/backend/pkg/graph"
	"github.com/artigraph/backend/pkg/logger"
	"github.com/artigraph/backend/pkg/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rabbitmq/amqp091-go"
)

type silentAI struct{}

func (silentAI) GenerateCompletionWithFormat(context.Context, string, string, string, any, ...ai.GenerateOption) error {
	return nil
}
func (silentAI) GenerateEmbedding(context.Context, []byte) ([]float32, error) { return nil, nil }
func (silentAI) ResetMetrics()                                                {}
func (silentAI) GetMetrics() ai.ModelMetrics                                  { return ai.ModelMetrics{} }

// meteredAI is silentAI with fixed usage numbers.
type meteredAI struct{ silentAI }

func (meteredAI) GetMetrics() ai.ModelMetrics {
	return ai.ModelMetrics{Requests: 2, InputTokens: 120, OutputTokens: 30, TotalTokens: 150}
}

type logEntry struct {
	message string
	keyvals []any
}

// recordingLogger captures Info calls; the other levels are discarded.
type recordingLogger struct {
	entries []logEntry
}

func (l *recordingLogger) Log(string, ...any)   {}
func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Warn(string, ...any)  {}
func (l *recordingLogger) Error(string, ...any) {}
func (l *recordingLogger) Fatal(string, ...any) {}
func (l *recordingLogger) Info(message string, keyvals ...any) {
	l.entries = append(l.entries, logEntry{message: message, keyvals: keyvals})
}

type memoryGraph struct {
	updates []common.GraphUpdate
	err     error
}

func (m *memoryGraph) Persist(_ context.Context, u common.GraphUpdate) (store.PersistResult, error) {
	if m.err != nil {
		return store.PersistResult{}, m.err
	}
	m.updates = append(m.updates, u)
	return store.PersistResult{NodesCreated: len(u.Nodes)}, nil
}

func (m *memoryGraph) GetExistingNodes(context.Context, int) ([]common.Node, error) {
	return nil, nil
}

type memoryRuns map[string]common.Run

func (m memoryRuns) SaveRun(_ context.Context, run common.Run) error {
	m[run.ID] = run
	return nil
}

func (m memoryRuns) GetRun(_ context.Context, id string) (*common.Run, error) {
	run, ok := m[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &run, nil
}

func (m memoryRuns) SaveEmbeddings(context.Context, string, []common.Node) (int, error) {
	return 0, nil
}

type recordingPublisher struct {
	published []amqp091.Publishing
}

func (p *recordingPublisher) Publish(_, _ string, _, _ bool, msg amqp091.Publishing) error {
	p.published = append(p.published, msg)
	return nil
}

type memoryArchive map[string][]byte

func (a memoryArchive) PutArtifact(_ context.Context, artifactID, _ string, code []byte) (string, error) {
	key := "artifacts/" + artifactID + ".txt"
	a[key] = code
	return key, nil
}

func newTestApp(t *testing.T) (*mid.App, *memoryGraph) {
	t.Helper()
	g, err := graph.NewGraphClient(graph.NewGraphClientParams{ExtractAttempts: 1})
	if err != nil {
		t.Fatalf("NewGraphClient() error = %v", err)
	}
	mem := &memoryGraph{}
	return &mid.App{Graph: g, AiClient: silentAI{}, Store: mem}, mem
}

func do(t *testing.T, a *mid.App, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	NewEcho(a).ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON: %q", rec.Body.String())
	}
	return out
}

func TestRoot(t *testing.T) {
	a, _ := newTestApp(t)
	rec := do(t, a, http.MethodGet, "/", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if msg := decode(t, rec)["message"]; msg != "Artifact Processing API is running! New version" {
		t.Fatalf("message = %v", msg)
	}
}

func TestProcessArtifact(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		storeErr   error
		wantStatus int
	}{
		{name: "ok", body: `{"code":"fetch('/orders')","user_id":"u1"}`, wantStatus: http.StatusOK},
		{name: "missing code", body: `{"user_id":"u1"}`, wantStatus: http.StatusBadRequest},
		{name: "blank code", body: `{"code":"   "}`, wantStatus: http.StatusBadRequest},
		{name: "malformed body", body: `{"code":`, wantStatus: http.StatusBadRequest},
		{name: "store down", body: `{"code":"x"}`, storeErr: errors.New("neo4j unavailable"), wantStatus: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, mem := newTestApp(t)
			mem.err = tt.storeErr

			rec := do(t, a, http.MethodPost, "/process_artifact/", tt.body, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			out := decode(t, rec)
			if tt.wantStatus == http.StatusOK {
				if out["artifact_id"] == "" || out["artifact_id"] == nil {
					t.Fatalf("missing artifact_id in %v", out)
				}
				if len(mem.updates) != 1 {
					t.Fatalf("persist calls = %d, want 1", len(mem.updates))
				}
				return
			}
			if out["detail"] == nil {
				t.Fatalf("error response without detail: %v", out)
			}
		})
	}
}

func TestProcessArtifactSimulateSkipsStore(t *testing.T) {
	a, mem := newTestApp(t)
	rec := do(t, a, http.MethodPost, "/process_artifact/", `{"code":"x","simulate":true}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(mem.updates) != 0 {
		t.Fatal("simulation must not persist")
	}
	if decode(t, rec)["simulated"] != true {
		t.Fatal("expected simulated summary")
	}
}

func TestProcessArtifactLogsAIMetrics(t *testing.T) {
	rec := &recordingLogger{}
	logger.Init(rec)
	t.Cleanup(func() { logger.Init() })

	a, _ := newTestApp(t)
	a.AiClient = meteredAI{}
	if res := do(t, a, http.MethodPost, "/process_artifact/", `{"code":"x"}`, nil); res.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", res.Code, res.Body.String())
	}

	for _, e := range rec.entries {
		if e.message != "[Server] AI metrics" {
			continue
		}
		kv := map[any]any{}
		for i := 0; i+1 < len(e.keyvals); i += 2 {
			kv[e.keyvals[i]] = e.keyvals[i+1]
		}
		if kv["total_tokens"] != 150 || kv["requests"] != 2 {
			t.Fatalf("unexpected metrics %v", kv)
		}
		return
	}
	t.Fatal("AI metrics were not logged")
}

func TestSubmitArtifact(t *testing.T) {
	t.Run("archived", func(t *testing.T) {
		a, _ := newTestApp(t)
		pub := &recordingPublisher{}
		archive := memoryArchive{}
		a.Queue = pub
		a.Archive = archive

		rec := do(t, a, http.MethodPost, "/artifacts", `{"code":"fetch('/x')","name":"app.js"}`, nil)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		out := decode(t, rec)
		key, _ := out["s3_key"].(string)
		if string(archive[key]) != "fetch('/x')" {
			t.Fatalf("archive[%q] = %q", key, archive[key])
		}
		if len(pub.published) != 1 {
			t.Fatalf("published = %d, want 1", len(pub.published))
		}
		msg, err := queue.DecodeArtifactMsg(pub.published[0].Body)
		if err != nil {
			t.Fatalf("DecodeArtifactMsg() error = %v", err)
		}
		if msg.S3Key != key || msg.Code != "" || msg.ArtifactID != out["artifact_id"] {
			t.Fatalf("unexpected message %+v", msg)
		}
	})

	t.Run("inline without archive", func(t *testing.T) {
		a, _ := newTestApp(t)
		pub := &recordingPublisher{}
		a.Queue = pub

		rec := do(t, a, http.MethodPost, "/artifacts", `{"code":"x","simulate":true}`, nil)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d", rec.Code)
		}
		msg, err := queue.DecodeArtifactMsg(pub.published[0].Body)
		if err != nil {
			t.Fatalf("DecodeArtifactMsg() error = %v", err)
		}
		if msg.Code != "x" || !msg.Simulate {
			t.Fatalf("unexpected message %+v", msg)
		}
	})

	t.Run("no queue", func(t *testing.T) {
		a, _ := newTestApp(t)
		rec := do(t, a, http.MethodPost, "/artifacts", `{"code":"x"}`, nil)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestGetRun(t *testing.T) {
	a, _ := newTestApp(t)
	if rec := do(t, a, http.MethodGet, "/runs/r1", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status without ledger = %d", rec.Code)
	}

	a.Runs = memoryRuns{"r1": {ID: "r1", State: common.RunPersisted, Nodes: 3}}
	rec := do(t, a, http.MethodGet, "/runs/r1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if out := decode(t, rec); out["state"] != string(common.RunPersisted) {
		t.Fatalf("state = %v", out["state"])
	}
	if rec := do(t, a, http.MethodGet, "/runs/missing", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("status for missing run = %d", rec.Code)
	}
}

func TestAuth(t *testing.T) {
	secret := []byte("test-secret")
	signed := func(claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
		if err != nil {
			t.Fatalf("SignedString() error = %v", err)
		}
		return s
	}

	tests := []struct {
		name       string
		token      string
		wantStatus int
		wantUser   string
	}{
		{name: "missing", wantStatus: http.StatusUnauthorized},
		{name: "master key", token: "master", wantStatus: http.StatusAccepted, wantUser: "admin"},
		{name: "jwt subject", token: signed(jwt.MapClaims{"sub": "u-42"}), wantStatus: http.StatusAccepted, wantUser: "u-42"},
		{name: "jwt numeric id", token: signed(jwt.MapClaims{"id": float64(7)}), wantStatus: http.StatusAccepted, wantUser: "7"},
		{name: "jwt without user", token: signed(jwt.MapClaims{"role": "x"}), wantStatus: http.StatusUnauthorized},
		{name: "garbage", token: "not-a-token", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newTestApp(t)
			pub := &recordingPublisher{}
			a.Queue = pub
			a.MasterAPIKey = "master"
			a.MasterUserID = "admin"
			a.Keyfunc = func(*jwt.Token) (any, error) { return secret, nil }

			header := http.Header{}
			if tt.token != "" {
				header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := do(t, a, http.MethodPost, "/artifacts", `{"code":"x"}`, header)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantUser == "" {
				if out := decode(t, rec); out["detail"] == nil {
					t.Fatalf("rejection without detail: %v", out)
				}
				return
			}
			msg, err := queue.DecodeArtifactMsg(pub.published[0].Body)
			if err != nil {
				t.Fatalf("DecodeArtifactMsg() error = %v", err)
			}
			if msg.UserID != tt.wantUser {
				t.Fatalf("user = %q, want %q", msg.UserID, tt.wantUser)
			}
		})
	}
}

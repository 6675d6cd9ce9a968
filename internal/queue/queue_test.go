package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/artigraph/backend/pkg/ai"
	"github.com/artigraph/backend/pkg/common"
	"github.com/artigraph/backend/pkg/graph"
	"github.com/artigraph/backend/pkg/leaselock"
	"github.com/artigraph/backend/pkg/loader"
	"github.com/artigraph/backend/pkg/store"

	"github.com/rabbitmq/amqp091-go"
)

type published struct {
	key string
	msg amqp091.Publishing
}

type fakePublisher struct {
	sent []published
	err  error
}

func (p *fakePublisher) Publish(_, key string, _, _ bool, msg amqp091.Publishing) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{key: key, msg: msg})
	return nil
}

type fakeAck struct {
	acks, nacks int
	requeued    bool
}

func (a *fakeAck) Ack(uint64, bool) error { a.acks++; return nil }
func (a *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacks++
	a.requeued = requeue
	return nil
}
func (a *fakeAck) Reject(uint64, bool) error { return nil }

// silentAI answers every structured request with an empty object.
type silentAI struct{}

func (silentAI) GenerateCompletionWithFormat(context.Context, string, string, string, any, ...ai.GenerateOption) error {
	return nil
}
func (silentAI) GenerateEmbedding(context.Context, []byte) ([]float32, error) { return nil, nil }
func (silentAI) ResetMetrics()                                                {}
func (silentAI) GetMetrics() ai.ModelMetrics                                  { return ai.ModelMetrics{} }

type memoryGraph struct {
	updates []common.GraphUpdate
}

func (m *memoryGraph) Persist(_ context.Context, u common.GraphUpdate) (store.PersistResult, error) {
	m.updates = append(m.updates, u)
	return store.PersistResult{NodesCreated: len(u.Nodes)}, nil
}

func (m *memoryGraph) GetExistingNodes(context.Context, int) ([]common.Node, error) {
	return nil, nil
}

type mapLoader map[string]string

func (l mapLoader) GetArtifactBytes(_ context.Context, src loader.ArtifactSource) ([]byte, error) {
	s, ok := l[src.Path]
	if !ok {
		return nil, errors.New("missing")
	}
	return []byte(s), nil
}

type busyLeaser struct{}

func (busyLeaser) WithLease(context.Context, string, leaselock.Options, func(context.Context) error) error {
	return leaselock.ErrBusy
}

type recordingLeaser struct {
	keys []string
}

func (l *recordingLeaser) WithLease(ctx context.Context, key string, _ leaselock.Options, fn func(context.Context) error) error {
	l.keys = append(l.keys, key)
	return fn(ctx)
}

func newProcessor(t *testing.T) (*Processor, *memoryGraph) {
	t.Helper()
	g, err := graph.NewGraphClient(graph.NewGraphClientParams{ExtractAttempts: 1})
	if err != nil {
		t.Fatal(err)
	}
	mem := &memoryGraph{}
	return &Processor{
		Graph:  g,
		AI:     silentAI{},
		Store:  mem,
		Loader: mapLoader{"artifacts/a1.js": "fetch('/orders')"},
	}, mem
}

func TestDecodeArtifactMsg(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "inline code", body: `{"artifact_id":"a","code":"x"}`},
		{name: "s3 key", body: `{"artifact_id":"a","s3_key":"k"}`},
		{name: "both", body: `{"code":"x","s3_key":"k"}`, wantErr: true},
		{name: "neither", body: `{"user_id":"u"}`, wantErr: true},
		{name: "not json", body: `code`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeArtifactMsg([]byte(tt.body))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMessage) {
					t.Fatalf("expected ErrInvalidMessage, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeArtifactMsg() error = %v", err)
			}
		})
	}
}

func TestPublishArtifact(t *testing.T) {
	pub := &fakePublisher{}
	if err := PublishArtifact(pub, QueueArtifactMsg{ArtifactID: "a1", S3Key: "k"}); err != nil {
		t.Fatalf("PublishArtifact() error = %v", err)
	}
	if len(pub.sent) != 1 || pub.sent[0].key != ArtifactQueue {
		t.Fatalf("unexpected publications %+v", pub.sent)
	}
	if pub.sent[0].msg.DeliveryMode != amqp091.Persistent {
		t.Fatal("artifact messages must be persistent")
	}

	if err := PublishArtifact(pub, QueueArtifactMsg{ArtifactID: "a2"}); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
}

func TestProcessArtifactMessageFromS3(t *testing.T) {
	p, mem := newProcessor(t)
	leases := &recordingLeaser{}
	p.Leases = leases

	summary, err := p.ProcessArtifactMessage(context.Background(), []byte(`{"artifact_id":"a1","s3_key":"artifacts/a1.js","user_id":"u"}`))
	if err != nil {
		t.Fatalf("ProcessArtifactMessage() error = %v", err)
	}
	if summary.ArtifactID != "a1" || !summary.ExtractionEmpty {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(mem.updates) != 1 || mem.updates[0].Artifact.Code != "fetch('/orders')" {
		t.Fatalf("unexpected updates %+v", mem.updates)
	}
	if len(leases.keys) != 1 || leases.keys[0] != "artifact:a1" {
		t.Fatalf("unexpected lease keys %v", leases.keys)
	}
}

func TestProcessArtifactMessageBusy(t *testing.T) {
	p, mem := newProcessor(t)
	p.Leases = busyLeaser{}

	_, err := p.ProcessArtifactMessage(context.Background(), []byte(`{"artifact_id":"a1","code":"x"}`))
	if !errors.Is(err, leaselock.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if IsPermanent(err) {
		t.Fatal("a busy lease must be retried")
	}
	if len(mem.updates) != 0 {
		t.Fatal("nothing may be persisted without the lease")
	}
}

func TestHandleDeliverySuccessAcks(t *testing.T) {
	p, _ := newProcessor(t)
	ack := &fakeAck{}
	pub := &fakePublisher{}
	msg := amqp091.Delivery{Acknowledger: ack, Body: []byte(`{"artifact_id":"a1","code":"x"}`)}

	if err := HandleDelivery(context.Background(), pub, msg, ArtifactQueue, p); err != nil {
		t.Fatalf("HandleDelivery() error = %v", err)
	}
	if ack.acks != 1 || len(pub.sent) != 0 {
		t.Fatalf("acks = %d, republished = %d", ack.acks, len(pub.sent))
	}
}

func TestHandleDeliveryInvalidGoesToDLQ(t *testing.T) {
	p, _ := newProcessor(t)
	ack := &fakeAck{}
	pub := &fakePublisher{}
	msg := amqp091.Delivery{Acknowledger: ack, Body: []byte(`{"artifact_id":"a1","code":"   "}`)}

	if err := HandleDelivery(context.Background(), pub, msg, ArtifactQueue, p); err == nil {
		t.Fatal("expected an error")
	}
	if len(pub.sent) != 1 || pub.sent[0].key != "artifact_queue_dlq" || ack.acks != 1 {
		t.Fatalf("unexpected routing %+v, acks %d", pub.sent, ack.acks)
	}
}

func TestHandleProcessingError(t *testing.T) {
	transient := errors.New("neo4j unavailable")
	tests := []struct {
		name        string
		headers     amqp091.Table
		cause       error
		wantQueue   string
		wantRetries int32
	}{
		{name: "first failure", cause: transient, wantQueue: "artifact_queue_retry", wantRetries: 1},
		{name: "int64 header", headers: amqp091.Table{"x-retries": int64(3)}, cause: transient, wantQueue: "artifact_queue_retry", wantRetries: 4},
		{name: "retries exhausted", headers: amqp091.Table{"x-retries": int32(10)}, cause: transient, wantQueue: "artifact_queue_dlq"},
		{name: "invalid input", cause: graph.ErrInvalidInput, wantQueue: "artifact_queue_dlq"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAck{}
			pub := &fakePublisher{}
			msg := amqp091.Delivery{Acknowledger: ack, Headers: tt.headers, Body: []byte("{}")}

			HandleProcessingError(pub, msg, ArtifactQueue, tt.cause)

			if len(pub.sent) != 1 || pub.sent[0].key != tt.wantQueue {
				t.Fatalf("published to %+v, want %s", pub.sent, tt.wantQueue)
			}
			if tt.wantRetries > 0 && pub.sent[0].msg.Headers["x-retries"] != tt.wantRetries {
				t.Fatalf("x-retries = %v, want %d", pub.sent[0].msg.Headers["x-retries"], tt.wantRetries)
			}
			if ack.acks != 1 {
				t.Fatalf("acks = %d, want 1", ack.acks)
			}
		})
	}
}

func TestHandleProcessingErrorRequeuesWhenPublishFails(t *testing.T) {
	ack := &fakeAck{}
	pub := &fakePublisher{err: errors.New("channel closed")}
	msg := amqp091.Delivery{Acknowledger: ack, Body: []byte("{}")}

	HandleProcessingError(pub, msg, ArtifactQueue, errors.New("boom"))

	if ack.nacks != 1 || !ack.requeued || ack.acks != 0 {
		t.Fatalf("nacks = %d, requeued = %v, acks = %d", ack.nacks, ack.requeued, ack.acks)
	}
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/analytics/router"
	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

func TestBuildEnvelope(t *testing.T) {
	orderID := uuid.NewString()
	payload := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    "evt-1",
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Data:       json.RawMessage(`{"order_id":"` + orderID + `"}`),
	}
	msg := buildMessage(payload, map[string]string{
		"event_type":     "order_paid",
		"aggregate_type": "order",
		"aggregate_id":   orderID,
	})

	env, err := decodeEnvelope(msg)
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	if env.EventType != enums.EventOrderPaid {
		t.Fatalf("unexpected event type %v", env.EventType)
	}
	if env.AggregateType != enums.AggregateOrder || env.AggregateID != orderID {
		t.Fatalf("unexpected aggregate %v/%s", env.AggregateType, env.AggregateID)
	}
	if env.EventID != "evt-1" || !env.OccurredAt.Equal(payload.OccurredAt) {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if string(env.Payload) != string(payload.Data) {
		t.Fatalf("expected payload data passed through, got %s", env.Payload)
	}
}

func TestBuildEnvelopeFallsBackToAttributes(t *testing.T) {
	eventID := uuid.NewString()
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	msg := buildMessage(outbox.PayloadEnvelope{Data: json.RawMessage(`{}`)}, map[string]string{
		"event_id":       eventID,
		"event_type":     "order_created",
		"aggregate_type": "order",
		"aggregate_id":   "o-1",
		"created_at":     created.Format(time.RFC3339Nano),
	})

	env, err := decodeEnvelope(msg)
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	if env.EventID != eventID || !env.OccurredAt.Equal(created) {
		t.Fatalf("expected attribute fallbacks, got %+v", env)
	}
}

func TestBuildEnvelopeRejects(t *testing.T) {
	good := map[string]string{"event_type": "order_paid", "aggregate_type": "order", "aggregate_id": "o-1"}
	cases := map[string]map[string]string{
		"unknown event type":     {"event_type": "order_shipped", "aggregate_type": "order", "aggregate_id": "o-1"},
		"unknown aggregate type": {"event_type": "order_paid", "aggregate_type": "cart", "aggregate_id": "o-1"},
		"missing aggregate id":   {"event_type": "order_paid", "aggregate_type": "order"},
	}
	for name, attrs := range cases {
		msg := buildMessage(outbox.PayloadEnvelope{EventID: "evt-1"}, attrs)
		if _, err := decodeEnvelope(msg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := decodeEnvelope(buildMessage(outbox.PayloadEnvelope{}, good)); err == nil {
		t.Fatal("expected error without event id")
	}
}

func TestProcessHandlesAndAcks(t *testing.T) {
	manager := &stubManager{}
	handler := &stubHandler{}
	svc := newTestServiceWithDeps(t, handler, manager)

	res := svc.process(context.Background(), buildOrderMessage(t))
	if res == nack {
		t.Fatal("expected ack")
	}
	if !handler.called || handler.envelope.EventType != enums.EventOrderPaid {
		t.Fatalf("expected handler invoked with order_paid, got %+v", handler.envelope)
	}
	if len(manager.checked) != 1 || manager.consumer != analyticsConsumerName {
		t.Fatalf("expected one check for %s, got %d for %q", analyticsConsumerName, len(manager.checked), manager.consumer)
	}
}

func TestProcessAlreadyProcessed(t *testing.T) {
	manager := &stubManager{checkResult: true}
	handler := &stubHandler{}
	svc := newTestServiceWithDeps(t, handler, manager)

	res := svc.process(context.Background(), buildOrderMessage(t))
	if res == nack {
		t.Fatal("expected ack, got nack")
	}
	if handler.called {
		t.Fatal("handler should not be invoked when already processed")
	}
}

func TestProcessIdempotencyFailureNacks(t *testing.T) {
	manager := &stubManager{checkErr: errors.New("redis down")}
	handler := &stubHandler{}
	svc := newTestServiceWithDeps(t, handler, manager)

	if res := svc.process(context.Background(), buildOrderMessage(t)); res != nack {
		t.Fatal("expected nack when idempotency store fails")
	}
	if handler.called {
		t.Fatal("handler should not run without a claim")
	}
}

func TestProcessHandlerErrorReleasesClaim(t *testing.T) {
	manager := &stubManager{}
	handler := &stubHandler{err: errors.New("bigquery down")}
	svc := newTestServiceWithDeps(t, handler, manager)

	if res := svc.process(context.Background(), buildOrderMessage(t)); res != nack {
		t.Fatal("expected nack on handler error")
	}
	if len(manager.deleted) != 1 {
		t.Fatalf("expected claim released, got %d deletes", len(manager.deleted))
	}
}

func TestProcessInvalidEnvelopeAcks(t *testing.T) {
	manager := &stubManager{}
	handler := &stubHandler{}
	svc := newTestServiceWithDeps(t, handler, manager)

	if res := svc.process(context.Background(), &gcppubsub.Message{Data: []byte("invalid json")}); res == nack {
		t.Fatal("invalid envelope should ack")
	}
	if handler.called || len(manager.checked) != 0 {
		t.Fatal("invalid envelopes never reach the handler or the idempotency store")
	}

	badID := buildMessage(outbox.PayloadEnvelope{EventID: "not-a-uuid"}, map[string]string{
		"event_type": "order_paid", "aggregate_type": "order", "aggregate_id": "o-1",
	})
	if res := svc.process(context.Background(), badID); res == nack {
		t.Fatal("non-uuid event ids should ack")
	}
}

func TestProcessUnsupportedEventKeepsClaim(t *testing.T) {
	manager := &stubManager{}
	handler := &stubHandler{err: fmt.Errorf("%w: order_paid", router.ErrUnsupportedEventType)}
	svc := newTestServiceWithDeps(t, handler, manager)

	if res := svc.process(context.Background(), buildOrderMessage(t)); res == nack {
		t.Fatal("unsupported event should ack")
	}
	if len(manager.deleted) != 0 {
		t.Fatal("idempotency delete should not run")
	}
}

type fakeReceiver struct {
	messages []*gcppubsub.Message
}

func (f *fakeReceiver) Receive(ctx context.Context, fn func(context.Context, *gcppubsub.Message)) error {
	for _, msg := range f.messages {
		fn(ctx, msg)
	}
	return nil
}

func TestRunDeliversEveryMessage(t *testing.T) {
	handler := &stubHandler{}
	svc := newTestServiceWithDeps(t, handler, &stubManager{})
	svc.subscription = &fakeReceiver{messages: []*gcppubsub.Message{buildOrderMessage(t), buildOrderMessage(t)}}

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if handler.calls != 2 {
		t.Fatalf("expected two handled messages, got %d", handler.calls)
	}
}

func TestNewServiceValidation(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "analytics-test", Output: io.Discard})
	if _, err := NewService(nil, &stubHandler{}, &stubManager{}, logg); err == nil {
		t.Fatal("expected error without subscription")
	}
	sub := &gcppubsub.Subscriber{}
	if _, err := NewService(sub, nil, &stubManager{}, logg); err == nil {
		t.Fatal("expected error without handler")
	}
	if _, err := NewService(sub, &stubHandler{}, nil, logg); err == nil {
		t.Fatal("expected error without idempotency manager")
	}
	if _, err := NewService(sub, &stubHandler{}, &stubManager{}, nil); err == nil {
		t.Fatal("expected error without logger")
	}
}

func buildOrderMessage(t *testing.T) *gcppubsub.Message {
	t.Helper()
	orderID := uuid.NewString()
	payload := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"order_id":"` + orderID + `","amount_cents":2500}`),
	}
	return buildMessage(payload, map[string]string{
		"event_type":     "order_paid",
		"aggregate_type": "order",
		"aggregate_id":   orderID,
	})
}

func buildMessage(payload outbox.PayloadEnvelope, attrs map[string]string) *gcppubsub.Message {
	data, _ := json.Marshal(payload)
	return &gcppubsub.Message{
		ID:         "msg-1",
		Data:       data,
		Attributes: attrs,
	}
}

func newTestServiceWithDeps(t *testing.T, handler Handler, manager *stubManager) *Service {
	t.Helper()
	return &Service{
		handler: handler,
		manager: manager,
		logg:    logger.New(logger.Options{ServiceName: "analytics-test", Output: io.Discard}),
	}
}

type stubHandler struct {
	called   bool
	calls    int
	envelope types.Envelope
	err      error
}

func (h *stubHandler) Handle(_ context.Context, envelope types.Envelope) error {
	h.called = true
	h.calls++
	h.envelope = envelope
	return h.err
}

type stubManager struct {
	checkResult bool
	checkErr    error
	consumer    string
	checked     []uuid.UUID
	deleted     []uuid.UUID
}

func (s *stubManager) CheckAndMarkProcessed(_ context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	s.consumer = consumer
	s.checked = append(s.checked, eventID)
	return s.checkResult, s.checkErr
}

func (s *stubManager) Delete(_ context.Context, _ string, eventID uuid.UUID) error {
	s.deleted = append(s.deleted, eventID)
	return nil
}

package otel

import (
	"context"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"auth-service/internal/telemetry"
)

func TestNewEventEmitter_NilProvider_ReturnsNoop(t *testing.T) {
	em := NewEventEmitter(nil)
	if em == nil {
		t.Fatal("NewEventEmitter(nil) returned nil")
	}
	if err := em.Emit(context.Background(), &telemetry.Event{Type: "auth.logout"}); err != nil {
		t.Errorf("noop Emit: %v", err)
	}
}

func TestEmit_NilEvent_ReturnsNil(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	em := NewEventEmitter(provider)
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(ctx, nil): %v", err)
	}
}

// recordCapture stores the last Record passed to Emit for assertion.
type recordCapture struct {
	rec   otellog.Record
	calls int
}

func (r *recordCapture) Emit(_ context.Context, rec otellog.Record) {
	r.rec = rec
	r.calls++
}

func attrsOf(rec otellog.Record) map[string]string {
	attrs := make(map[string]string)
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})
	return attrs
}

func TestEmit_AttributeAndBodyMapping(t *testing.T) {
	capture := &recordCapture{}
	em := NewEventEmitterWithLogger(capture)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	event := &telemetry.Event{
		Type:      "auth.login_success",
		UserID:    42,
		Source:    "http",
		IP:        "10.0.0.1",
		Metadata:  []byte(`{"role":"admin"}`),
		CreatedAt: created,
	}
	if err := em.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	rec := capture.rec
	if got := string(rec.Body().AsBytes()); got != `{"role":"admin"}` {
		t.Errorf("body = %q", got)
	}
	if !rec.Timestamp().Equal(created) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp(), created)
	}
	want := map[string]string{
		"event_type": "auth.login_success", "user_id": "42", "source": "http", "client_ip": "10.0.0.1",
	}
	attrs := attrsOf(rec)
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("attr %q = %q, want %q", k, attrs[k], v)
		}
	}
}

func TestEmit_PartialFields(t *testing.T) {
	capture := &recordCapture{}
	em := NewEventEmitterWithLogger(capture)
	before := time.Now().UTC()
	if err := em.Emit(context.Background(), &telemetry.Event{Type: "auth.login_failure"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	rec := capture.rec
	if !rec.Body().Empty() {
		t.Error("body should be empty when metadata is nil")
	}
	if rec.Timestamp().Before(before) {
		t.Errorf("timestamp %v should default to now", rec.Timestamp())
	}
	attrs := attrsOf(rec)
	if _, ok := attrs["user_id"]; ok {
		t.Error("user_id should be omitted for unknown principal")
	}
	if attrs["event_type"] != "auth.login_failure" {
		t.Errorf("event_type = %q", attrs["event_type"])
	}
}

func TestNewEventEmitterWithLogger_Nil(t *testing.T) {
	if err := NewEventEmitterWithLogger(nil).Emit(context.Background(), &telemetry.Event{}); err != nil {
		t.Errorf("Emit: %v", err)
	}
}

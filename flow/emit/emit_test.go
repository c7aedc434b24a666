package emit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestLogEmitter(t *testing.T) {
	t.Run("text mode", func(t *testing.T) {
		var buf bytes.Buffer
		emitter := NewLogEmitter(&buf, false)

		emitter.Emit(Event{RunID: "r1", Step: 3, NodeID: "credit_check", Msg: MsgNodeComplete})

		line := buf.String()
		if !strings.HasPrefix(line, "[node_complete] run=r1") {
			t.Errorf("unexpected line: %q", line)
		}
		if !strings.Contains(line, "step=3") || !strings.Contains(line, "node=credit_check") {
			t.Errorf("missing fields: %q", line)
		}
	})

	t.Run("text mode omits zero step and empty node", func(t *testing.T) {
		var buf bytes.Buffer
		emitter := NewLogEmitter(&buf, false)

		emitter.Emit(Event{RunID: "r1", Msg: MsgRunStarted})

		line := buf.String()
		if strings.Contains(line, "step=") || strings.Contains(line, "node=") {
			t.Errorf("run-level event should omit step and node: %q", line)
		}
	})

	t.Run("json mode", func(t *testing.T) {
		var buf bytes.Buffer
		emitter := NewLogEmitter(&buf, true)

		emitter.Emit(Event{
			RunID:  "r1",
			Step:   1,
			NodeID: "load_data",
			Msg:    MsgNodeStart,
			Meta:   map[string]any{"customer_id": "CUST001"},
		})

		var decoded map[string]any
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
		}
		if decoded["msg"] != MsgNodeStart || decoded["node_id"] != "load_data" {
			t.Errorf("decoded = %v", decoded)
		}
		meta, _ := decoded["meta"].(map[string]any)
		if meta["customer_id"] != "CUST001" {
			t.Errorf("meta lost: %v", decoded)
		}
	})
}

func TestBufferedEmitter(t *testing.T) {
	emitter := NewBufferedEmitter()
	emitter.Emit(Event{RunID: "r1", Step: 1, NodeID: "a", Msg: MsgNodeComplete})
	emitter.Emit(Event{RunID: "r1", Step: 2, NodeID: "b", Msg: MsgNodeComplete})
	emitter.Emit(Event{RunID: "r2", Step: 1, NodeID: "a", Msg: MsgNodeComplete})

	t.Run("history is per run and ordered", func(t *testing.T) {
		events := emitter.History("r1")
		if len(events) != 2 {
			t.Fatalf("expected 2 events, got %d", len(events))
		}
		if events[0].NodeID != "a" || events[1].NodeID != "b" {
			t.Errorf("events out of order: %+v", events)
		}
	})

	t.Run("count filters by message", func(t *testing.T) {
		if n := emitter.Count("r1", MsgNodeComplete); n != 2 {
			t.Errorf("Count = %d", n)
		}
		if n := emitter.Count("r1", MsgRunFailed); n != 0 {
			t.Errorf("Count for absent msg = %d", n)
		}
	})

	t.Run("history copies are independent", func(t *testing.T) {
		events := emitter.History("r1")
		events[0].NodeID = "mutated"
		if emitter.History("r1")[0].NodeID != "a" {
			t.Error("History returned shared backing storage")
		}
	})

	t.Run("clear drops one run only", func(t *testing.T) {
		emitter.Clear("r1")
		if len(emitter.History("r1")) != 0 {
			t.Error("Clear did not drop the run")
		}
		if len(emitter.History("r2")) != 1 {
			t.Error("Clear removed another run's events")
		}
	})
}

func TestMultiEmitter(t *testing.T) {
	first := NewBufferedEmitter()
	second := NewBufferedEmitter()
	multi := NewMultiEmitter(first, second)

	multi.Emit(Event{RunID: "r1", Msg: MsgRunStarted})

	if first.Count("r1", MsgRunStarted) != 1 || second.Count("r1", MsgRunStarted) != 1 {
		t.Error("event did not reach all emitters")
	}
}

func TestOTelEmitter(t *testing.T) {
	newRecordedTracer := func() (*OTelEmitter, *tracetest.SpanRecorder) {
		recorder := tracetest.NewSpanRecorder()
		provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
		return NewOTelEmitter(provider.Tracer("test")), recorder
	}

	t.Run("span per event with workflow attributes", func(t *testing.T) {
		emitter, recorder := newRecordedTracer()

		emitter.Emit(Event{
			RunID:  "r1",
			Step:   2,
			NodeID: "policy_verification",
			Msg:    MsgNodeComplete,
			Meta:   map[string]any{"routing_key": "approve_order"},
		})

		spans := recorder.Ended()
		if len(spans) != 1 {
			t.Fatalf("expected 1 span, got %d", len(spans))
		}
		span := spans[0]
		if span.Name() != MsgNodeComplete {
			t.Errorf("span name = %q", span.Name())
		}

		attrs := map[string]any{}
		for _, kv := range span.Attributes() {
			attrs[string(kv.Key)] = kv.Value.AsInterface()
		}
		if attrs["workflow.run_id"] != "r1" {
			t.Errorf("run_id attribute = %v", attrs["workflow.run_id"])
		}
		if attrs["workflow.step"] != int64(2) {
			t.Errorf("step attribute = %v", attrs["workflow.step"])
		}
		if attrs["workflow.meta.routing_key"] != "approve_order" {
			t.Errorf("meta attribute = %v", attrs["workflow.meta.routing_key"])
		}
	})

	t.Run("error metadata marks the span failed", func(t *testing.T) {
		emitter, recorder := newRecordedTracer()

		emitter.Emit(Event{
			RunID: "r1",
			Msg:   MsgRunFailed,
			Meta:  map[string]any{"error": "node \"load_data\": boom"},
		})

		spans := recorder.Ended()
		if len(spans) != 1 {
			t.Fatalf("expected 1 span, got %d", len(spans))
		}
		if spans[0].Status().Code != codes.Error {
			t.Errorf("status = %v", spans[0].Status())
		}
	})
}

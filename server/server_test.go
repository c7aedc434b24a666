package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mshields/arflow/assess"
	"github.com/mshields/arflow/credit"
	"github.com/mshields/arflow/flow"
	"github.com/mshields/arflow/flow/store"
)

type mapSource map[string]credit.Case

func (m mapSource) FetchCase(_ context.Context, customerID string) (credit.Case, error) {
	c, ok := m[customerID]
	if !ok {
		return credit.Case{}, credit.ErrCaseNotFound
	}
	return c, nil
}

type nullSink struct{}

func (nullSink) Notify(context.Context, flow.State) error { return nil }

func workflowCase(customerID string, limit, outstanding, order float64) credit.Case {
	return credit.Case{
		Customer: map[string]any{
			credit.ColCustomerID:         customerID,
			credit.ColCreditLimit:        limit,
			credit.ColOutstandingBalance: outstanding,
		},
		Order: map[string]any{
			credit.ColOrderID:    "ORD-" + customerID,
			credit.ColCustomerID: customerID,
			credit.ColTurnover:   order,
		},
	}
}

func newTestServer(t *testing.T, registry *prometheus.Registry) *httptest.Server {
	t.Helper()
	source := mapSource{
		"CUST001": workflowCase("CUST001", 50000, 15000, 12500),
		"CUST003": workflowCase("CUST003", 75000, 70000, 4000),
	}
	def, err := credit.Build(credit.Deps{
		Source:   source,
		Assessor: assess.NewRuleService(),
		Notifier: nullSink{},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	opts := []flow.Option{}
	if registry != nil {
		opts = append(opts, flow.WithMetrics(flow.NewMetrics(registry)))
	}
	exec, err := flow.NewExecutor(def, store.NewMemStore(), opts...)
	if err != nil {
		t.Fatalf("NewExecutor failed: %v", err)
	}

	ts := httptest.NewServer(NewHandler(exec, registry))
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) (*http.Response, RunResponse) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	var decoded RunResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp, decoded
}

func TestServer_StartRun(t *testing.T) {
	t.Run("completed run returns 200 with final state", func(t *testing.T) {
		ts := newTestServer(t, nil)

		resp, body := postJSON(t, ts.URL+"/runs", StartRequest{
			InitialState: map[string]any{credit.FieldCustomerID: "CUST001"},
		})

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if body.Status != string(flow.StatusCompleted) {
			t.Errorf("body status = %q", body.Status)
		}
		if body.FinalState[credit.FieldApprovalStatus] != credit.StatusApproved {
			t.Errorf("approval status = %v", body.FinalState[credit.FieldApprovalStatus])
		}
		if body.RunID == "" {
			t.Error("missing run ID")
		}
	})

	t.Run("suspended run returns 202 with payload", func(t *testing.T) {
		ts := newTestServer(t, nil)

		resp, body := postJSON(t, ts.URL+"/runs", StartRequest{
			InitialState: map[string]any{credit.FieldCustomerID: "CUST003"},
		})

		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if body.Status != string(flow.StatusSuspended) {
			t.Errorf("body status = %q", body.Status)
		}
		if body.CheckpointID == "" {
			t.Error("missing checkpoint ID")
		}
		if body.Payload["customer_id"] != "CUST003" {
			t.Errorf("payload = %v", body.Payload)
		}
		if body.FinalState != nil {
			t.Error("suspended response must not carry final state")
		}
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		ts := newTestServer(t, nil)

		resp, err := http.Post(ts.URL+"/runs", "application/json", strings.NewReader("{not json"))
		if err != nil {
			t.Fatalf("POST failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d", resp.StatusCode)
		}
	})
}

func TestServer_ResumeRun(t *testing.T) {
	t.Run("resume by run ID completes the run", func(t *testing.T) {
		ts := newTestServer(t, nil)

		_, started := postJSON(t, ts.URL+"/runs", StartRequest{
			InitialState: map[string]any{credit.FieldCustomerID: "CUST003"},
		})

		resp, body := postJSON(t, ts.URL+"/runs/"+started.RunID+"/resume",
			ResumeRequest{Decision: "approved"})

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, error = %q", resp.StatusCode, body.Error)
		}
		if body.FinalState[credit.FieldApprovalStatus] != credit.StatusApproved {
			t.Errorf("approval status = %v", body.FinalState[credit.FieldApprovalStatus])
		}
	})

	t.Run("resume by checkpoint ID works too", func(t *testing.T) {
		ts := newTestServer(t, nil)

		_, started := postJSON(t, ts.URL+"/runs", StartRequest{
			InitialState: map[string]any{credit.FieldCustomerID: "CUST003"},
		})

		resp, body := postJSON(t, ts.URL+"/runs/"+started.CheckpointID+"/resume",
			ResumeRequest{Decision: "rejected"})

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, error = %q", resp.StatusCode, body.Error)
		}
		if body.FinalState[credit.FieldApprovalStatus] != credit.StatusRejected {
			t.Errorf("approval status = %v", body.FinalState[credit.FieldApprovalStatus])
		}
	})

	t.Run("second resume returns 409", func(t *testing.T) {
		ts := newTestServer(t, nil)

		_, started := postJSON(t, ts.URL+"/runs", StartRequest{
			InitialState: map[string]any{credit.FieldCustomerID: "CUST003"},
		})

		url := ts.URL + "/runs/" + started.CheckpointID + "/resume"
		if resp, _ := postJSON(t, url, ResumeRequest{Decision: "approved"}); resp.StatusCode != http.StatusOK {
			t.Fatalf("first resume status = %d", resp.StatusCode)
		}

		resp, body := postJSON(t, url, ResumeRequest{Decision: "approved"})
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("status = %d", resp.StatusCode)
		}
		if body.Status != "failed" || body.Error == "" {
			t.Errorf("body = %+v", body)
		}
	})

	t.Run("unknown run returns 404", func(t *testing.T) {
		ts := newTestServer(t, nil)

		resp, _ := postJSON(t, ts.URL+"/runs/itdoesnotexist/resume",
			ResumeRequest{Decision: "approved"})
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d", resp.StatusCode)
		}
	})
}

func TestServer_Observability(t *testing.T) {
	t.Run("healthz", func(t *testing.T) {
		ts := newTestServer(t, nil)

		resp, err := http.Get(ts.URL + "/healthz")
		if err != nil {
			t.Fatalf("GET /healthz failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d", resp.StatusCode)
		}
	})

	t.Run("metrics expose run counters", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		ts := newTestServer(t, registry)

		postJSON(t, ts.URL+"/runs", StartRequest{
			InitialState: map[string]any{credit.FieldCustomerID: "CUST001"},
		})

		resp, err := http.Get(ts.URL + "/metrics")
		if err != nil {
			t.Fatalf("GET /metrics failed: %v", err)
		}
		defer resp.Body.Close()

		var sb strings.Builder
		if _, err := io.Copy(&sb, resp.Body); err != nil {
			t.Fatalf("reading metrics: %v", err)
		}
		if !strings.Contains(sb.String(), "arflow_runs_started_total") {
			t.Error("metrics output missing run counter")
		}
	})

	t.Run("metrics disabled without a registry", func(t *testing.T) {
		ts := newTestServer(t, nil)

		resp, err := http.Get(ts.URL + "/metrics")
		if err != nil {
			t.Fatalf("GET /metrics failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d", resp.StatusCode)
		}
	})
}

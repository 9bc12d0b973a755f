package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ledgerflow/flowchart/pkg/cache"
	"github.com/ledgerflow/flowchart/pkg/pipeline"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	runner := pipeline.NewRunner(cache.NewNullCache(), nil, nil)
	t.Cleanup(func() { runner.Close() })
	srv := httptest.NewServer(New(runner, nil, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

const flowBody = `{
  "payload": [
    {
      "nodes_ss": "[\"Income\", \"Income:Job\", \"Expenses:Food\"]",
      "links_ss": "[[\"Income:Job\", \"Income\", \"100\"], [\"Income\", \"Expenses:Food\", \"40\"]]"
    }
  ]
}`

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestPostFlow(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/charts/flow", "application/json", strings.NewReader(flowBody))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want 200; body: %s", resp.StatusCode, body)
	}

	var got struct {
		GraphHash string          `json:"graph_hash"`
		NodeCount int             `json:"node_count"`
		EdgeCount int             `json:"edge_count"`
		Chart     json.RawMessage `json:"chart"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.NodeCount != 3 || got.EdgeCount != 2 {
		t.Errorf("counts = %d nodes / %d edges, want 3 / 2", got.NodeCount, got.EdgeCount)
	}
	if got.GraphHash == "" {
		t.Errorf("graph_hash is empty")
	}
	if len(got.Chart) == 0 {
		t.Errorf("chart is empty")
	}
}

func TestPostFlowErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "body not json",
			body:       "not json",
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_INPUT",
		},
		{
			name:       "empty payload",
			body:       `{"payload": null}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_INPUT",
		},
		{
			name:       "payload wrong shape",
			body:       `{"payload": {"not": "an array"}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_PAYLOAD",
		},
		{
			name:       "bad record",
			body:       `{"payload": [{"nodes_ss": "nope", "links_ss": "[]"}]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_RECORD",
		},
		{
			name:       "bad format option",
			body:       `{"payload": [], "options": {"formats": ["png"]}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_FORMAT",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/v1/charts/flow", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			var got struct {
				Error string `json:"error"`
				Code  string `json:"code"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if got.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestPersistenceDisabled(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/charts/flow/save", "application/json", strings.NewReader(flowBody))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("save status = %d, want 501 without a store", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/v1/charts/some-id")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("get status = %d, want 501 without a store", resp.StatusCode)
	}
}

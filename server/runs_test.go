// Copyright 2025 The attribeval Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/attribeval/attribeval"
	"github.com/attribeval/attribeval/metric"
	"github.com/attribeval/attribeval/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, storage.Storage) {
	t.Helper()

	registry := metric.NewRegistry()
	if err := registry.Register("COMPLEXITY", func(metric.Config) (*metric.Driver, error) {
		return nil, nil
	}); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	store := storage.NewMemory()
	srv := httptest.NewServer(NewRouter(NewRunsController(store, registry)))
	t.Cleanup(srv.Close)
	return srv, store
}

func TestListMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /metrics status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var body struct {
		Metrics []string `json:"metrics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if diff := cmp.Diff([]string{"COMPLEXITY"}, body.Metrics); diff != "" {
		t.Errorf("GET /metrics mismatch (-want +got):\n%s", diff)
	}
}

func TestGetRun(t *testing.T) {
	srv, store := newTestServer(t)

	want := &attribeval.RunResult{
		ID:         "run-1",
		MetricName: "COMPLEXITY",
		Scores:     []any{0.5},
	}
	if err := store.SaveRun(context.Background(), want); err != nil {
		t.Fatalf("SaveRun() failed: %v", err)
	}

	resp, err := http.Get(srv.URL + "/runs/run-1")
	if err != nil {
		t.Fatalf("GET /runs/run-1 failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /runs/run-1 status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var got attribeval.RunResult
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != want.ID || got.MetricName != want.MetricName {
		t.Errorf("GET /runs/run-1 = %+v, want %+v", got, want)
	}
}

func TestGetRunNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/runs/missing")
	if err != nil {
		t.Fatalf("GET /runs/missing failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /runs/missing status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestListRunsFiltersByMetric(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()

	for _, run := range []*attribeval.RunResult{
		{ID: "run-1", MetricName: "COMPLEXITY"},
		{ID: "run-2", MetricName: "FAITHFULNESS_CORRELATION"},
	} {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun() failed: %v", err)
		}
	}

	resp, err := http.Get(srv.URL + "/runs?metric=COMPLEXITY")
	if err != nil {
		t.Fatalf("GET /runs failed: %v", err)
	}
	defer resp.Body.Close()

	var runs []attribeval.RunResult
	if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-1" {
		t.Errorf("GET /runs?metric=COMPLEXITY = %+v, want exactly run-1", runs)
	}
}

func TestDeleteRun(t *testing.T) {
	srv, store := newTestServer(t)

	if err := store.SaveRun(context.Background(), &attribeval.RunResult{ID: "run-1", MetricName: "COMPLEXITY"}); err != nil {
		t.Fatalf("SaveRun() failed: %v", err)
	}

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/runs/run-1", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE /runs/run-1 failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE /runs/run-1 status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if _, err := store.GetRun(context.Background(), "run-1"); err == nil {
		t.Error("run still present after DELETE")
	}
}

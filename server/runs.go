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
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/attribeval/attribeval/metric"
	"github.com/attribeval/attribeval/storage"
)

// StatusError carries an HTTP status code alongside an error.
type StatusError struct {
	error
	Code int
}

// Unwrap returns the associated error
func (se StatusError) Unwrap() error {
	return se.error
}

// Status returns the associated status code
func (se StatusError) Status() int {
	return se.Code
}

// ErrorHandler is an http.HandlerFunc that reports failures as errors.
type ErrorHandler func(http.ResponseWriter, *http.Request) error

// FromErrorHandler converts an ErrorHandler into an http.HandlerFunc,
// mapping StatusError codes onto the response.
func FromErrorHandler(fn ErrorHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err != nil {
			if statusErr, ok := err.(StatusError); ok {
				http.Error(w, statusErr.Error(), statusErr.Status())
			} else {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

// RunsController serves stored run results and the list of registered
// metrics.
type RunsController struct {
	store    storage.Storage
	registry *metric.Registry
}

// NewRunsController creates a controller over the given store and registry.
func NewRunsController(store storage.Storage, registry *metric.Registry) *RunsController {
	return &RunsController{store: store, registry: registry}
}

// Routes implements Router.
func (c *RunsController) Routes() Routes {
	return Routes{
		{Name: "ListMetrics", Method: http.MethodGet, Pattern: "/metrics", HandlerFunc: FromErrorHandler(c.ListMetrics)},
		{Name: "ListRuns", Method: http.MethodGet, Pattern: "/runs", HandlerFunc: FromErrorHandler(c.ListRuns)},
		{Name: "GetRun", Method: http.MethodGet, Pattern: "/runs/{run_id}", HandlerFunc: FromErrorHandler(c.GetRun)},
		{Name: "DeleteRun", Method: http.MethodDelete, Pattern: "/runs/{run_id}", HandlerFunc: FromErrorHandler(c.DeleteRun)},
	}
}

// ListMetrics returns the names of all registered metrics.
func (c *RunsController) ListMetrics(rw http.ResponseWriter, req *http.Request) error {
	return writeJSON(rw, http.StatusOK, map[string]any{
		"metrics": c.registry.ListMetrics(),
	})
}

// ListRuns returns stored runs, optionally filtered by the metric query
// parameter.
func (c *RunsController) ListRuns(rw http.ResponseWriter, req *http.Request) error {
	runs, err := c.store.ListRuns(req.Context(), req.URL.Query().Get("metric"))
	if err != nil {
		return err
	}
	return writeJSON(rw, http.StatusOK, runs)
}

// GetRun returns a single run by ID.
func (c *RunsController) GetRun(rw http.ResponseWriter, req *http.Request) error {
	run, err := c.store.GetRun(req.Context(), mux.Vars(req)["run_id"])
	if errors.Is(err, storage.ErrNotFound) {
		return StatusError{error: err, Code: http.StatusNotFound}
	}
	if err != nil {
		return err
	}
	return writeJSON(rw, http.StatusOK, run)
}

// DeleteRun removes a run by ID.
func (c *RunsController) DeleteRun(rw http.ResponseWriter, req *http.Request) error {
	err := c.store.DeleteRun(req.Context(), mux.Vars(req)["run_id"])
	if errors.Is(err, storage.ErrNotFound) {
		return StatusError{error: err, Code: http.StatusNotFound}
	}
	if err != nil {
		return err
	}
	rw.WriteHeader(http.StatusNoContent)
	return nil
}

func writeJSON(rw http.ResponseWriter, status int, body any) error {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	return json.NewEncoder(rw).Encode(body)
}

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

// Package storage persists evaluation run results. Backends exist for
// memory (tests and development), the local filesystem, SQLite, and Google
// Cloud Storage.
package storage

import (
	"context"
	"errors"

	"github.com/attribeval/attribeval"
)

var (
	// ErrNotFound indicates the requested run does not exist.
	ErrNotFound = errors.New("storage: run not found")

	// ErrInvalidInput indicates the provided run is nil or has no ID.
	ErrInvalidInput = errors.New("storage: invalid input")
)

// Storage stores and retrieves evaluation run results.
type Storage interface {
	// SaveRun stores a run result, overwriting any run with the same ID.
	SaveRun(ctx context.Context, run *attribeval.RunResult) error

	// GetRun retrieves a run result by ID.
	GetRun(ctx context.Context, runID string) (*attribeval.RunResult, error)

	// ListRuns returns all runs for the given metric name, or all runs when
	// metricName is empty. Order is backend-defined.
	ListRuns(ctx context.Context, metricName string) ([]attribeval.RunResult, error)

	// DeleteRun removes a run result.
	DeleteRun(ctx context.Context, runID string) error
}

func validate(run *attribeval.RunResult) error {
	if run == nil || run.ID == "" {
		return ErrInvalidInput
	}
	return nil
}

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

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/attribeval/attribeval"
)

// File stores each run result as a JSON file under basePath/runs/.
type File struct {
	basePath string
}

// NewFile creates a file-backed store rooted at basePath, creating the
// directory layout if needed.
func NewFile(basePath string) (*File, error) {
	if basePath == "" {
		return nil, fmt.Errorf("storage: base path is required")
	}
	if err := os.MkdirAll(filepath.Join(basePath, "runs"), 0o755); err != nil {
		return nil, fmt.Errorf("storage: failed to create base directory: %w", err)
	}
	return &File{basePath: basePath}, nil
}

func (f *File) runPath(runID string) string {
	return filepath.Join(f.basePath, "runs", runID+".json")
}

// SaveRun implements Storage.
func (f *File) SaveRun(ctx context.Context, run *attribeval.RunResult) error {
	if err := validate(run); err != nil {
		return err
	}
	if strings.ContainsAny(run.ID, `/\`) {
		return ErrInvalidInput
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: failed to marshal run %s: %w", run.ID, err)
	}
	if err := os.WriteFile(f.runPath(run.ID), data, 0o644); err != nil {
		return fmt.Errorf("storage: failed to write run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun implements Storage.
func (f *File) GetRun(ctx context.Context, runID string) (*attribeval.RunResult, error) {
	data, err := os.ReadFile(f.runPath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to read run %s: %w", runID, err)
	}

	var run attribeval.RunResult
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("storage: failed to parse run %s: %w", runID, err)
	}
	return &run, nil
}

// ListRuns implements Storage.
func (f *File) ListRuns(ctx context.Context, metricName string) ([]attribeval.RunResult, error) {
	entries, err := os.ReadDir(filepath.Join(f.basePath, "runs"))
	if err != nil {
		return nil, fmt.Errorf("storage: failed to list runs: %w", err)
	}

	runs := []attribeval.RunResult{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		run, err := f.GetRun(ctx, strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, err
		}
		if metricName != "" && run.MetricName != metricName {
			continue
		}
		runs = append(runs, *run)
	}
	return runs, nil
}

// DeleteRun implements Storage.
func (f *File) DeleteRun(ctx context.Context, runID string) error {
	err := os.Remove(f.runPath(runID))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("storage: failed to delete run %s: %w", runID, err)
	}
	return nil
}

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
	"slices"
	"sync"

	"github.com/attribeval/attribeval"
)

// Memory is an in-memory Storage, suitable for testing and development.
type Memory struct {
	mu sync.RWMutex

	// runs maps runID -> RunResult
	runs map[string]*attribeval.RunResult

	// byMetric maps metricName -> []runID, in insertion order
	byMetric map[string][]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		runs:     make(map[string]*attribeval.RunResult),
		byMetric: make(map[string][]string),
	}
}

// SaveRun implements Storage.
func (m *Memory) SaveRun(ctx context.Context, run *attribeval.RunResult) error {
	if err := validate(run); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, exists := m.runs[run.ID]; exists {
		m.dropFromIndex(prev.MetricName, run.ID)
	}

	// Copy to prevent external modifications.
	copied := *run
	m.runs[run.ID] = &copied
	m.byMetric[run.MetricName] = append(m.byMetric[run.MetricName], run.ID)

	return nil
}

// GetRun implements Storage.
func (m *Memory) GetRun(ctx context.Context, runID string) (*attribeval.RunResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, exists := m.runs[runID]
	if !exists {
		return nil, ErrNotFound
	}

	copied := *run
	return &copied, nil
}

// ListRuns implements Storage.
func (m *Memory) ListRuns(ctx context.Context, metricName string) ([]attribeval.RunResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	if metricName == "" {
		for _, metricIDs := range m.byMetric {
			ids = append(ids, metricIDs...)
		}
		slices.Sort(ids)
	} else {
		ids = m.byMetric[metricName]
	}

	runs := make([]attribeval.RunResult, 0, len(ids))
	for _, id := range ids {
		if run, exists := m.runs[id]; exists {
			runs = append(runs, *run)
		}
	}

	return runs, nil
}

// DeleteRun implements Storage.
func (m *Memory) DeleteRun(ctx context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, exists := m.runs[runID]
	if !exists {
		return ErrNotFound
	}

	delete(m.runs, runID)
	m.dropFromIndex(run.MetricName, runID)

	return nil
}

// dropFromIndex removes runID from the metric index. Callers must hold mu.
func (m *Memory) dropFromIndex(metricName, runID string) {
	ids := m.byMetric[metricName]
	if i := slices.Index(ids, runID); i >= 0 {
		m.byMetric[metricName] = slices.Delete(ids, i, i+1)
	}
}

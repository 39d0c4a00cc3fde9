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

package attribeval

import "time"

// RunResult is the persisted record of one evaluation run: the finalized
// per-instance score sequence plus enough metadata to identify the run.
type RunResult struct {
	// Identification
	ID         string `json:"run_id"`
	MetricName string `json:"metric_name"`

	// Per-instance scores in dataset order. Scores are opaque to the
	// engine: numbers, slices, or maps depending on the metric.
	Scores []any `json:"scores"`

	// Aggregate is the optional aggregated score, set when the run was
	// configured to aggregate.
	Aggregate any `json:"aggregate,omitempty"`

	// Run shape
	BatchSize    int `json:"batch_size"`
	NumInstances int `json:"num_instances"`

	// Timestamps
	CreatedAt time.Time `json:"creation_timestamp"`
}

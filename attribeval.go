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

// Package attribeval defines the core types shared across the attribeval
// packages: the model abstraction, the explanation and perturbation function
// contracts, and the persisted run record.
//
// The evaluation engine itself lives in the metric package; concrete metrics
// live under metrics/.
package attribeval

import "context"

// ModelRunner abstracts the model whose explanations are being evaluated.
// Implementations wrap whatever inference stack produces the predictions
// (an in-process scorer, a remote endpoint, a cached proxy).
type ModelRunner interface {
	// Predict returns one output vector per input instance, in input order.
	// params carries model-specific prediction arguments (e.g. whether to
	// apply softmax) and may be nil.
	Predict(ctx context.Context, x [][]float64, params map[string]any) ([][]float64, error)
}

// ExplainFunc generates attribution maps for a batch of inputs.
// It returns one attribution vector per instance, aligned with x.
type ExplainFunc func(ctx context.Context, model ModelRunner, x [][]float64, y []int, params map[string]any) ([][]float64, error)

// PerturbFunc perturbs a single input at the given feature indices and
// returns the perturbed copy. Implementations must not modify x in place.
type PerturbFunc func(x []float64, indices []int, params map[string]any) []float64

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

// Package complexity scores explanations by the Shannon entropy of their
// fractional attribution mass. Lower scores mean sparser, more focused
// explanations. The metric needs no model calls.
package complexity

import (
	"context"
	"errors"
	"math"

	"github.com/mitchellh/mapstructure"

	"github.com/attribeval/attribeval"
	"github.com/attribeval/attribeval/internal/mathutil"
	"github.com/attribeval/attribeval/metric"
)

// MetricName is the registry name of this metric.
const MetricName = "COMPLEXITY"

// ErrMissingAttributions indicates the dataset carries no a_batch entry.
var ErrMissingAttributions = errors.New("complexity: a_batch is required")

// Evaluator computes per-instance complexity scores for one batch.
type Evaluator struct {
	// Normalize divides each entropy by ln(len(attribution)) so scores
	// land in [0, 1] regardless of explanation width.
	Normalize bool `mapstructure:"normalize"`
}

// Name implements metric.BatchEvaluator.
func (*Evaluator) Name() string { return MetricName }

// ParamNames implements metric.BatchEvaluator. Complexity has no per-batch
// parameters; its options are fixed at construction.
func (*Evaluator) ParamNames() []string { return nil }

// EvaluateBatch implements metric.BatchEvaluator.
func (e *Evaluator) EvaluateBatch(ctx context.Context, model attribeval.ModelRunner, batch metric.Dataset, params map[string]any) ([]any, error) {
	a, ok := batch[metric.KeyAttributions].([][]float64)
	if !ok {
		return nil, ErrMissingAttributions
	}

	scores := make([]any, len(a))
	for i, row := range a {
		h := mathutil.Entropy(row)
		if e.Normalize && len(row) > 1 {
			h /= math.Log(float64(len(row)))
		}
		scores[i] = h
	}
	return scores, nil
}

// New creates a complexity driver. config.Params supports:
//
//	normalize: bool — scale entropies into [0, 1].
func New(config metric.Config) (*metric.Driver, error) {
	evaluator := &Evaluator{}
	if err := mapstructure.Decode(config.Params, evaluator); err != nil {
		return nil, err
	}
	return metric.NewDriver(evaluator, config.Options, nil)
}

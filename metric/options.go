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

package metric

import (
	"context"
	"errors"
	"math"
)

// NormaliseFunc normalises one attribution vector. It must return a new
// slice and leave its argument untouched.
type NormaliseFunc func(a []float64) []float64

// AggregateFunc folds a finalized score sequence into one aggregate value.
type AggregateFunc func(scores []any) (any, error)

// PlotFunc renders a finalized score sequence. The engine never calls it;
// it is stored and forwarded for reporting layers.
type PlotFunc func(scores []any) error

// PreprocessFunc consolidates an evaluation request into the dataset the
// batch generator runs over. The returned dataset must contain an x_batch
// entry. Errors propagate to the Evaluate caller unmodified.
type PreprocessFunc func(ctx context.Context, req *EvaluateRequest, opts Options) (Dataset, error)

// PostprocessFunc runs after all batches have been evaluated, with the full
// consolidated dataset (not the last batch). It is invoked for side effects
// only; use it to stash auxiliary outputs.
type PostprocessFunc func(ctx context.Context, data Dataset) error

// Options is the driver configuration. Every field has a zero-value
// default; the engine itself only consults Normalise, Abs, the hooks, and
// the progress settings — the rest is stored and forwarded.
type Options struct {
	// Abs applies the absolute value to attributions during default
	// preprocessing.
	Abs bool

	// Normalise applies NormaliseFunc to each attribution vector during
	// default preprocessing. When NormaliseFunc is nil, NormaliseByMax
	// is used.
	Normalise     bool
	NormaliseFunc NormaliseFunc

	// ReturnAggregate asks reporting layers to fold the score sequence
	// with AggregateFunc (MeanAggregate when nil). The engine always
	// returns the full per-instance sequence.
	ReturnAggregate bool
	AggregateFunc   AggregateFunc

	// PlotFunc is the default plotting callable for reporting layers.
	PlotFunc PlotFunc

	// Preprocess and Postprocess override the default hooks. A nil
	// Preprocess uses DefaultPreprocess; a nil Postprocess is skipped.
	Preprocess  PreprocessFunc
	Postprocess PostprocessFunc

	// DisplayProgress enables the Progress callback, called once per
	// produced batch. Progress is ignored when DisplayProgress is false.
	DisplayProgress bool
	Progress        ProgressFunc

	// DisableWarnings suppresses advisory output in reporting layers.
	DisableWarnings bool
}

// NormaliseByMax scales an attribution vector by its maximum absolute
// value. A zero vector is returned unchanged.
func NormaliseByMax(a []float64) []float64 {
	out := make([]float64, len(a))
	var peak float64
	for _, v := range a {
		if abs := math.Abs(v); abs > peak {
			peak = abs
		}
	}
	if peak == 0 {
		copy(out, a)
		return out
	}
	for i, v := range a {
		out[i] = v / peak
	}
	return out
}

// MeanAggregate averages a sequence of float64 scores. It is the default
// AggregateFunc for reporting layers.
func MeanAggregate(scores []any) (any, error) {
	if len(scores) == 0 {
		return nil, errors.New("metric: no scores to aggregate")
	}
	var sum float64
	for _, s := range scores {
		f, ok := s.(float64)
		if !ok {
			return nil, errors.New("metric: MeanAggregate requires float64 scores")
		}
		sum += f
	}
	return sum / float64(len(scores)), nil
}

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

// Package faithfulness implements the faithfulness-correlation metric: it
// repeatedly perturbs random feature subsets and correlates, per instance,
// the attribution mass of the perturbed subset with the drop in the model's
// output for the labeled class. A score near 1 means the explanation tracks
// what the model actually relies on.
package faithfulness

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/attribeval/attribeval"
	"github.com/attribeval/attribeval/internal/mathutil"
	"github.com/attribeval/attribeval/metric"
)

// MetricName is the registry name of this metric.
const MetricName = "FAITHFULNESS_CORRELATION"

// Per-batch parameter names declared by the evaluator.
const (
	// ParamNrRuns is the number of perturbation runs per batch.
	ParamNrRuns = "nr_runs"
	// ParamSubsetSize is the number of features perturbed per run.
	ParamSubsetSize = "subset_size"
	// ParamSeed seeds the subset sampler; 0 means time-seeded.
	ParamSeed = "seed"
)

var (
	// ErrMissingModel indicates the request carried no model.
	ErrMissingModel = errors.New("faithfulness: model is required")

	// ErrMissingLabels indicates the dataset carries no y_batch entry.
	ErrMissingLabels = errors.New("faithfulness: y_batch is required")

	// ErrMissingAttributions indicates the dataset carries no a_batch entry.
	ErrMissingAttributions = errors.New("faithfulness: a_batch is required")
)

// Defaults for the run parameters.
const (
	DefaultNrRuns     = 100
	DefaultSubsetSize = 8
)

// Evaluator computes per-instance faithfulness correlations for one batch.
// It must run under a metric.PerturbationDriver, which supplies perturb_func
// and perturb_params through the resolved parameter set.
type Evaluator struct{}

// Name implements metric.BatchEvaluator.
func (*Evaluator) Name() string { return MetricName }

// ParamNames implements metric.BatchEvaluator.
func (*Evaluator) ParamNames() []string {
	return []string{metric.ParamPerturbFunc, metric.ParamPerturbParams, ParamNrRuns, ParamSubsetSize, ParamSeed}
}

// EvaluateBatch implements metric.BatchEvaluator.
func (*Evaluator) EvaluateBatch(ctx context.Context, model attribeval.ModelRunner, batch metric.Dataset, params map[string]any) ([]any, error) {
	if model == nil {
		return nil, ErrMissingModel
	}
	x, ok := batch[metric.KeyInputs].([][]float64)
	if !ok {
		return nil, fmt.Errorf("faithfulness: x_batch has type %T, want [][]float64", batch[metric.KeyInputs])
	}
	y, ok := batch[metric.KeyLabels].([]int)
	if !ok {
		return nil, ErrMissingLabels
	}
	a, ok := batch[metric.KeyAttributions].([][]float64)
	if !ok {
		return nil, ErrMissingAttributions
	}
	perturb, ok := params[metric.ParamPerturbFunc].(attribeval.PerturbFunc)
	if !ok {
		return nil, metric.ErrNoPerturbFunc
	}
	perturbParams, _ := params[metric.ParamPerturbParams].(map[string]any)
	predictParams, _ := batch[metric.KeyPredictParams].(map[string]any)

	nrRuns := intParam(params, ParamNrRuns, DefaultNrRuns)
	subsetSize := intParam(params, ParamSubsetSize, DefaultSubsetSize)
	seed := int64(intParam(params, ParamSeed, 0))
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	if len(x) == 0 {
		return []any{}, nil
	}
	nFeatures := len(x[0])
	if subsetSize > nFeatures {
		return nil, fmt.Errorf("faithfulness: subset_size %d exceeds feature count %d", subsetSize, nFeatures)
	}

	base, err := model.Predict(ctx, x, predictParams)
	if err != nil {
		return nil, err
	}

	attrSums := make([][]float64, len(x))
	drops := make([][]float64, len(x))
	for i := range x {
		attrSums[i] = make([]float64, nrRuns)
		drops[i] = make([]float64, nrRuns)
	}

	for run := range nrRuns {
		perturbed := make([][]float64, len(x))
		subsets := make([][]int, len(x))
		for i := range x {
			subset := rng.Perm(nFeatures)[:subsetSize]
			subsets[i] = subset
			perturbed[i] = perturb(x[i], subset, perturbParams)
		}

		preds, err := model.Predict(ctx, perturbed, predictParams)
		if err != nil {
			return nil, err
		}

		for i := range x {
			label := y[i]
			if label < 0 || label >= len(base[i]) {
				return nil, fmt.Errorf("faithfulness: label %d out of range for output of width %d", label, len(base[i]))
			}
			drops[i][run] = base[i][label] - preds[i][label]
			var sum float64
			for _, j := range subsets[i] {
				sum += a[i][j]
			}
			attrSums[i][run] = sum
		}
	}

	scores := make([]any, len(x))
	for i := range x {
		scores[i] = mathutil.Pearson(attrSums[i], drops[i])
	}
	return scores, nil
}

// ReplaceWithBaseline is the default perturbation: it returns a copy of x
// with the indexed features set to the perturb_baseline parameter (0 when
// absent).
func ReplaceWithBaseline(x []float64, indices []int, params map[string]any) []float64 {
	baseline := floatParam(params, "perturb_baseline", 0)
	out := make([]float64, len(x))
	copy(out, x)
	for _, j := range indices {
		out[j] = baseline
	}
	return out
}

// config is the mapstructure-decodable shape of config.Params.
type config struct {
	NrRuns          int     `mapstructure:"nr_runs"`
	SubsetSize      int     `mapstructure:"subset_size"`
	Seed            int64   `mapstructure:"seed"`
	PerturbBaseline float64 `mapstructure:"perturb_baseline"`
}

// New creates a faithfulness-correlation driver with the baseline-replace
// perturbation. config.Params supports:
//
//	nr_runs: int          — perturbation runs per batch (default 100)
//	subset_size: int      — features perturbed per run (default 8)
//	seed: int             — sampler seed (default: time-seeded)
//	perturb_baseline: float — replacement value (default 0)
func New(cfg metric.Config) (*metric.Driver, error) {
	var c config
	if err := mapstructure.Decode(cfg.Params, &c); err != nil {
		return nil, err
	}
	if c.NrRuns == 0 {
		c.NrRuns = DefaultNrRuns
	}
	if c.SubsetSize == 0 {
		c.SubsetSize = DefaultSubsetSize
	}

	driver, err := metric.NewPerturbationDriver(
		&Evaluator{},
		attribeval.PerturbFunc(ReplaceWithBaseline),
		map[string]any{"perturb_baseline": c.PerturbBaseline},
		cfg.Options,
		map[string]any{
			ParamNrRuns:     c.NrRuns,
			ParamSubsetSize: c.SubsetSize,
			ParamSeed:       c.Seed,
		},
	)
	if err != nil {
		return nil, err
	}
	return driver.Driver, nil
}

// intParam reads an integer parameter, tolerating the numeric types that
// YAML and JSON decoding produce.
func intParam(params map[string]any, key string, def int) int {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

func floatParam(params map[string]any, key string, def float64) float64 {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return def
	}
}

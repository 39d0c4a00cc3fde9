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

package faithfulness

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/attribeval/attribeval/metric"
	"github.com/attribeval/attribeval/model"
)

// sumModel outputs a single class equal to the sum of the input features.
// The attribution a_j = x_j is then perfectly faithful: removing a subset
// drops the output by exactly the subset's attribution mass.
var sumModel = model.Func(func(ctx context.Context, x [][]float64, params map[string]any) ([][]float64, error) {
	out := make([][]float64, len(x))
	for i, row := range x {
		var sum float64
		for _, v := range row {
			sum += v
		}
		out[i] = []float64{sum}
	}
	return out, nil
})

func TestFaithfulnessPerfectExplanation(t *testing.T) {
	x := [][]float64{
		{1, 2, 3, 4},
		{4, 1, 0.5, 2},
	}
	driver, err := New(metric.Config{Params: map[string]any{
		"nr_runs":     50,
		"subset_size": 2,
		"seed":        7,
	}})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	scores, err := driver.Evaluate(context.Background(), &metric.EvaluateRequest{
		Model:        sumModel,
		Inputs:       x,
		Labels:       []int{0, 0},
		Attributions: x,
		BatchSize:    2,
	})
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}

	for i, s := range scores {
		got := s.(float64)
		if math.Abs(got-1) > 1e-9 {
			t.Errorf("score[%d] = %v, want 1 for a perfectly faithful explanation", i, got)
		}
	}
}

func TestFaithfulnessErrors(t *testing.T) {
	ctx := context.Background()

	newDriver := func(t *testing.T) *metric.Driver {
		t.Helper()
		driver, err := New(metric.Config{Params: map[string]any{"nr_runs": 3, "subset_size": 1, "seed": 1}})
		if err != nil {
			t.Fatalf("New() failed: %v", err)
		}
		return driver
	}

	t.Run("missing model", func(t *testing.T) {
		_, err := newDriver(t).Evaluate(ctx, &metric.EvaluateRequest{
			Inputs:       [][]float64{{1, 2}},
			Labels:       []int{0},
			Attributions: [][]float64{{1, 2}},
			BatchSize:    1,
		})
		if !errors.Is(err, ErrMissingModel) {
			t.Errorf("Evaluate() error = %v, want %v", err, ErrMissingModel)
		}
	})

	t.Run("missing labels", func(t *testing.T) {
		_, err := newDriver(t).Evaluate(ctx, &metric.EvaluateRequest{
			Model:        sumModel,
			Inputs:       [][]float64{{1, 2}},
			Attributions: [][]float64{{1, 2}},
			BatchSize:    1,
		})
		if !errors.Is(err, ErrMissingLabels) {
			t.Errorf("Evaluate() error = %v, want %v", err, ErrMissingLabels)
		}
	})

	t.Run("subset larger than features", func(t *testing.T) {
		driver, err := New(metric.Config{Params: map[string]any{"nr_runs": 3, "subset_size": 10, "seed": 1}})
		if err != nil {
			t.Fatalf("New() failed: %v", err)
		}
		_, err = driver.Evaluate(ctx, &metric.EvaluateRequest{
			Model:        sumModel,
			Inputs:       [][]float64{{1, 2}},
			Labels:       []int{0},
			Attributions: [][]float64{{1, 2}},
			BatchSize:    1,
		})
		if err == nil {
			t.Error("Evaluate() succeeded with subset_size > feature count, want error")
		}
	})
}

func TestReplaceWithBaseline(t *testing.T) {
	x := []float64{1, 2, 3}
	got := ReplaceWithBaseline(x, []int{0, 2}, map[string]any{"perturb_baseline": -1.0})
	want := []float64{-1, 2, -1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ReplaceWithBaseline()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if x[0] != 1 || x[2] != 3 {
		t.Errorf("ReplaceWithBaseline() mutated its input: %v", x)
	}
}

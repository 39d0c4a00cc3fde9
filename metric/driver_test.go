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
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/attribeval/attribeval"
)

// onesEvaluator returns the score 1 for every instance and records what it
// was called with.
type onesEvaluator struct {
	batches []Dataset
	params  []map[string]any
	err     error
}

func (e *onesEvaluator) Name() string         { return "ONES" }
func (e *onesEvaluator) ParamNames() []string { return []string{"threshold", "perturb_func", "perturb_params"} }

func (e *onesEvaluator) EvaluateBatch(ctx context.Context, model attribeval.ModelRunner, batch Dataset, params map[string]any) ([]any, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.batches = append(e.batches, batch)
	e.params = append(e.params, params)
	n := reflect.ValueOf(batch[KeyInputs]).Len()
	out := make([]any, n)
	for i := range out {
		out[i] = float64(1)
	}
	return out, nil
}

func inputs(n int) [][]float64 {
	x := make([][]float64, n)
	for i := range x {
		x[i] = []float64{float64(i), float64(i) + 0.5}
	}
	return x
}

func TestNewDriverRequiresEvaluator(t *testing.T) {
	if _, err := NewDriver(nil, Options{}, nil); !errors.Is(err, ErrNoEvaluator) {
		t.Errorf("NewDriver(nil) error = %v, want %v", err, ErrNoEvaluator)
	}
}

func TestDriverEvaluate(t *testing.T) {
	ctx := context.Background()
	eval := &onesEvaluator{}
	driver, err := NewDriver(eval, Options{}, nil)
	if err != nil {
		t.Fatalf("NewDriver() failed: %v", err)
	}

	scores, err := driver.Evaluate(ctx, &EvaluateRequest{Inputs: inputs(5), BatchSize: 2})
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}

	want := []any{float64(1), float64(1), float64(1), float64(1), float64(1)}
	if diff := cmp.Diff(want, scores); diff != "" {
		t.Errorf("Evaluate() mismatch (-want +got):\n%s", diff)
	}
	if len(eval.batches) != 3 {
		t.Errorf("evaluator saw %d batches, want 3", len(eval.batches))
	}
	if diff := cmp.Diff(scores, driver.LastScores()); diff != "" {
		t.Errorf("LastScores() mismatch (-want +got):\n%s", diff)
	}

	// A second call appends a second history entry without touching the
	// first one.
	first := driver.History()[0]
	if _, err := driver.Evaluate(ctx, &EvaluateRequest{Inputs: inputs(5), BatchSize: 2}); err != nil {
		t.Fatalf("second Evaluate() failed: %v", err)
	}
	if got := len(driver.History()); got != 2 {
		t.Fatalf("History() length = %d, want 2", got)
	}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Errorf("first history entry mutated (-want +got):\n%s", diff)
	}
}

func TestDriverEvaluateZeroInstances(t *testing.T) {
	driver, err := NewDriver(&onesEvaluator{}, Options{}, nil)
	if err != nil {
		t.Fatalf("NewDriver() failed: %v", err)
	}

	scores, err := driver.Evaluate(context.Background(), &EvaluateRequest{Inputs: inputs(0), BatchSize: 4})
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if len(scores) != 0 {
		t.Errorf("Evaluate() returned %d scores, want 0", len(scores))
	}
	if got := len(driver.History()); got != 1 {
		t.Errorf("History() length = %d, want 1", got)
	}
}

func TestDriverParamResolution(t *testing.T) {
	eval := &onesEvaluator{}
	driver, err := NewDriver(eval, Options{}, map[string]any{
		"threshold": 0.1,
		"unrelated": "kept aside",
	})
	if err != nil {
		t.Fatalf("NewDriver() failed: %v", err)
	}

	wantParams := map[string]any{"threshold": 0.1}
	if diff := cmp.Diff(wantParams, driver.EvaluatorParams()); diff != "" {
		t.Errorf("EvaluatorParams() mismatch (-want +got):\n%s", diff)
	}
	wantExtra := map[string]any{"unrelated": "kept aside"}
	if diff := cmp.Diff(wantExtra, driver.Extra()); diff != "" {
		t.Errorf("Extra() mismatch (-want +got):\n%s", diff)
	}

	// The resolved parameters reach the evaluator unchanged on every
	// batch call.
	if _, err := driver.Evaluate(context.Background(), &EvaluateRequest{Inputs: inputs(5), BatchSize: 2}); err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if len(eval.params) != 3 {
		t.Fatalf("evaluator saw %d param sets, want 3", len(eval.params))
	}
	for i, params := range eval.params {
		if diff := cmp.Diff(wantParams, params); diff != "" {
			t.Errorf("batch %d params mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestDriverParamResolutionBatchSuffix(t *testing.T) {
	driver, err := NewDriver(&onesEvaluator{}, Options{}, map[string]any{
		"threshold_batch": 0.2,
	})
	if err != nil {
		t.Fatalf("NewDriver() failed: %v", err)
	}
	want := map[string]any{"threshold_batch": 0.2}
	if diff := cmp.Diff(want, driver.EvaluatorParams()); diff != "" {
		t.Errorf("EvaluatorParams() mismatch (-want +got):\n%s", diff)
	}
	if len(driver.Extra()) != 0 {
		t.Errorf("Extra() = %v, want empty", driver.Extra())
	}
}

func TestDriverEvaluateValidationError(t *testing.T) {
	driver, err := NewDriver(&onesEvaluator{}, Options{}, nil)
	if err != nil {
		t.Fatalf("NewDriver() failed: %v", err)
	}

	// Custom is a sequence of the wrong length: hard stop.
	_, err = driver.Evaluate(context.Background(), &EvaluateRequest{
		Inputs:    inputs(5),
		Custom:    []int{1, 2, 3},
		BatchSize: 2,
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Evaluate() error = %v, want *ValidationError", err)
	}
	if verr.Key != KeyCustom || verr.Want != 5 || verr.Got != 3 {
		t.Errorf("ValidationError = %+v, want {Key: custom_batch, Want: 5, Got: 3}", verr)
	}
	if driver.LastScores() != nil {
		t.Errorf("LastScores() = %v after failure, want nil", driver.LastScores())
	}
	if len(driver.History()) != 0 {
		t.Errorf("History() length = %d after failure, want 0", len(driver.History()))
	}
}

func TestDriverHookErrorsPropagateUnwrapped(t *testing.T) {
	ctx := context.Background()
	hookErr := errors.New("hook exploded")

	t.Run("preprocess", func(t *testing.T) {
		driver, err := NewDriver(&onesEvaluator{}, Options{
			Preprocess: func(ctx context.Context, req *EvaluateRequest, opts Options) (Dataset, error) {
				return nil, hookErr
			},
		}, nil)
		if err != nil {
			t.Fatalf("NewDriver() failed: %v", err)
		}
		if _, err := driver.Evaluate(ctx, &EvaluateRequest{Inputs: inputs(2)}); err != hookErr {
			t.Errorf("Evaluate() error = %v, want the hook error unwrapped", err)
		}
	})

	t.Run("evaluator", func(t *testing.T) {
		evalErr := errors.New("batch failed")
		driver, err := NewDriver(&onesEvaluator{err: evalErr}, Options{}, nil)
		if err != nil {
			t.Fatalf("NewDriver() failed: %v", err)
		}
		if _, err := driver.Evaluate(ctx, &EvaluateRequest{Inputs: inputs(2)}); err != evalErr {
			t.Errorf("Evaluate() error = %v, want the evaluator error unwrapped", err)
		}
		if len(driver.History()) != 0 {
			t.Errorf("History() length = %d after failure, want 0", len(driver.History()))
		}
	})

	t.Run("postprocess", func(t *testing.T) {
		var sawFullDataset bool
		driver, err := NewDriver(&onesEvaluator{}, Options{
			Postprocess: func(ctx context.Context, data Dataset) error {
				if v, ok := data[KeyInputs].([][]float64); ok && len(v) == 5 {
					sawFullDataset = true
				}
				return hookErr
			},
		}, nil)
		if err != nil {
			t.Fatalf("NewDriver() failed: %v", err)
		}
		if _, err := driver.Evaluate(ctx, &EvaluateRequest{Inputs: inputs(5), BatchSize: 2}); err != hookErr {
			t.Errorf("Evaluate() error = %v, want the hook error unwrapped", err)
		}
		if !sawFullDataset {
			t.Error("postprocess did not receive the full consolidated dataset")
		}
		if len(driver.History()) != 0 {
			t.Errorf("History() length = %d after postprocess failure, want 0", len(driver.History()))
		}
	})
}

func TestDefaultPreprocess(t *testing.T) {
	ctx := context.Background()

	t.Run("generates attributions when absent", func(t *testing.T) {
		called := false
		req := &EvaluateRequest{
			Inputs: inputs(2),
			Labels: []int{0, 1},
			ExplainFunc: func(ctx context.Context, model attribeval.ModelRunner, x [][]float64, y []int, params map[string]any) ([][]float64, error) {
				called = true
				return [][]float64{{1, -2}, {3, -4}}, nil
			},
		}
		data, err := DefaultPreprocess(ctx, req, Options{})
		if err != nil {
			t.Fatalf("DefaultPreprocess() failed: %v", err)
		}
		if !called {
			t.Error("explain function was not called")
		}
		if _, ok := data[KeyAttributions]; !ok {
			t.Error("dataset has no a_batch entry")
		}
	})

	t.Run("abs and normalise copy", func(t *testing.T) {
		a := [][]float64{{-4, 2}}
		req := &EvaluateRequest{Inputs: inputs(1), Attributions: a}
		data, err := DefaultPreprocess(ctx, req, Options{Abs: true, Normalise: true})
		if err != nil {
			t.Fatalf("DefaultPreprocess() failed: %v", err)
		}
		got := data[KeyAttributions].([][]float64)
		want := [][]float64{{1, 0.5}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("transformed attributions mismatch (-want +got):\n%s", diff)
		}
		if a[0][0] != -4 {
			t.Errorf("caller's attributions were mutated: %v", a)
		}
	})
}

func TestPerturbationDriver(t *testing.T) {
	identity := func(x []float64, indices []int, params map[string]any) []float64 {
		out := make([]float64, len(x))
		copy(out, x)
		return out
	}

	if _, err := NewPerturbationDriver(&onesEvaluator{}, nil, nil, Options{}, nil); !errors.Is(err, ErrNoPerturbFunc) {
		t.Errorf("NewPerturbationDriver(nil perturb) error = %v, want %v", err, ErrNoPerturbFunc)
	}

	driver, err := NewPerturbationDriver(&onesEvaluator{}, identity, map[string]any{"perturb_baseline": 0.0}, Options{}, nil)
	if err != nil {
		t.Fatalf("NewPerturbationDriver() failed: %v", err)
	}
	params := driver.EvaluatorParams()
	if _, ok := params[ParamPerturbFunc]; !ok {
		t.Error("resolved params missing perturb_func")
	}
	pp, ok := params[ParamPerturbParams].(map[string]any)
	if !ok || pp["perturb_baseline"] != 0.0 {
		t.Errorf("resolved perturb_params = %v, want perturb_baseline 0.0", params[ParamPerturbParams])
	}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	factory := func(config Config) (*Driver, error) {
		return NewDriver(&onesEvaluator{}, config.Options, config.Params)
	}

	if err := registry.Register("ONES", factory); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if err := registry.Register("ONES", factory); err == nil {
		t.Error("duplicate Register() succeeded, want error")
	}
	if !registry.IsRegistered("ONES") {
		t.Error("IsRegistered(ONES) = false, want true")
	}
	if _, err := registry.Get("MISSING"); err == nil {
		t.Error("Get(MISSING) succeeded, want error")
	}

	driver, err := registry.CreateDriver("ONES", Config{Params: map[string]any{"threshold": 0.5}})
	if err != nil {
		t.Fatalf("CreateDriver() failed: %v", err)
	}
	if driver.Name() != "ONES" {
		t.Errorf("driver.Name() = %q, want ONES", driver.Name())
	}
}

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

package complexity

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/attribeval/attribeval/metric"
)

func TestComplexityScores(t *testing.T) {
	driver, err := New(metric.Config{Params: map[string]any{"normalize": true}})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	// One diffuse explanation, one focused one.
	scores, err := driver.Evaluate(context.Background(), &metric.EvaluateRequest{
		Inputs: [][]float64{{0, 0, 0, 0}, {0, 0, 0, 0}},
		Attributions: [][]float64{
			{1, 1, 1, 1},
			{0, 4, 0, 0},
		},
		BatchSize: 1,
	})
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}

	diffuse := scores[0].(float64)
	focused := scores[1].(float64)
	if math.Abs(diffuse-1) > 1e-12 {
		t.Errorf("normalized entropy of uniform attribution = %v, want 1", diffuse)
	}
	if focused != 0 {
		t.Errorf("entropy of point-mass attribution = %v, want 0", focused)
	}
}

func TestComplexityRequiresAttributions(t *testing.T) {
	driver, err := New(metric.Config{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	_, err = driver.Evaluate(context.Background(), &metric.EvaluateRequest{
		Inputs:    [][]float64{{1, 2}},
		BatchSize: 1,
	})
	if !errors.Is(err, ErrMissingAttributions) {
		t.Errorf("Evaluate() error = %v, want %v", err, ErrMissingAttributions)
	}
}

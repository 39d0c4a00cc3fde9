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

package mathutil

import (
	"math"
	"testing"
)

func TestPearson(t *testing.T) {
	tests := []struct {
		name   string
		xs, ys []float64
		want   float64
	}{
		{"perfect positive", []float64{1, 2, 3, 4}, []float64{2, 4, 6, 8}, 1},
		{"perfect negative", []float64{1, 2, 3, 4}, []float64{8, 6, 4, 2}, -1},
		{"zero variance", []float64{1, 1, 1}, []float64{1, 2, 3}, 0},
		{"too short", []float64{1}, []float64{2}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Pearson(tt.xs, tt.ys); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Pearson() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntropy(t *testing.T) {
	// A uniform distribution over n entries has entropy ln(n).
	if got, want := Entropy([]float64{1, 1, 1, 1}), math.Log(4); math.Abs(got-want) > 1e-12 {
		t.Errorf("Entropy(uniform) = %v, want %v", got, want)
	}
	// All mass on one entry: zero entropy.
	if got := Entropy([]float64{0, 5, 0}); got != 0 {
		t.Errorf("Entropy(point mass) = %v, want 0", got)
	}
	if got := Entropy([]float64{0, 0}); got != 0 {
		t.Errorf("Entropy(zero vector) = %v, want 0", got)
	}
}

func TestMeanAndSumAbs(t *testing.T) {
	if got := Mean([]float64{1, 2, 3}); got != 2 {
		t.Errorf("Mean() = %v, want 2", got)
	}
	if got := Mean(nil); got != 0 {
		t.Errorf("Mean(nil) = %v, want 0", got)
	}
	if got := SumAbs([]float64{-1, 2, -3}); got != 6 {
		t.Errorf("SumAbs() = %v, want 6", got)
	}
}

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

// Package mathutil provides the small numeric helpers shared by the
// concrete metrics.
package mathutil

import "math"

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// SumAbs returns the sum of absolute values of xs.
func SumAbs(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += math.Abs(x)
	}
	return sum
}

// Pearson returns the Pearson correlation coefficient of xs and ys.
// It returns 0 when either side has zero variance or the slices are
// shorter than two elements. The slices must have equal length.
func Pearson(xs, ys []float64) float64 {
	if len(xs) != len(ys) || len(xs) < 2 {
		return 0
	}
	mx, my := Mean(xs), Mean(ys)
	var cov, vx, vy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0
	}
	return cov / math.Sqrt(vx*vy)
}

// Entropy returns the Shannon entropy (natural log) of the distribution
// obtained by normalising the absolute values of xs to sum to one.
// A zero vector has zero entropy.
func Entropy(xs []float64) float64 {
	total := SumAbs(xs)
	if total == 0 {
		return 0
	}
	var h float64
	for _, x := range xs {
		p := math.Abs(x) / total
		if p > 0 {
			h -= p * math.Log(p)
		}
	}
	return h
}

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

// Package model provides attribeval.ModelRunner implementations: a function
// adapter, a JSON-loadable linear scorer for the CLI, and a caching proxy.
package model

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Func adapts a plain function to attribeval.ModelRunner.
type Func func(ctx context.Context, x [][]float64, params map[string]any) ([][]float64, error)

// Predict implements attribeval.ModelRunner.
func (f Func) Predict(ctx context.Context, x [][]float64, params map[string]any) ([][]float64, error) {
	return f(ctx, x, params)
}

// Linear is a linear scorer: out[c] = weights[c]·x + bias[c]. It is enough
// to exercise the evaluation machinery from the CLI without an inference
// stack. The "softmax" prediction parameter (bool) switches the output from
// logits to probabilities.
type Linear struct {
	Weights [][]float64 `json:"weights"`
	Bias    []float64   `json:"bias,omitempty"`
}

// LoadLinear reads a Linear model from a JSON file.
func LoadLinear(path string) (*Linear, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("model: failed to read %s: %w", path, err)
	}
	var m Linear
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("model: failed to parse %s: %w", path, err)
	}
	if len(m.Weights) == 0 {
		return nil, fmt.Errorf("model: %s has no weights", path)
	}
	return &m, nil
}

// Predict implements attribeval.ModelRunner.
func (m *Linear) Predict(ctx context.Context, x [][]float64, params map[string]any) ([][]float64, error) {
	softmax, _ := params["softmax"].(bool)

	out := make([][]float64, len(x))
	for i, row := range x {
		logits := make([]float64, len(m.Weights))
		for c, w := range m.Weights {
			if len(w) != len(row) {
				return nil, fmt.Errorf("model: instance %d has %d features, weights expect %d", i, len(row), len(w))
			}
			var sum float64
			for j, v := range row {
				sum += w[j] * v
			}
			if c < len(m.Bias) {
				sum += m.Bias[c]
			}
			logits[c] = sum
		}
		if softmax {
			logits = softmaxVec(logits)
		}
		out[i] = logits
	}
	return out, nil
}

func softmaxVec(logits []float64) []float64 {
	peak := math.Inf(-1)
	for _, v := range logits {
		if v > peak {
			peak = v
		}
	}
	out := make([]float64, len(logits))
	var total float64
	for i, v := range logits {
		out[i] = math.Exp(v - peak)
		total += out[i]
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

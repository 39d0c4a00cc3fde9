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
	"github.com/attribeval/attribeval"
)

// Parameter names used by perturbation-based evaluators.
const (
	// ParamPerturbFunc carries the attribeval.PerturbFunc.
	ParamPerturbFunc = "perturb_func"
	// ParamPerturbParams carries the map handed to the perturbation
	// function on every call.
	ParamPerturbParams = "perturb_params"
)

// PerturbationDriver is a Driver for metrics that score explanations by
// perturbing the input. The perturbation function and its parameters are
// required at construction and forwarded to the evaluator on every batch
// through the resolved parameter set, under ParamPerturbFunc and
// ParamPerturbParams. Evaluators used with this driver must declare both
// names in ParamNames.
type PerturbationDriver struct {
	*Driver
}

// NewPerturbationDriver creates a perturbation driver. perturb must be
// non-nil; perturbParams may be nil and defaults to an empty map. Any
// perturb_func or perturb_params entry already present in params is
// overridden.
func NewPerturbationDriver(evaluator BatchEvaluator, perturb attribeval.PerturbFunc, perturbParams map[string]any, opts Options, params map[string]any) (*PerturbationDriver, error) {
	if perturb == nil {
		return nil, ErrNoPerturbFunc
	}
	if perturbParams == nil {
		perturbParams = make(map[string]any)
	}

	merged := make(map[string]any, len(params)+2)
	for key, value := range params {
		merged[key] = value
	}
	merged[ParamPerturbFunc] = perturb
	merged[ParamPerturbParams] = perturbParams

	d, err := NewDriver(evaluator, opts, merged)
	if err != nil {
		return nil, err
	}
	return &PerturbationDriver{Driver: d}, nil
}

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
	"errors"
	"fmt"
)

var (
	// ErrNoEvaluator indicates a driver was constructed without a batch
	// evaluator. The evaluator is a required capability, checked at
	// construction time rather than on the first batch.
	ErrNoEvaluator = errors.New("metric: batch evaluator is required")

	// ErrNoPerturbFunc indicates a perturbation driver was constructed
	// without a perturbation function.
	ErrNoPerturbFunc = errors.New("metric: perturbation function is required")

	// ErrMissingInputs indicates the dataset has no sequence-valued
	// x_batch entry to derive the instance count from.
	ErrMissingInputs = errors.New("metric: dataset is missing a sequence-valued x_batch entry")

	// ErrInvalidBatchSize indicates a non-positive batch size.
	ErrInvalidBatchSize = errors.New("metric: batch size must be positive")
)

// ValidationError reports a sequence-valued dataset entry whose length does
// not match the instance count. It is fatal: evaluation aborts immediately
// and nothing is appended to the driver's history.
type ValidationError struct {
	// Key is the offending dataset entry.
	Key string
	// Want is the instance count, Got the entry's actual length.
	Want, Got int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("metric: %q has incorrect length (expected: %d, is: %d)", e.Key, e.Want, e.Got)
}

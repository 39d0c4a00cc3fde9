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
	"iter"
	"maps"
	"reflect"
	"slices"
)

// Dataset maps argument names to values. The x_batch entry is required and
// defines the instance count; every other sequence-valued entry of the same
// length is sliced per batch, and everything else is broadcast unchanged.
type Dataset map[string]any

// Well-known dataset keys. Metrics may add their own.
const (
	// KeyInputs holds the input instances ([][]float64, one per instance).
	KeyInputs = "x_batch"
	// KeyLabels holds the output labels ([]int, one per instance).
	KeyLabels = "y_batch"
	// KeyAttributions holds the attribution maps ([][]float64).
	KeyAttributions = "a_batch"
	// KeySegmentation holds the segmentation masks.
	KeySegmentation = "s_batch"
	// KeyCustom holds an arbitrary caller payload. If it is a sequence of
	// instance-count length it is sliced like any other batched entry.
	KeyCustom = "custom_batch"
	// KeyPredictParams holds model prediction parameters (a map, so always
	// broadcast as a single value).
	KeyPredictParams = "model_predict_params"
)

// ProgressFunc observes batch production. It is called once per produced
// batch with the number of batches produced so far and the total count.
// It is purely observational and must not assume anything about timing.
type ProgressFunc func(done, total int)

// BatchCount returns the number of batches needed to cover nInstances at the
// given batch size: ceil(nInstances / batchSize). Zero instances means zero
// batches. batchSize must be positive.
func BatchCount(nInstances, batchSize int) int {
	if nInstances <= 0 {
		return 0
	}
	return (nInstances + batchSize - 1) / batchSize
}

// BatchRange returns the half-open index range [start, end) of the batch at
// batchIndex. Ranges are contiguous and non-overlapping, and the final
// batch's end is clamped to nInstances.
func BatchRange(batchIndex, batchSize, nInstances int) (start, end int) {
	start = batchSize * batchIndex
	end = min(batchSize*(batchIndex+1), nInstances)
	return start, end
}

// isSequence reports whether v is an ordered sequence for partitioning
// purposes. Strings are iterable but are never treated as sequences; maps
// and scalars are broadcast as single values.
func isSequence(v reflect.Value) bool {
	if !v.IsValid() {
		return false
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return true
	default:
		return false
	}
}

// asSlice normalizes a sequence value to a slice so batch ranges can be
// taken with reflect.Value.Slice. Array values are copied once.
func asSlice(v reflect.Value) reflect.Value {
	if v.Kind() == reflect.Slice {
		return v
	}
	s := reflect.MakeSlice(reflect.SliceOf(v.Type().Elem()), v.Len(), v.Len())
	reflect.Copy(s, v)
	return s
}

// partition classifies every dataset entry as either a single value
// (broadcast to every batch) or a batched sequence (sliced per batch).
// A sequence whose length differs from nInstances is a hard validation
// error: auxiliary sequences of a deliberately different length must be
// wrapped in a non-sequence value by the caller.
//
// Entries are visited in sorted key order so the first error is
// deterministic. Every key lands in exactly one of the two outputs.
func partition(data Dataset, nInstances int) (single map[string]any, batched map[string]reflect.Value, err error) {
	single = make(map[string]any)
	batched = make(map[string]reflect.Value)
	for _, key := range slices.Sorted(maps.Keys(data)) {
		value := data[key]
		v := reflect.ValueOf(value)
		if !isSequence(v) {
			single[key] = value
			continue
		}
		if v.Len() != nInstances {
			return nil, nil, &ValidationError{Key: key, Want: nInstances, Got: v.Len()}
		}
		batched[key] = asSlice(v)
	}
	return single, batched, nil
}

// instanceCount derives the instance count from the dataset's x_batch entry.
func instanceCount(data Dataset) (int, error) {
	x, ok := data[KeyInputs]
	if !ok {
		return 0, ErrMissingInputs
	}
	v := reflect.ValueOf(x)
	if !isSequence(v) {
		return 0, ErrMissingInputs
	}
	return v.Len(), nil
}

// Batches returns a lazy sequence of per-batch datasets: each element merges
// the batched entries sliced to that batch's range with every single-value
// entry verbatim. Batches are produced in strictly increasing index order,
// covering all instances exactly once in their original order.
//
// The returned sequence can be ranged more than once; each pass replays the
// same batches from the partition taken here. Call Batches again to pick up
// later dataset mutations.
//
// Partitioning and validation happen eagerly, so a length mismatch is
// reported here rather than on the first pull.
func Batches(data Dataset, batchSize int, progress ProgressFunc) (iter.Seq[Dataset], error) {
	if batchSize <= 0 {
		return nil, ErrInvalidBatchSize
	}
	n, err := instanceCount(data)
	if err != nil {
		return nil, err
	}
	single, batched, err := partition(data, n)
	if err != nil {
		return nil, err
	}
	total := BatchCount(n, batchSize)

	return func(yield func(Dataset) bool) {
		for i := range total {
			start, end := BatchRange(i, batchSize, n)
			batch := make(Dataset, len(single)+len(batched))
			for key, value := range single {
				batch[key] = value
			}
			for key, v := range batched {
				batch[key] = v.Slice(start, end).Interface()
			}
			if !yield(batch) {
				return
			}
			if progress != nil {
				progress(i+1, total)
			}
		}
	}, nil
}

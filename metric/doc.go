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

// Package metric implements the batched evaluation engine that runs any
// explanation-quality metric over a dataset of inputs, labels, attributions,
// and segmentation masks.
//
// # Core Concepts
//
// Dataset: a mapping from argument name to value. The length of the x_batch
// entry defines the instance count. Sequence-valued entries of that exact
// length are "batched" and sliced per batch; everything else is "single" and
// broadcast unchanged to every batch. A sequence of any other length is a
// validation error.
//
// Batches: a lazy, pull-based iter.Seq over per-batch Datasets, produced in
// strictly increasing batch order with the final batch shortened when the
// batch size does not divide the instance count.
//
// BatchEvaluator: the pluggable per-batch scoring function. Evaluators
// statically declare the names of their metric-specific parameters via
// ParamNames; NewDriver splits those out of the supplied parameter map once,
// at construction, and forwards them verbatim to every EvaluateBatch call.
//
// Driver: the orchestration entry point. Evaluate preprocesses the request
// into a consolidated Dataset, drives the batch sequence through the
// evaluator, concatenates per-instance scores in order, runs the postprocess
// hook, and appends the finalized sequence to the driver's history.
//
// # Concurrency
//
// The engine is single-threaded and synchronous. A Driver holds mutable
// state (the last score sequence and the cumulative history) guarded by
// nothing: calling Evaluate concurrently on one Driver is unsafe. Use one
// Driver per goroutine.
//
// # Errors
//
// Length mismatches surface as *ValidationError. Errors from the preprocess
// hook, the evaluator, and the postprocess hook propagate to the caller
// unwrapped; no retries are performed and nothing is appended to history on
// failure.
package metric

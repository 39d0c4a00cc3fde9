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
	"math"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/attribeval/attribeval"
)

// DefaultBatchSize is used when EvaluateRequest.BatchSize is zero.
const DefaultBatchSize = 64

const tracerName = "github.com/attribeval/attribeval/metric"

// BatchEvaluator computes per-instance scores for one batch. Implementations
// are the concrete metrics; the driver never interprets the scores.
type BatchEvaluator interface {
	// Name identifies the metric, e.g. "FAITHFULNESS_CORRELATION".
	Name() string

	// ParamNames declares the evaluator-specific parameter names. At
	// driver construction, entries of the params map whose key matches a
	// declared name (directly or after stripping a "_batch" suffix) are
	// split out and passed to every EvaluateBatch call.
	ParamNames() []string

	// EvaluateBatch scores one batch. It must return one score per
	// instance, in the batch's instance order; the driver concatenates
	// without validating the count. Entries of batch are the sliced
	// batched arguments plus every single value verbatim.
	EvaluateBatch(ctx context.Context, model attribeval.ModelRunner, batch Dataset, params map[string]any) ([]any, error)
}

// EvaluateRequest carries the full argument set of one evaluation call.
// All fields except Inputs are optional; nil fields are simply absent from
// the consolidated dataset built by DefaultPreprocess.
type EvaluateRequest struct {
	// Model is the model under explanation.
	Model attribeval.ModelRunner

	// Inputs are the explained input instances (x_batch).
	Inputs [][]float64

	// Labels are the explained output labels (y_batch).
	Labels []int

	// Attributions are precomputed attribution maps (a_batch). When nil
	// and ExplainFunc is set, attributions are generated during default
	// preprocessing.
	Attributions [][]float64

	// Segmentation holds per-instance segmentation masks (s_batch).
	Segmentation [][]int

	// Custom is an arbitrary payload forwarded into the dataset
	// (custom_batch). A sequence of instance-count length is sliced per
	// batch like any other batched entry.
	Custom any

	// ChannelFirst indicates the input channel ordering; nil means
	// inferred by the caller's explain function.
	ChannelFirst *bool

	// ExplainFunc generates attributions when none are supplied.
	ExplainFunc   attribeval.ExplainFunc
	ExplainParams map[string]any

	// ModelPredictParams is forwarded to metrics that call the model.
	ModelPredictParams map[string]any

	// Softmax selects probabilities over logits in model prediction.
	Softmax *bool

	// Device names the compute device; opaque to the engine.
	Device string

	// BatchSize is the evaluation batch size; DefaultBatchSize when zero.
	BatchSize int
}

// Driver runs a batch evaluator over full datasets and accumulates the
// per-call score sequences.
//
// A Driver is not safe for concurrent use: Evaluate mutates the last score
// sequence and the history without locking. Use one Driver per goroutine.
type Driver struct {
	evaluator BatchEvaluator
	opts      Options

	// evalParams are resolved once at construction and passed to every
	// EvaluateBatch call.
	evalParams map[string]any

	// extra holds the construction parameters that did not match the
	// evaluator's declared names.
	extra map[string]any

	lastScores []any
	history    [][]any

	tracer trace.Tracer
}

// NewDriver creates a driver for the given evaluator. params holds the
// metric-specific construction parameters: entries matching the evaluator's
// declared parameter names — directly or after stripping a "_batch" suffix
// from the entry's key — are resolved into the per-batch parameter set;
// the rest is retained as opaque extra configuration. Resolution happens
// exactly once per driver.
func NewDriver(evaluator BatchEvaluator, opts Options, params map[string]any) (*Driver, error) {
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}

	declared := evaluator.ParamNames()
	evalParams := make(map[string]any)
	extra := make(map[string]any)
	for key, value := range params {
		if slices.Contains(declared, key) || slices.Contains(declared, strings.TrimSuffix(key, "_batch")) {
			evalParams[key] = value
		} else {
			extra[key] = value
		}
	}

	return &Driver{
		evaluator:  evaluator,
		opts:       opts,
		evalParams: evalParams,
		extra:      extra,
		tracer:     otel.Tracer(tracerName),
	}, nil
}

// Name returns the underlying evaluator's metric name.
func (d *Driver) Name() string { return d.evaluator.Name() }

// Options returns the driver configuration.
func (d *Driver) Options() Options { return d.opts }

// EvaluatorParams returns the parameters resolved for the evaluator at
// construction time.
func (d *Driver) EvaluatorParams() map[string]any { return d.evalParams }

// Extra returns the construction parameters that did not match the
// evaluator's declared names.
func (d *Driver) Extra() map[string]any { return d.extra }

// LastScores returns the score sequence of the most recent successful
// Evaluate call, or nil.
func (d *Driver) LastScores() []any { return d.lastScores }

// History returns the score sequences of all successful Evaluate calls on
// this driver, oldest first.
func (d *Driver) History() [][]any { return d.history }

// Evaluate scores the explanations in req and returns one score per
// instance, in dataset order.
//
// The call preprocesses the request into a consolidated dataset, partitions
// it into batches, invokes the evaluator once per batch, concatenates the
// per-batch outputs, runs the postprocess hook with the full dataset, and
// appends the finalized sequence to the driver's history.
//
// Any error — validation, hook, or evaluator — aborts the call immediately:
// the error propagates unwrapped, the last score sequence is left unset for
// this call, and nothing is appended to history.
func (d *Driver) Evaluate(ctx context.Context, req *EvaluateRequest) ([]any, error) {
	batchSize := req.BatchSize
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}

	ctx, span := d.tracer.Start(ctx, "metric.Evaluate", trace.WithAttributes(
		attribute.String("metric.name", d.evaluator.Name()),
		attribute.Int("metric.batch_size", batchSize),
	))
	defer span.End()

	preprocess := d.opts.Preprocess
	if preprocess == nil {
		preprocess = DefaultPreprocess
	}
	data, err := preprocess(ctx, req, d.opts)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var progress ProgressFunc
	if d.opts.DisplayProgress {
		progress = d.opts.Progress
	}
	batches, err := Batches(data, batchSize, progress)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// The previous call's sequence is discarded before the first batch
	// runs; a failed call leaves it unset rather than partially filled.
	d.lastScores = nil

	var scores []any
	for batch := range batches {
		batchCtx, batchSpan := d.tracer.Start(ctx, "metric.EvaluateBatch")
		out, err := d.evaluator.EvaluateBatch(batchCtx, req.Model, batch, d.evalParams)
		batchSpan.End()
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		scores = append(scores, out...)
	}
	if scores == nil {
		scores = []any{}
	}

	if d.opts.Postprocess != nil {
		if err := d.opts.Postprocess(ctx, data); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	d.lastScores = scores
	d.history = append(d.history, scores)
	return scores, nil
}

// DefaultPreprocess builds the consolidated dataset directly from the
// request: x_batch always, y/a/s/custom and model prediction parameters when
// present. Missing attributions are generated with req.ExplainFunc if one is
// supplied. The Abs and Normalise options are applied to (a copy of) the
// attributions, mirroring what a full preprocessing pipeline would do.
func DefaultPreprocess(ctx context.Context, req *EvaluateRequest, opts Options) (Dataset, error) {
	a := req.Attributions
	if a == nil && req.ExplainFunc != nil {
		generated, err := req.ExplainFunc(ctx, req.Model, req.Inputs, req.Labels, req.ExplainParams)
		if err != nil {
			return nil, err
		}
		a = generated
	}
	if a != nil && (opts.Normalise || opts.Abs) {
		a = transformAttributions(a, opts)
	}

	data := Dataset{KeyInputs: req.Inputs}
	if req.Labels != nil {
		data[KeyLabels] = req.Labels
	}
	if a != nil {
		data[KeyAttributions] = a
	}
	if req.Segmentation != nil {
		data[KeySegmentation] = req.Segmentation
	}
	if req.Custom != nil {
		data[KeyCustom] = req.Custom
	}
	if req.ModelPredictParams != nil {
		data[KeyPredictParams] = req.ModelPredictParams
	}
	return data, nil
}

// transformAttributions applies Normalise and Abs without touching the
// caller's slices.
func transformAttributions(a [][]float64, opts Options) [][]float64 {
	normalise := opts.NormaliseFunc
	if normalise == nil {
		normalise = NormaliseByMax
	}
	out := make([][]float64, len(a))
	for i, row := range a {
		if opts.Normalise {
			row = normalise(row)
		} else {
			row = slices.Clone(row)
		}
		if opts.Abs {
			for j, v := range row {
				row[j] = math.Abs(v)
			}
		}
		out[i] = row
	}
	return out
}

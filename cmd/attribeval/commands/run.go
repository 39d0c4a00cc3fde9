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

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/attribeval/attribeval"
	"github.com/attribeval/attribeval/metric"
	"github.com/attribeval/attribeval/model"
	"github.com/attribeval/attribeval/telemetry"
)

type runCmdFlags struct {
	config       string
	dataset      string
	model        string
	cacheSize    int
	softmax      bool
	batchSize    int
	otlpEndpoint string
	progress     bool
}

var runFlags runCmdFlags

// evalConfig is the YAML shape of the --config file.
type evalConfig struct {
	Metrics []metricSpec `yaml:"metrics"`
}

type metricSpec struct {
	Name    string         `yaml:"name"`
	Options optionSpec     `yaml:"options"`
	Params  map[string]any `yaml:"params"`
}

type optionSpec struct {
	Abs             bool `yaml:"abs"`
	Normalise       bool `yaml:"normalise"`
	ReturnAggregate bool `yaml:"return_aggregate"`
}

// datasetFile is the JSON shape of the --dataset file.
type datasetFile struct {
	X [][]float64 `json:"x_batch"`
	Y []int       `json:"y_batch"`
	A [][]float64 `json:"a_batch"`
	S [][]int     `json:"s_batch"`
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluates the configured metrics over a dataset and stores the results.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlags.run(cmd.Context())
	},
}

func init() {
	RootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.config, "config", "c", "", "YAML file listing the metrics to run (required)")
	runCmd.Flags().StringVarP(&runFlags.dataset, "dataset", "d", "", "JSON dataset file with x_batch, y_batch, a_batch (required)")
	runCmd.Flags().StringVarP(&runFlags.model, "model", "m", "", "JSON linear model file; required by model-dependent metrics")
	runCmd.Flags().IntVar(&runFlags.cacheSize, "cache-size", 0, "LRU prediction cache capacity; 0 disables caching")
	runCmd.Flags().BoolVar(&runFlags.softmax, "softmax", false, "Apply softmax to model outputs")
	runCmd.Flags().IntVarP(&runFlags.batchSize, "batch-size", "b", 0, "Instances per batch; 0 uses the default")
	runCmd.Flags().StringVar(&runFlags.otlpEndpoint, "otlp-endpoint", "", "Export traces to this OTLP/HTTP collector (host:port)")
	runCmd.Flags().BoolVar(&runFlags.progress, "progress", false, "Log per-batch progress")

	runCmd.MarkFlagRequired("config")
	runCmd.MarkFlagRequired("dataset")
}

func (f *runCmdFlags) run(ctx context.Context) error {
	cfg, err := f.loadConfig()
	if err != nil {
		return err
	}
	data, err := f.loadDataset()
	if err != nil {
		return err
	}
	runner, err := f.loadModel()
	if err != nil {
		return err
	}

	if f.otlpEndpoint != "" {
		svc, err := telemetry.New(ctx,
			telemetry.WithOTLPEndpoint(f.otlpEndpoint),
			telemetry.WithInsecure(),
		)
		if err != nil {
			return err
		}
		svc.SetGlobalOtelProviders()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := svc.Shutdown(shutdownCtx); err != nil {
				slog.Warn("telemetry shutdown failed", "error", err)
			}
		}()
	}

	store, err := Flags.storage.open(ctx)
	if err != nil {
		return err
	}

	// One driver per metric, one metric per goroutine. Drivers are not safe
	// for concurrent use, so none is shared.
	results := make([]*attribeval.RunResult, len(cfg.Metrics))
	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range cfg.Metrics {
		g.Go(func() error {
			run, err := f.evaluateMetric(gctx, spec, data, runner)
			if err != nil {
				return fmt.Errorf("%s: %w", spec.Name, err)
			}
			results[i] = run
			return store.SaveRun(gctx, run)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func (f *runCmdFlags) evaluateMetric(ctx context.Context, spec metricSpec, data *datasetFile, runner attribeval.ModelRunner) (*attribeval.RunResult, error) {
	opts := metric.Options{
		Abs:             spec.Options.Abs,
		Normalise:       spec.Options.Normalise,
		ReturnAggregate: spec.Options.ReturnAggregate,
	}
	if f.progress {
		opts.DisplayProgress = true
		opts.Progress = func(done, total int) {
			slog.Info("batch evaluated", "metric", spec.Name, "done", done, "total", total)
		}
	}

	driver, err := metric.CreateDriver(spec.Name, metric.Config{Options: opts, Params: spec.Params})
	if err != nil {
		return nil, err
	}

	req := &metric.EvaluateRequest{
		Model:        runner,
		Inputs:       data.X,
		Labels:       data.Y,
		Attributions: data.A,
		Segmentation: data.S,
		BatchSize:    f.batchSize,
	}
	if f.softmax {
		req.ModelPredictParams = map[string]any{"softmax": true}
	}

	scores, err := driver.Evaluate(ctx, req)
	if err != nil {
		return nil, err
	}

	batchSize := f.batchSize
	if batchSize <= 0 {
		batchSize = metric.DefaultBatchSize
	}
	run := &attribeval.RunResult{
		ID:           uuid.NewString(),
		MetricName:   spec.Name,
		Scores:       scores,
		BatchSize:    batchSize,
		NumInstances: len(data.X),
		CreatedAt:    time.Now().UTC(),
	}

	if opts.ReturnAggregate {
		aggregate := opts.AggregateFunc
		if aggregate == nil {
			aggregate = metric.MeanAggregate
		}
		agg, err := aggregate(scores)
		if err != nil {
			return nil, err
		}
		run.Aggregate = agg
	}
	return run, nil
}

func (f *runCmdFlags) loadConfig() (*evalConfig, error) {
	raw, err := os.ReadFile(f.config)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg evalConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if len(cfg.Metrics) == 0 {
		return nil, fmt.Errorf("config %s lists no metrics", f.config)
	}
	return &cfg, nil
}

func (f *runCmdFlags) loadDataset() (*datasetFile, error) {
	raw, err := os.ReadFile(f.dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	var data datasetFile
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	if len(data.X) == 0 {
		return nil, fmt.Errorf("dataset %s has no x_batch", f.dataset)
	}
	return &data, nil
}

func (f *runCmdFlags) loadModel() (attribeval.ModelRunner, error) {
	if f.model == "" {
		return nil, nil
	}
	linear, err := model.LoadLinear(f.model)
	if err != nil {
		return nil, err
	}
	if f.cacheSize > 0 {
		return model.NewCached(linear, f.cacheSize)
	}
	return linear, nil
}

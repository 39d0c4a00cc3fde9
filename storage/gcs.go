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

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/attribeval/attribeval"
)

const gcsRunPrefix = "runs/"

// GCS stores each run result as a JSON object in a Google Cloud Storage
// bucket, under the runs/ prefix.
type GCS struct {
	client *gcs.Client
	bucket string
}

// NewGCS creates a GCS-backed store. Credentials are resolved the usual way
// (Application Default Credentials) unless overridden via opts.
func NewGCS(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage: bucket name is required")
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create GCS client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}

func (g *GCS) object(runID string) *gcs.ObjectHandle {
	return g.client.Bucket(g.bucket).Object(gcsRunPrefix + runID + ".json")
}

// SaveRun implements Storage.
func (g *GCS) SaveRun(ctx context.Context, run *attribeval.RunResult) error {
	if err := validate(run); err != nil {
		return err
	}
	if strings.Contains(run.ID, "/") {
		return ErrInvalidInput
	}

	w := g.object(run.ID).NewWriter(ctx)
	w.ContentType = "application/json"
	if err := json.NewEncoder(w).Encode(run); err != nil {
		w.Close()
		return fmt.Errorf("storage: failed to marshal run %s: %w", run.ID, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("storage: failed to write run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun implements Storage.
func (g *GCS) GetRun(ctx context.Context, runID string) (*attribeval.RunResult, error) {
	r, err := g.object(runID).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: failed to read run %s: %w", runID, err)
	}
	defer r.Close()

	return decodeRun(r, runID)
}

// ListRuns implements Storage.
func (g *GCS) ListRuns(ctx context.Context, metricName string) ([]attribeval.RunResult, error) {
	it := g.client.Bucket(g.bucket).Objects(ctx, &gcs.Query{Prefix: gcsRunPrefix})

	runs := []attribeval.RunResult{}
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("storage: failed to list runs: %w", err)
		}
		runID := strings.TrimSuffix(strings.TrimPrefix(attrs.Name, gcsRunPrefix), ".json")
		run, err := g.GetRun(ctx, runID)
		if err != nil {
			return nil, err
		}
		if metricName != "" && run.MetricName != metricName {
			continue
		}
		runs = append(runs, *run)
	}
	return runs, nil
}

// DeleteRun implements Storage.
func (g *GCS) DeleteRun(ctx context.Context, runID string) error {
	err := g.object(runID).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("storage: failed to delete run %s: %w", runID, err)
	}
	return nil
}

func decodeRun(r io.Reader, runID string) (*attribeval.RunResult, error) {
	var run attribeval.RunResult
	if err := json.NewDecoder(r).Decode(&run); err != nil {
		return nil, fmt.Errorf("storage: failed to parse run %s: %w", runID, err)
	}
	return &run, nil
}

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

package model

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/attribeval/attribeval"
)

// DefaultCacheSize is the entry capacity used by NewCached when size <= 0.
const DefaultCacheSize = 1024

// Cached wraps a ModelRunner with an LRU cache keyed on the request's inputs
// and prediction parameters. Perturbation-style metrics call the model with
// many repeated batches; caching those calls is often the difference between
// minutes and seconds.
type Cached struct {
	inner attribeval.ModelRunner
	cache *lru.Cache[string, [][]float64]
}

// NewCached wraps inner with a cache of at most size prediction batches.
func NewCached(inner attribeval.ModelRunner, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, [][]float64](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: cache}, nil
}

// Predict implements attribeval.ModelRunner. Cache hits return the stored
// predictions; callers must not mutate the returned slices.
func (c *Cached) Predict(ctx context.Context, x [][]float64, params map[string]any) ([][]float64, error) {
	key, err := cacheKey(x, params)
	if err != nil {
		return c.inner.Predict(ctx, x, params)
	}
	if out, ok := c.cache.Get(key); ok {
		return out, nil
	}
	out, err := c.inner.Predict(ctx, x, params)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, out)
	return out, nil
}

// Len reports the number of cached prediction batches.
func (c *Cached) Len() int { return c.cache.Len() }

func cacheKey(x [][]float64, params map[string]any) (string, error) {
	payload, err := json.Marshal(struct {
		X      [][]float64    `json:"x"`
		Params map[string]any `json:"params,omitempty"`
	}{X: x, Params: params})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", sha256.Sum256(payload)), nil
}

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

// Package metrics registers the built-in metrics.
package metrics

import (
	"github.com/attribeval/attribeval/metric"
	"github.com/attribeval/attribeval/metrics/complexity"
	"github.com/attribeval/attribeval/metrics/faithfulness"
)

// RegisterDefaults registers all built-in metric factories with the default
// registry. Call it once, typically from main.
func RegisterDefaults() error {
	return RegisterDefaultsOn(metric.DefaultRegistry)
}

// RegisterDefaultsOn registers all built-in metric factories with the given
// registry.
func RegisterDefaultsOn(registry *metric.Registry) error {
	factories := map[string]metric.Factory{
		complexity.MetricName:   complexity.New,
		faithfulness.MetricName: faithfulness.New,
	}
	for name, factory := range factories {
		if err := registry.Register(name, factory); err != nil {
			return err
		}
	}
	return nil
}

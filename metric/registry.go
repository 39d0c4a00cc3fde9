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
	"fmt"
	"sync"
)

// Config provides configuration for driver creation through the registry.
type Config struct {
	// Options is the generic driver configuration.
	Options Options

	// Params holds metric-specific parameters, typically decoded from a
	// run configuration file. Factories interpret it; unmatched entries
	// end up in the driver's extra configuration.
	Params map[string]any
}

// Factory creates a driver for a specific metric.
type Factory func(config Config) (*Driver, error)

// Registry manages available metric factories by name.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a new metric registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register registers a factory for a metric name.
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("metric: factory already registered for %s", name)
	}

	r.factories[name] = factory
	return nil
}

// Get retrieves the factory for a metric name.
func (r *Registry) Get(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[name]
	if !exists {
		return nil, fmt.Errorf("metric: no factory registered for %s", name)
	}

	return factory, nil
}

// CreateDriver creates a driver for the named metric.
func (r *Registry) CreateDriver(name string, config Config) (*Driver, error) {
	factory, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	return factory(config)
}

// ListMetrics returns all registered metric names.
func (r *Registry) ListMetrics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	return names
}

// IsRegistered checks whether a factory is registered for a metric name.
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.factories[name]
	return exists
}

// DefaultRegistry is the global registry instance.
var DefaultRegistry = NewRegistry()

// Register registers a factory in the default registry.
func Register(name string, factory Factory) error {
	return DefaultRegistry.Register(name, factory)
}

// CreateDriver creates a driver using the default registry.
func CreateDriver(name string, config Config) (*Driver, error) {
	return DefaultRegistry.CreateDriver(name, config)
}

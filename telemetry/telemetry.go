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

// Package telemetry contains OpenTelemetry related functionality for
// attribeval. The metric driver emits a span per Evaluate call and per
// batch; this package wires those spans to an exporter.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Service wraps the telemetry providers and implements functions for
// telemetry lifecycle management.
type Service interface {
	// SetGlobalOtelProviders registers the configured providers as the global OTel providers.
	SetGlobalOtelProviders()

	// TracerProvider returns the configured TracerProvider.
	TracerProvider() *sdktrace.TracerProvider

	// Shutdown shuts down underlying OTel providers.
	Shutdown(ctx context.Context) error
}

// New initializes a telemetry service. By default it traces into the
// configured span processors only; pass [WithOTLPEndpoint] to export spans to
// a collector, or [WithTracerProvider] to supply a preconfigured provider.
//
// The caller must call [Service.Shutdown] to flush spans and release
// resources.
func New(ctx context.Context, opts ...Option) (Service, error) {
	cfg, err := configure(opts...)
	if err != nil {
		return nil, err
	}

	if cfg.tracerProvider != nil {
		return &service{tracerProvider: cfg.tracerProvider}, nil
	}

	providerOpts := []sdktrace.TracerProviderOption{}
	if cfg.resource != nil {
		providerOpts = append(providerOpts, sdktrace.WithResource(cfg.resource))
	}
	for _, p := range cfg.spanProcessors {
		providerOpts = append(providerOpts, sdktrace.WithSpanProcessor(p))
	}

	if cfg.otlpEndpoint != "" {
		exporterOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.otlpEndpoint)}
		if cfg.insecure {
			exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, exporterOpts...)
		if err != nil {
			return nil, err
		}
		providerOpts = append(providerOpts, sdktrace.WithBatcher(exporter))
	}

	return &service{tracerProvider: sdktrace.NewTracerProvider(providerOpts...)}, nil
}

type service struct {
	tracerProvider *sdktrace.TracerProvider
}

func (s *service) SetGlobalOtelProviders() {
	otel.SetTracerProvider(s.tracerProvider)
}

func (s *service) TracerProvider() *sdktrace.TracerProvider {
	return s.tracerProvider
}

func (s *service) Shutdown(ctx context.Context) error {
	return s.tracerProvider.Shutdown(ctx)
}

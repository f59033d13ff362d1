// Copyright 2025 The Rivaas Authors
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

package navigation

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metricsRecorder wraps the OTel instruments the router emits when
// WithMeter is configured. A nil *metricsRecorder is valid and every method
// on it is a no-op, so call sites never need a separate enabled check (the
// same "true no-op" posture as a nil tracer).
type metricsRecorder struct {
	started   metric.Int64Counter
	succeeded metric.Int64Counter
	failed    metric.Int64Counter
	cancelled metric.Int64Counter
}

// newMetricsRecorder builds the instrument set against meter, registering an
// observable gauge callback that reads live listener/registry sizes off r at
// collection time rather than on every mutation. Returns nil if meter is nil.
func newMetricsRecorder(meter metric.Meter, r *Router) *metricsRecorder {
	if meter == nil {
		return nil
	}
	started, _ := meter.Int64Counter("navigation.transitions.started")
	succeeded, _ := meter.Int64Counter("navigation.transitions.succeeded")
	failed, _ := meter.Int64Counter("navigation.transitions.failed")
	cancelled, _ := meter.Int64Counter("navigation.transitions.cancelled")

	pluginGauge, _ := meter.Int64ObservableGauge("navigation.plugins.registered")
	middlewareGauge, _ := meter.Int64ObservableGauge("navigation.middleware.registered")
	listenerGauge, _ := meter.Int64ObservableGauge("navigation.event_listeners.count")

	_, _ = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(pluginGauge, int64(r.plugins.size()))
		o.ObserveInt64(middlewareGauge, int64(r.mw.size()))
		for _, event := range []EventType{
			EventRouterStart, EventRouterStop,
			EventTransitionStart, EventTransitionSucc, EventTransitionError, EventTransitionCancel,
		} {
			r.events.mu.Lock()
			count := len(r.events.listeners[event])
			r.events.mu.Unlock()
			o.ObserveInt64(listenerGauge, int64(count), metric.WithAttributes(attribute.String("event", string(event))))
		}
		return nil
	}, pluginGauge, middlewareGauge, listenerGauge)

	return &metricsRecorder{started: started, succeeded: succeeded, failed: failed, cancelled: cancelled}
}

func (m *metricsRecorder) recordStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.started.Add(ctx, 1)
}

func (m *metricsRecorder) recordSuccess(ctx context.Context) {
	if m == nil {
		return
	}
	m.succeeded.Add(ctx, 1)
}

func (m *metricsRecorder) recordFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.failed.Add(ctx, 1)
}

func (m *metricsRecorder) recordCancel(ctx context.Context) {
	if m == nil {
		return
	}
	m.cancelled.Add(ctx, 1)
}

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
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// startSpan opens a "navigation.transition" span for navigation id against
// target, tagged destination first, then the attempt's identity.
// correlationID is the same uuid stamped onto the resulting State's Meta, letting a trace be
// joined back to the navigation record after the fact. Only called when
// r.tracer is non-nil; the returned context carries the span for any guard
// or middleware that wants to attach child spans of its own.
func (r *Router) startSpan(ctx context.Context, target string, id uint64, correlationID string) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, "navigation.transition",
		trace.WithAttributes(
			attribute.String("navigation.target", target),
			attribute.String("navigation.id", strconv.FormatUint(id, 10)),
			attribute.String("navigation.correlation_id", correlationID),
		),
	)
}

// endSpan finalizes span with an outcome. A nil span (tracing disabled) is a
// no-op, keeping every call site free of a tracer nil-check.
func (r *Router) endSpan(span trace.Span, code codes.Code, routerErr *RouterError) {
	if span == nil {
		return
	}
	if routerErr != nil {
		span.SetAttributes(attribute.String("navigation.error_code", string(routerErr.Code)))
		span.SetStatus(codes.Error, routerErr.Error())
	} else {
		span.SetStatus(code, "")
	}
	span.End()
}

package llmcore

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/contestra/llm-core")

// runSpan accumulates request/response fields for one adapter Run call and
// flushes them as gen_ai.* semantic-convention attributes on End, the same
// pattern as the teacher's internal/tracing.lmSpan.
type runSpan struct {
	req   *RunRequest
	start time.Time
	span  trace.Span

	toolChoiceSent  string
	enforcementMode string
	provokerUsed    bool
}

// TraceRun wraps an adapter's Run implementation in a span named
// "llm_core.run", recording gen_ai.* attributes from req and, on success,
// from the returned RunResult.
func TraceRun(ctx context.Context, req *RunRequest, fn func(context.Context) (*RunResult, error)) (*RunResult, error) {
	spanCtx, span := newRunSpan(ctx, req)
	defer span.end()

	result, err := fn(spanCtx)
	if err != nil {
		span.onError(err)
		return nil, err
	}
	if result != nil {
		span.onResult(result)
	}
	return result, nil
}

func newRunSpan(ctx context.Context, req *RunRequest) (context.Context, *runSpan) {
	spanCtx, otelSpan := tracer.Start(ctx, "llm_core.run")
	return spanCtx, &runSpan{
		req:   req,
		start: time.Now(),
		span:  otelSpan,
	}
}

func (s *runSpan) onError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s *runSpan) onResult(result *RunResult) {
	if result == nil {
		return
	}
	if v, ok := result.Meta["tool_choice_sent"].(string); ok {
		s.toolChoiceSent = v
	}
	if v, ok := result.Meta["enforcement_mode"].(string); ok {
		s.enforcementMode = v
	}
	if v, ok := result.Meta["provoker_hash"].(string); ok && v != "" {
		s.provokerUsed = true
	}
}

func (s *runSpan) end() {
	req := s.req
	attrs := []attribute.KeyValue{
		attribute.String("gen_ai.operation.name", "generate_content"),
		attribute.Float64("llm_core.latency_s", time.Since(s.start).Seconds()),
	}
	if req != nil {
		attrs = append(attrs,
			attribute.String("gen_ai.provider.name", req.Provider),
			attribute.String("gen_ai.request.model", req.ModelName),
			attribute.String("llm_core.grounding_mode", string(req.GroundingMode)),
		)
		if req.Temperature != nil {
			attrs = append(attrs, attribute.Float64("gen_ai.request.temperature", *req.Temperature))
		}
		if req.TopP != nil {
			attrs = append(attrs, attribute.Float64("gen_ai.request.top_p", *req.TopP))
		}
		if req.Seed != nil {
			attrs = append(attrs, attribute.Int64("gen_ai.request.seed", *req.Seed))
		}
	}
	if s.toolChoiceSent != "" {
		attrs = append(attrs, attribute.String("llm_core.tool_choice_sent", s.toolChoiceSent))
	}
	if s.enforcementMode != "" {
		attrs = append(attrs, attribute.String("llm_core.enforcement_mode", s.enforcementMode))
	}
	attrs = append(attrs, attribute.Bool("llm_core.provoker_used", s.provokerUsed))

	s.span.SetAttributes(attrs...)
	s.span.End()
}

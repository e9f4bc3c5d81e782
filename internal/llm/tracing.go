package llm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "topic-studio/internal/llm"

// genSpan records one generation call. Spans go to the global tracer
// provider, which is a no-op until the host installs an SDK.
type genSpan struct {
	start       time.Time
	span        trace.Span
	outputBytes int
	firstOutput time.Duration
}

func startSpan(ctx context.Context, method, model string, req Request) (context.Context, *genSpan) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "llm."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.operation.name", "generate_content"),
			attribute.String("gen_ai.provider.name", "openai"),
			attribute.String("gen_ai.request.model", model),
			attribute.Int64("gen_ai.request.max_tokens", req.MaxOutputTokens),
			attribute.Int("llm.input.bytes", len(req.Input)),
		))
	return ctx, &genSpan{start: time.Now(), span: span}
}

func (s *genSpan) addOutput(n int) {
	if n > 0 && s.outputBytes == 0 {
		s.firstOutput = time.Since(s.start)
	}
	s.outputBytes += n
}

func (s *genSpan) end(err error) {
	s.span.SetAttributes(attribute.Int("llm.output.bytes", s.outputBytes))
	if s.firstOutput > 0 {
		s.span.SetAttributes(attribute.Float64("gen_ai.server.time_to_first_token", s.firstOutput.Seconds()))
	}
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}

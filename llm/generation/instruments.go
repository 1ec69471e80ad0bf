package generation

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// instruments OTel 指标，与 Prometheus Collector 并行记录
type instruments struct {
	duration metric.Float64Histogram
	tokens   metric.Int64Counter
}

func newInstruments(meter metric.Meter, logger *zap.Logger) *instruments {
	duration, err := meter.Float64Histogram("llm.generation.duration",
		metric.WithDescription("Completion latency per model class"),
		metric.WithUnit("s"))
	if err != nil {
		logger.Warn("failed to create generation duration histogram", zap.Error(err))
		return nil
	}
	tokens, err := meter.Int64Counter("llm.generation.tokens",
		metric.WithDescription("Tokens consumed by completions"),
		metric.WithUnit("{token}"))
	if err != nil {
		logger.Warn("failed to create generation token counter", zap.Error(err))
		return nil
	}
	return &instruments{duration: duration, tokens: tokens}
}

func (i *instruments) record(ctx context.Context, provider, class, status string, d time.Duration, prompt, completion int) {
	if i == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("llm.provider", provider),
		attribute.String("llm.model_class", class),
		attribute.String("status", status),
	}
	i.duration.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
	if prompt > 0 {
		i.tokens.Add(ctx, int64(prompt), metric.WithAttributes(append(attrs, attribute.String("token.type", "prompt"))...))
	}
	if completion > 0 {
		i.tokens.Add(ctx, int64(completion), metric.WithAttributes(append(attrs, attribute.String("token.type", "completion"))...))
	}
}

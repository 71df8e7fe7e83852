package pipeline

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Step is one fallible unit of pipeline work.
type Step[T any] func(ctx context.Context) (T, error)

// Outcome is what a best-effort step settled on.
type Outcome[T any] struct {
	Value    T
	Err      error
	FellBack bool
}

// Required runs a step whose failure fails the asset. The error is prefixed
// with the step name.
func Required[T any](ctx context.Context, name string, step Step[T]) (T, error) {
	ctx, span := tracer.Start(ctx, "step."+name)
	defer span.End()

	v, err := step(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var zero T
		return zero, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

// BestEffort runs a step whose failure is absorbed: on error the fallback
// supplies the value. A panic in fallback is not recovered.
func BestEffort[T any](ctx context.Context, name string, step Step[T], fallback func(err error) T) Outcome[T] {
	ctx, span := tracer.Start(ctx, "step."+name)
	defer span.End()

	v, err := step(ctx)
	if err == nil {
		return Outcome[T]{Value: v}
	}
	span.RecordError(err)
	span.SetAttributes(attribute.Bool("step.fallback", true))
	return Outcome[T]{Value: fallback(err), Err: err, FellBack: true}
}

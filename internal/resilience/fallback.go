package resilience

import (
	"context"

	"go.uber.org/zap"
)

// Fallback is the outcome of TryOrDefault. When the operation failed, Value
// holds the default and Err the swallowed error.
type Fallback[T any] struct {
	Value T
	Err   error
}

// UsedDefault reports whether the default value was substituted.
func (f Fallback[T]) UsedDefault() bool {
	return f.Err != nil
}

// TryOrDefault runs op and substitutes def on any error. Optional sub-fetches
// (a per-title summary, an enrichment page) use it so that their failure
// never propagates to the caller.
func TryOrDefault[T any](ctx context.Context, op func(ctx context.Context) (T, error), def T) Fallback[T] {
	v, err := op(ctx)
	if err != nil {
		zap.L().Debug("resilience: using default after failure", zap.Error(err))
		return Fallback[T]{Value: def, Err: err}
	}
	return Fallback[T]{Value: v}
}

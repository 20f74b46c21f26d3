package middleware

import "context"

type contextKey string

const ctxOperatorID contextKey = "operator_id"

// OperatorIDFromContext returns the operator admitted by RequireOperator, or 0.
func OperatorIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if v, ok := ctx.Value(ctxOperatorID).(int64); ok {
		return v
	}
	return 0
}

func WithOperatorID(ctx context.Context, operatorID int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxOperatorID, operatorID)
}

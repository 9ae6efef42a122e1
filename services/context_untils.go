package services

import "context"

// persistentContext detaches a request context from its cancellation so
// dispatched background work survives the HTTP response, while keeping
// the context's values.
func persistentContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}

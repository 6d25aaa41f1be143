package genstream

import "context"

// Provider is a strategy pattern interface for streaming chat backends.
type Provider interface {
	Stream(ctx context.Context, req Request) (Stream, error)
}

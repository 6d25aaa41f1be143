// Package mock provides test doubles for genstream interfaces using function
// fields, plus scripted transports for driving streams without a network.
package mock

import (
	"context"

	"github.com/fwojciec/genstream"
)

// Interface compliance check.
var _ genstream.Provider = (*Provider)(nil)

// Provider is a test double for genstream.Provider.
// Set StreamFn before calling Stream.
type Provider struct {
	StreamFn func(ctx context.Context, req genstream.Request) (genstream.Stream, error)
}

// Stream delegates to StreamFn.
func (p *Provider) Stream(ctx context.Context, req genstream.Request) (genstream.Stream, error) {
	return p.StreamFn(ctx, req)
}

// Package verify implements the verification gate for platform-signed
// envelopes. Nothing downstream of the gate ever sees unverified data:
// every component that consumes a Transaction receives it from a Verifier.
package verify

import (
	"context"
	"errors"

	"github.com/xraph/storefront/transaction"
)

// ErrUnverified indicates an envelope whose signature or payload failed
// verification. The caller must not extend any entitlement based on it.
var ErrUnverified = errors.New("verify: unverified envelope")

// Verifier checks a signed envelope and returns its decoded payload.
// Implementations return an error wrapping ErrUnverified when the
// envelope cannot be trusted.
type Verifier interface {
	Verify(ctx context.Context, env transaction.Envelope) (*transaction.Transaction, error)
}

// Func is an adapter to use a plain function as a Verifier.
type Func func(ctx context.Context, env transaction.Envelope) (*transaction.Transaction, error)

// Verify implements Verifier.
func (f Func) Verify(ctx context.Context, env transaction.Envelope) (*transaction.Transaction, error) {
	return f(ctx, env)
}

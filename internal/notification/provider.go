package notification

import (
	"context"
)

// Provider defines an external push delivery backend.
// Providers must be safe for concurrent use.
type Provider interface {
	Name() string
	SupportsType(t Type) bool
	Send(ctx context.Context, n *Notification) error
}

// providerError lets providers mark errors as retryable
type providerError struct {
	Err       error
	Retryable bool
}

func (e *providerError) Error() string { return e.Err.Error() }
func (e *providerError) Unwrap() error { return e.Err }

func retryable(err error) *providerError {
	return &providerError{Err: err, Retryable: true}
}

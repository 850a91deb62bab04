package dcontext

import "context"

// DetachedContext returns a context that preserves all values from parent
// (logger, build IDs) but never cancels, regardless of parent's lifetime.
// It suits cleanup that must finish even if the caller's context was
// canceled, such as releasing a lock or removing a temp path. No other
// package in this module calls it.
func DetachedContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

package logging

import (
	"context"
	"sync"

	"go.uber.org/multierr"
)

// Warnings collects value errors that were tolerated while loading records
type Warnings struct {
	mu  sync.Mutex
	err error
}

// NewWarnings returns an empty sink
func NewWarnings() *Warnings {
	return &Warnings{}
}

// Add appends err; nil errors are ignored
func (w *Warnings) Add(err error) {
	if w == nil || err == nil {
		return
	}
	w.mu.Lock()
	w.err = multierr.Append(w.err, err)
	w.mu.Unlock()
}

// Err returns every recorded warning combined, or nil
func (w *Warnings) Err() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// List returns the recorded warnings in order
func (w *Warnings) List() []error {
	return multierr.Errors(w.Err())
}

// Len returns the number of recorded warnings
func (w *Warnings) Len() int {
	return len(w.List())
}

type warningsKey struct{}

// WithWarnings attaches w to ctx
func WithWarnings(ctx context.Context, w *Warnings) context.Context {
	return context.WithValue(ctx, warningsKey{}, w)
}

// WarningsFrom returns the sink attached to ctx, or nil. Add on a nil sink is a no-op.
func WarningsFrom(ctx context.Context) *Warnings {
	w, _ := ctx.Value(warningsKey{}).(*Warnings)
	return w
}

package trigger

import "context"

type stackKey struct{}

// WithStack returns a context carrying s.
func WithStack(ctx context.Context, s *Stack) context.Context {
	return context.WithValue(ctx, stackKey{}, s)
}

// FromContext returns the stack bound to ctx, or nil.
func FromContext(ctx context.Context) *Stack {
	s, _ := ctx.Value(stackKey{}).(*Stack) //nolint:errcheck // type assertion, not an error
	return s
}

// Ensure returns ctx and its stack, binding a fresh stack when ctx has
// none. A top-level CRUD call therefore starts from an empty stack while
// calls made from inside its hooks share it.
func Ensure(ctx context.Context) (context.Context, *Stack) {
	if s := FromContext(ctx); s != nil {
		return ctx, s
	}
	s := NewStack()
	return WithStack(ctx, s), s
}

// Active reports whether a hook chain for table and op is running in the
// call tree of ctx.
func Active(ctx context.Context, table string, op Operation) bool {
	s := FromContext(ctx)
	return s != nil && s.ActiveFor(table, op)
}

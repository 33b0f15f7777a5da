package write

import (
	"context"
	"fmt"
)

// RowScope identifies the batch row a storage call is made for. Storage
// executors and their loggers read it from the context.
type RowScope struct {
	Resource string
	Mode     Mode
	Index    int
	// Path locates a nested child row, e.g. "prices[1]"; empty for the row itself
	Path string
}

// String renders the scope as "product[3]" or "product[3].prices[1]"
func (s RowScope) String() string {
	out := fmt.Sprintf("%s[%d]", s.Resource, s.Index)
	if s.Path != "" {
		out += "." + s.Path
	}
	return out
}

type rowScopeKey struct{}

// WithRowScope returns a context carrying the row scope
func WithRowScope(ctx context.Context, scope RowScope) context.Context {
	return context.WithValue(ctx, rowScopeKey{}, scope)
}

// RowScopeFromContext returns the row scope of ctx, if any
func RowScopeFromContext(ctx context.Context) (RowScope, bool) {
	if ctx == nil {
		return RowScope{}, false
	}
	scope, ok := ctx.Value(rowScopeKey{}).(RowScope)
	return scope, ok
}

// Child returns the scope of a nested row below s
func (s RowScope) Child(path string) RowScope {
	if s.Path != "" {
		path = s.Path + "." + path
	}
	s.Path = path
	return s
}

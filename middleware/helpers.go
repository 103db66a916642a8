package middleware

import (
	"context"
	"net/http"

	"github.com/Dosada05/association-portal/app"
	"github.com/Dosada05/association-portal/guard"
)

type contextKey string

const (
	rootContextKey     contextKey = "client_root"
	decisionContextKey contextKey = "guard_decision"
)

// RootFromContext returns the application root ClientRoot attached.
func RootFromContext(ctx context.Context) (*app.Root, bool) {
	root, ok := ctx.Value(rootContextKey).(*app.Root)
	return root, ok && root != nil
}

// DecisionFromContext returns the guard decision Guarded mounted.
func DecisionFromContext(ctx context.Context) (guard.Decision, bool) {
	d, ok := ctx.Value(decisionContextKey).(guard.Decision)
	return d, ok
}

func withRoot(r *http.Request, root *app.Root) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), rootContextKey, root))
}

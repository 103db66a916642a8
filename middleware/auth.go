package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Dosada05/association-portal/app"
	"github.com/Dosada05/association-portal/guard"
	"github.com/Dosada05/association-portal/metrics"
)

// ClientRoot resolves the client instance of the request from its cookie,
// syncs its session and attaches the root to the context. A failed sync
// does not stop the request; handlers check the root's status. Guests
// that do not sign in during the request are released at its end.
func ClientRoot(cookies *CookieStore, registry *app.Registry, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, tokens := cookies.Client(r)
			root := registry.Acquire(id, tokens)
			defer registry.Release(root)

			// a failure is recorded in the root's status
			_, _ = root.Sync(r.Context())

			if err := cookies.SaveClient(w, r, root.ID, root.Tokens()); err != nil {
				logger.ErrorContext(r.Context(), "Failed to save client cookie", slog.String("client_id", root.ID), slog.Any("error", err))
			}
			next.ServeHTTP(w, withRoot(r, root))
		})
	}
}

// Guarded runs the route guard for path. Redirects carry their notice to
// the next page; a root whose session could not be fetched gets
// onAuthError instead of a view.
func Guarded(path string, cookies *CookieStore, onAuthError http.Handler, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			root, ok := RootFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if status, _ := root.Status(); status == app.StatusAuthError {
				metrics.GuardDecision(path, "auth_error")
				onAuthError.ServeHTTP(w, r)
				return
			}

			d, _ := guard.Resolve(path, root.Session())
			if d.IsRedirect() {
				metrics.GuardDecision(path, "redirect:"+d.Redirect)
				if d.Notice != guard.NoticeNone {
					if err := cookies.AddNotice(w, r, string(d.Notice)); err != nil {
						logger.WarnContext(r.Context(), "Failed to queue notice", slog.Any("error", err))
					}
				}
				http.Redirect(w, r, d.Redirect, http.StatusFound)
				return
			}

			metrics.GuardDecision(path, string(d.View))
			root.SetView(path)
			ctx := context.WithValue(r.Context(), decisionContextKey, d)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// RequireSession rejects API calls without a session.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		root, ok := RootFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if status, _ := root.Status(); status == app.StatusAuthError {
			writeError(w, http.StatusServiceUnavailable, "authentication service unavailable")
			return
		}
		if root.Session() == nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects API calls from non-admin sessions. Use after
// RequireSession.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		root, ok := RootFromContext(r.Context())
		if !ok || !root.Session().IsAdmin() {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/association-portal/guard"
	"github.com/Dosada05/association-portal/views"
)

// Root is never reached in practice: the guard redirects every request
// for "/".
func Root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, guard.PathLogin, http.StatusFound)
}

// AuthUnavailable renders the 503 page for guarded pages whose session
// could not be fetched. The retry link reloads the same page.
func AuthUnavailable(renderer *views.Renderer, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := views.ErrorPage{
			Status:  http.StatusServiceUnavailable,
			Message: "The authentication service is unavailable.",
			Retry:   r.URL.Path,
		}
		w.Header().Set("Retry-After", "5")
		if err := renderer.Render(w, http.StatusServiceUnavailable, views.PageError, page); err != nil {
			logger.ErrorContext(r.Context(), "Failed to render error page", slog.Any("error", err))
		}
	})
}

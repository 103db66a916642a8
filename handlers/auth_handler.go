package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Dosada05/association-portal/gateway"
	"github.com/Dosada05/association-portal/guard"
	"github.com/Dosada05/association-portal/middleware"
	"github.com/Dosada05/association-portal/views"
)

type AuthHandler struct {
	renderer *views.Renderer
	cookies  *middleware.CookieStore
	logger   *slog.Logger
}

func NewAuthHandler(renderer *views.Renderer, cookies *middleware.CookieStore, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{renderer: renderer, cookies: cookies, logger: logger}
}

// LoginForm renders the sign-in page. The guard has already sent signed-in
// clients to the dashboard.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	page := views.LoginPage{Notice: h.cookies.PopNotice(w, r)}
	h.render(w, r, http.StatusOK, page)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	root, ok := middleware.RootFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, views.LoginPage{Error: "Malformed form."})
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))
	password := r.PostForm.Get("password")
	if email == "" || password == "" {
		h.render(w, r, http.StatusBadRequest, views.LoginPage{Email: email, Error: "Email and password are required."})
		return
	}

	_, err := root.Client().SignInWithPassword(r.Context(), email, password)
	switch {
	case errors.Is(err, gateway.ErrInvalidCredentials):
		h.render(w, r, http.StatusUnauthorized, views.LoginPage{Email: email, Error: "Invalid email or password."})
		return
	case err != nil:
		h.logger.WarnContext(r.Context(), "Sign-in failed", slog.String("client_id", root.ID), slog.Any("error", err))
		h.render(w, r, http.StatusServiceUnavailable, views.LoginPage{Email: email, Error: "Sign-in is temporarily unavailable. Try again in a moment."})
		return
	}

	if err := h.cookies.SaveClient(w, r, root.ID, root.Tokens()); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to save client cookie", slog.String("client_id", root.ID), slog.Any("error", err))
	}
	h.logger.InfoContext(r.Context(), "User signed in", slog.String("client_id", root.ID))
	http.Redirect(w, r, guard.PathDashboard, http.StatusFound)
}

// Logout signs the client instance out. Other tabs of the same browser
// are moved to the login page over the live channel.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	root, ok := middleware.RootFromContext(r.Context())
	if ok {
		root.Client().SignOut(r.Context())
		if err := h.cookies.SaveClient(w, r, root.ID, root.Tokens()); err != nil {
			h.logger.ErrorContext(r.Context(), "Failed to clear client cookie", slog.String("client_id", root.ID), slog.Any("error", err))
		}
	}
	if err := h.cookies.AddNotice(w, r, string(guard.NoticeSignedOut)); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to queue notice", slog.Any("error", err))
	}
	http.Redirect(w, r, guard.PathLogin, http.StatusFound)
}

func (h *AuthHandler) render(w http.ResponseWriter, r *http.Request, status int, page views.LoginPage) {
	if err := h.renderer.Render(w, status, views.PageLogin, page); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to render login page", slog.Any("error", err))
	}
}

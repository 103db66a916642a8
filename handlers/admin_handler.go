package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Dosada05/association-portal/guard"
	"github.com/Dosada05/association-portal/middleware"
	"github.com/Dosada05/association-portal/services"
	"github.com/Dosada05/association-portal/views"
)

type AdminHandler struct {
	loader   services.AdminDashboardLoader
	renderer *views.Renderer
	logger   *slog.Logger
}

func NewAdminHandler(loader services.AdminDashboardLoader, renderer *views.Renderer, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{loader: loader, renderer: renderer, logger: logger}
}

func (h *AdminHandler) Page(w http.ResponseWriter, r *http.Request) {
	root, ok := middleware.RootFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	sess := root.Session()

	state, err := h.loader.Load(r.Context(), root.Client(), sess)
	switch {
	case errors.Is(err, services.ErrForbiddenOperation), errors.Is(err, services.ErrAuthenticationFailed):
		// role changed between guard and load
		http.Redirect(w, r, guard.PathDashboard, http.StatusFound)
		return
	case err != nil:
		h.logger.InfoContext(r.Context(), "Admin load aborted", slog.String("client_id", root.ID), slog.Any("error", err))
		return
	}

	page := views.AdminPage{Email: sess.User.Email, State: state}
	if err := h.renderer.Render(w, http.StatusOK, views.PageAdmin, page); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to render admin dashboard", slog.Any("error", err))
	}
}

// State godoc
// @Summary Admin overview
// @Tags admin
// @Produce json
// @Success 200 {object} models.AdminDashboardState
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Нужна роль admin"
// @Router /admin [get]
func (h *AdminHandler) State(w http.ResponseWriter, r *http.Request) {
	q, sess := caller(r)
	state, err := h.loader.Load(r.Context(), q, sess)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, state, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

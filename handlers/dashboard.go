package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/association-portal/middleware"
	"github.com/Dosada05/association-portal/services"
	"github.com/Dosada05/association-portal/views"
)

type DashboardHandler struct {
	loader   services.DashboardLoader
	renderer *views.Renderer
	cookies  *middleware.CookieStore
	logger   *slog.Logger
}

func NewDashboardHandler(loader services.DashboardLoader, renderer *views.Renderer, cookies *middleware.CookieStore, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{loader: loader, renderer: renderer, cookies: cookies, logger: logger}
}

// Page renders the dashboard. Each request loads from scratch.
func (h *DashboardHandler) Page(w http.ResponseWriter, r *http.Request) {
	root, ok := middleware.RootFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	sess := root.Session()

	state, err := h.loader.Load(r.Context(), root.Client(), sess)
	if err != nil {
		// the browser went away or the session vanished between guard and load
		h.logger.InfoContext(r.Context(), "Dashboard load aborted", slog.String("client_id", root.ID), slog.Any("error", err))
		return
	}

	page := views.DashboardPage{
		Notice: h.cookies.PopNotice(w, r),
		State:  state,
	}
	if sess != nil {
		page.Email = sess.User.Email
		page.Admin = sess.IsAdmin()
	}
	if err := h.renderer.Render(w, http.StatusOK, views.PageDashboard, page); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to render dashboard", slog.Any("error", err))
	}
}

// State godoc
// @Summary Dashboard data
// @Tags dashboard
// @Description Association, its members and competitions still open for registration. Failed steps are listed in degraded.
// @Produce json
// @Success 200 {object} models.DashboardState
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 503 {object} map[string]string "Сервис аутентификации недоступен"
// @Router /dashboard [get]
func (h *DashboardHandler) State(w http.ResponseWriter, r *http.Request) {
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

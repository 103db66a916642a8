package handlers

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/Dosada05/association-portal/guard"
	"github.com/Dosada05/association-portal/live"
	"github.com/Dosada05/association-portal/middleware"
)

type WebSocketHandler struct {
	hub      *live.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler accepts same-host connections plus those from
// allowedOrigins.
func NewWebSocketHandler(hub *live.Hub, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				if allowed[origin] {
					return true
				}
				u, err := url.Parse(origin)
				return err == nil && strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

// ServeWs joins the connection to the room of the client instance, so
// navigations decided for that instance reach every open tab. The page
// passes its path so a root mounted again after a restart knows its view.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	root, ok := middleware.RootFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		h.logger.WarnContext(r.Context(), "Failed to upgrade connection", slog.String("client_id", root.ID), slog.Any("error", err))
		return
	}

	// A page reconnecting to a remounted root tells it what it shows.
	if path := r.URL.Query().Get("path"); path != "" && root.View() == "" {
		if d, ok := guard.Resolve(path, root.Session()); ok && !d.IsRedirect() {
			root.SetView(path)
		}
	}

	client := live.NewClient(h.hub, conn, root.ID)
	if !h.hub.Join(client) {
		_ = conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

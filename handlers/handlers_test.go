package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/association-portal/app"
	"github.com/Dosada05/association-portal/gateway/gatewaytest"
	"github.com/Dosada05/association-portal/handlers"
	"github.com/Dosada05/association-portal/live"
	"github.com/Dosada05/association-portal/middleware"
	"github.com/Dosada05/association-portal/models"
	"github.com/Dosada05/association-portal/repositories/repotest"
	"github.com/Dosada05/association-portal/routes"
	"github.com/Dosada05/association-portal/services"
	"github.com/Dosada05/association-portal/storage"
	"github.com/Dosada05/association-portal/views"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type env struct {
	auth     *gatewaytest.AuthServer
	data     *repotest.Querier
	hub      *live.Hub
	registry *app.Registry
	cookies  *middleware.CookieStore
	server   *httptest.Server
}

func today() models.Date { return models.DateOf(time.Now()) }

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvIdle(t, time.Minute)
}

// newEnvIdle builds an env whose roots go idle after idle.
func newEnvIdle(t *testing.T, idle time.Duration) *env {
	t.Helper()

	auth := gatewaytest.NewAuthServer(t)
	auth.AddUser("coach@club.test", "secret", models.User{ID: "u1"})
	auth.AddUser("admin@club.test", "secret", models.User{ID: "admin1", UserMetadata: map[string]any{"role": "admin"}})

	soon := today().AddDate(0, 0, 10)
	data := repotest.New().
		Seed("associations", models.Association{ID: "a1", Name: "Judo Club", UserID: "u1"}).
		Seed("members", models.Member{
			ID: "m1", FirstName: "Ana", LastName: "Lopes",
			DateOfBirth: models.NewDate(1990, 1, 2), Type: models.MemberCoach, AssociationID: "a1",
		}).
		Seed("competitions", models.Competition{
			ID: "c1", Name: "Autumn Cup", Location: "Lyon",
			Date: models.DateOf(soon.AddDate(0, 0, 5)), RegistrationDeadline: models.DateOf(soon),
		})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := live.NewHub(testLogger)
	go hub.Run(ctx)
	registry := app.NewRegistry(auth.Service(data.Runner()), hub, idle, testLogger)
	t.Cleanup(registry.Close)

	renderer, err := views.New()
	require.NoError(t, err)
	cookies, err := middleware.NewCookieStore(strings.Repeat("k", 32), false)
	require.NoError(t, err)

	router := chi.NewRouter()
	routes.SetupRoutes(router, routes.Deps{
		Cookies:      cookies,
		ClientRoot:   middleware.ClientRoot(cookies, registry, testLogger),
		AuthError:    handlers.AuthUnavailable(renderer, testLogger),
		LoginLimiter: middleware.NewRateLimiter(100, time.Millisecond),
		Logger:       testLogger,

		Auth:          handlers.NewAuthHandler(renderer, cookies, testLogger),
		Dashboard:     handlers.NewDashboardHandler(services.NewDashboardLoader(testLogger, time.Now), renderer, cookies, testLogger),
		Admin:         handlers.NewAdminHandler(services.NewAdminDashboardLoader(testLogger, time.Now), renderer, testLogger),
		Association:   handlers.NewAssociationHandler(services.NewAssociationService(storage.Disabled{}, testLogger)),
		Members:       handlers.NewMemberHandler(services.NewMemberService(testLogger, time.Now)),
		Competitions:  handlers.NewCompetitionHandler(services.NewCompetitionService(testLogger, time.Now), services.NewResultService(testLogger)),
		Registrations: handlers.NewRegistrationHandler(services.NewRegistrationService(testLogger, time.Now)),
		WebSocket:     handlers.NewWebSocketHandler(hub, nil, testLogger),
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &env{auth: auth, data: data, hub: hub, registry: registry, cookies: cookies, server: server}
}

// browser keeps cookies and does not follow redirects.
func (e *env) browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (e *env) get(t *testing.T, c *http.Client, path string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(e.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (e *env) signIn(t *testing.T, c *http.Client, email string) {
	t.Helper()
	resp, err := c.PostForm(e.server.URL+"/login", url.Values{"email": {email}, "password": {"secret"}})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func (e *env) clientID(t *testing.T, c *http.Client) string {
	t.Helper()
	u, err := url.Parse(e.server.URL)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range c.Jar.Cookies(u) {
		req.AddCookie(ck)
	}
	id, _ := e.cookies.Client(req)
	require.NotEmpty(t, id)
	return id
}

// dial opens the live connection of a page at path and waits until it
// joined its room.
func (e *env) dial(t *testing.T, c *http.Client, path string) *websocket.Conn {
	t.Helper()
	u, err := url.Parse(e.server.URL)
	require.NoError(t, err)
	header := http.Header{}
	for _, ck := range c.Jar.Cookies(u) {
		header.Add("Cookie", ck.String())
	}
	target := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws?path=" + url.QueryEscape(path)
	ws, _, err := websocket.DefaultDialer.Dial(target, header)
	require.NoError(t, err)

	room := e.clientID(t, c)
	require.Eventually(t, func() bool { return e.hub.RoomSize(room) > 0 }, time.Second, 10*time.Millisecond)
	return ws
}

type navigateMessage struct {
	Type    string               `json:"type"`
	Payload live.NavigatePayload `json:"payload"`
}

func readNavigate(t *testing.T, ws *websocket.Conn) navigateMessage {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg navigateMessage
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func (e *env) logout(t *testing.T, c *http.Client) {
	t.Helper()
	resp, err := c.Post(e.server.URL+"/logout", "application/x-www-form-urlencoded", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestGuestIsSentToLogin(t *testing.T) {
	e := newEnv(t)
	c := e.browser(t)

	for _, path := range []string{"/", "/dashboard", "/admin"} {
		resp, _ := e.get(t, c, path)
		assert.Equal(t, http.StatusFound, resp.StatusCode, path)
		assert.Equal(t, "/login", resp.Header.Get("Location"), path)
	}

	resp, body := e.get(t, c, "/login")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `action="/login"`)
}

func TestWrongPasswordRendersLoginAgain(t *testing.T) {
	e := newEnv(t)
	c := e.browser(t)

	resp, err := c.PostForm(e.server.URL+"/login", url.Values{"email": {"coach@club.test"}, "password": {"nope"}})
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(body), "Invalid email or password.")
	assert.Contains(t, string(body), `value="coach@club.test"`)
}

func TestCoachDashboard(t *testing.T) {
	e := newEnv(t)
	c := e.browser(t)
	e.signIn(t, c, "coach@club.test")

	resp, body := e.get(t, c, "/dashboard")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Judo Club")
	assert.Contains(t, body, "Ana Lopes")
	assert.Contains(t, body, "Coach")
	assert.NotContains(t, body, "Grade:")
	assert.Contains(t, body, "Autumn Cup")
	assert.NotContains(t, body, `href="/admin"`)

	// signed-in clients skip the login page
	resp, _ = e.get(t, c, "/login")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func TestNonAdminAtAdminGoesToDashboardWithNotice(t *testing.T) {
	e := newEnv(t)
	c := e.browser(t)
	e.signIn(t, c, "coach@club.test")

	resp, _ := e.get(t, c, "/admin")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	_, body := e.get(t, c, "/dashboard")
	assert.Contains(t, body, views.NoticeText("admin_required"))

	// the notice is shown once
	_, body = e.get(t, c, "/dashboard")
	assert.NotContains(t, body, views.NoticeText("admin_required"))
}

func TestAdminDashboard(t *testing.T) {
	e := newEnv(t)
	c := e.browser(t)
	e.signIn(t, c, "admin@club.test")

	resp, body := e.get(t, c, "/admin")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Admin dashboard")
	assert.Contains(t, body, "1 upcoming competitions")
}

func TestNoAssociationYet(t *testing.T) {
	e := newEnv(t)
	c := e.browser(t)
	e.signIn(t, c, "admin@club.test")

	_, body := e.get(t, c, "/dashboard")

	assert.Contains(t, body, "No association yet")
	assert.Contains(t, body, "Autumn Cup")
	assert.Contains(t, body, `href="/admin"`)
}

func TestAuthUnavailableRendersRetryPage(t *testing.T) {
	e := newEnv(t)
	e.auth.TTL = -time.Minute // every issued access token is already expired
	c := e.browser(t)
	e.signIn(t, c, "coach@club.test")

	e.auth.SetDown(true)
	resp, body := e.get(t, c, "/dashboard")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, `href="/dashboard"`)

	e.auth.SetDown(false)
	resp, body = e.get(t, c, "/dashboard")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Judo Club")
}

func TestLogoutShowsNotice(t *testing.T) {
	e := newEnv(t)
	c := e.browser(t)
	e.signIn(t, c, "coach@club.test")

	resp, err := c.Post(e.server.URL+"/logout", "application/x-www-form-urlencoded", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp, body := e.get(t, c, "/login")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, views.NoticeText("signed_out"))

	resp, _ = e.get(t, c, "/dashboard")
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestSignOutNavigatesOpenPages(t *testing.T) {
	e := newEnv(t)
	c := e.browser(t)
	e.signIn(t, c, "coach@club.test")
	resp, _ := e.get(t, c, "/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ws := e.dial(t, c, "/dashboard")
	defer ws.Close()

	e.logout(t, c)

	msg := readNavigate(t, ws)
	assert.Equal(t, live.TypeNavigate, msg.Type)
	assert.Equal(t, "/login", msg.Payload.To)
}

func TestOpenPageOutlivesIdleTimeout(t *testing.T) {
	e := newEnvIdle(t, 100*time.Millisecond)
	c := e.browser(t)
	e.signIn(t, c, "admin@club.test")
	resp, _ := e.get(t, c, "/admin")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ws := e.dial(t, c, "/admin")
	defer ws.Close()

	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, e.registry.Sweep())
	_, ok := e.registry.Lookup(e.clientID(t, c))
	require.True(t, ok)

	e.logout(t, c)

	msg := readNavigate(t, ws)
	assert.Equal(t, live.TypeNavigate, msg.Type)
	assert.Equal(t, "/login", msg.Payload.To)
}

func TestReconnectRestoresView(t *testing.T) {
	e := newEnvIdle(t, 50*time.Millisecond)
	c := e.browser(t)
	e.signIn(t, c, "admin@club.test")
	resp, _ := e.get(t, c, "/admin")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	time.Sleep(150 * time.Millisecond)
	require.Equal(t, 1, e.registry.Sweep())

	// the page reconnects; its cookie mounts a fresh root
	ws := e.dial(t, c, "/admin")
	defer ws.Close()
	root, ok := e.registry.Lookup(e.clientID(t, c))
	require.True(t, ok)
	assert.Equal(t, "/admin", root.View())

	e.logout(t, c)

	msg := readNavigate(t, ws)
	assert.Equal(t, "/login", msg.Payload.To)
}

func TestReconnectIgnoresPathTheSessionCannotSee(t *testing.T) {
	e := newEnvIdle(t, 50*time.Millisecond)
	c := e.browser(t)
	e.signIn(t, c, "coach@club.test")

	time.Sleep(150 * time.Millisecond)
	require.Equal(t, 1, e.registry.Sweep())

	ws := e.dial(t, c, "/admin")
	defer ws.Close()
	root, ok := e.registry.Lookup(e.clientID(t, c))
	require.True(t, ok)
	assert.Empty(t, root.View())
}

func TestGuestsAreNotKept(t *testing.T) {
	e := newEnv(t)

	for i := 0; i < 20; i++ {
		resp, _ := e.get(t, e.browser(t), "/login")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, _ := e.get(t, e.browser(t), "/api/v1/dashboard")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, e.registry.Len())

	c := e.browser(t)
	e.signIn(t, c, "coach@club.test")
	assert.Equal(t, 1, e.registry.Len())
	_, ok := e.registry.Lookup(e.clientID(t, c))
	assert.True(t, ok)

	resp, body := e.get(t, c, "/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Judo Club")
}

func TestAmbiguousAssociationIsConflict(t *testing.T) {
	e := newEnv(t)
	e.data.Seed("associations", models.Association{ID: "a2", Name: "Second Club", UserID: "u1"})
	c := e.browser(t)
	e.signIn(t, c, "coach@club.test")

	resp, _ := e.get(t, c, "/api/v1/members")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = e.get(t, c, "/api/v1/association")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI(t *testing.T) {
	e := newEnv(t)
	guest := e.browser(t)

	resp, _ := e.get(t, guest, "/api/v1/dashboard")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	coach := e.browser(t)
	e.signIn(t, coach, "coach@club.test")

	resp, body := e.get(t, coach, "/api/v1/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var state models.DashboardState
	require.NoError(t, json.Unmarshal([]byte(body), &state))
	assert.False(t, state.Loading)
	require.Len(t, state.Members, 1)
	assert.Equal(t, "m1", state.Members[0].ID)

	resp, _ = e.get(t, coach, "/api/v1/admin")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err := coach.Post(e.server.URL+"/api/v1/competitions", "application/json",
		strings.NewReader(`{"name":"X","location":"Y","date":"2030-01-02","registration_deadline":"2030-01-01"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = coach.Post(e.server.URL+"/api/v1/members", "application/json",
		strings.NewReader(`{"first_name":"Leo","last_name":"Martin","date_of_birth":"2012-05-06","type":"adherent"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Len(t, e.data.Rows("members"), 2)

	resp, err = coach.Post(e.server.URL+"/api/v1/members", "application/json",
		strings.NewReader(`{"first_name":"","last_name":"Martin","date_of_birth":"2012-05-06","type":"adherent"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, e.server.URL+"/api/v1/members/not-a-uuid", nil)
	require.NoError(t, err)
	resp, err = coach.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	resp, body := e.get(t, e.browser(t), "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)
}

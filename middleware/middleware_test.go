package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/association-portal/gateway"
)

// carry copies the cookies set on rec into a fresh request, like a browser
// would on its next visit.
func carry(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestCookieStore_ClientRoundTrip(t *testing.T) {
	store, err := NewCookieStore(strings.Repeat("x", 32), false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	tokens := gateway.Tokens{AccessToken: "a", RefreshToken: "r"}
	require.NoError(t, store.SaveClient(rec, httptest.NewRequest(http.MethodGet, "/", nil), "client-1", tokens))

	cookie := rec.Result().Cookies()
	require.Len(t, cookie, 1)
	assert.True(t, cookie[0].HttpOnly)
	assert.NotContains(t, cookie[0].Value, "client-1")

	id, got := store.Client(carry(rec))
	assert.Equal(t, "client-1", id)
	assert.Equal(t, tokens, got)
}

func TestCookieStore_UnchangedClientIsNotRewritten(t *testing.T) {
	store, err := NewCookieStore(strings.Repeat("x", 32), false)
	require.NoError(t, err)

	first := httptest.NewRecorder()
	require.NoError(t, store.SaveClient(first, httptest.NewRequest(http.MethodGet, "/", nil), "c", gateway.Tokens{}))

	second := httptest.NewRecorder()
	require.NoError(t, store.SaveClient(second, carry(first), "c", gateway.Tokens{}))
	assert.Empty(t, second.Result().Cookies())
}

func TestCookieStore_ForeignSecretYieldsEmptyClient(t *testing.T) {
	a, err := NewCookieStore(strings.Repeat("a", 32), false)
	require.NoError(t, err)
	b, err := NewCookieStore(strings.Repeat("b", 32), false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, a.SaveClient(rec, httptest.NewRequest(http.MethodGet, "/", nil), "c", gateway.Tokens{AccessToken: "t"}))

	id, tokens := b.Client(carry(rec))
	assert.Empty(t, id)
	assert.Equal(t, gateway.Tokens{}, tokens)
}

func TestCookieStore_NoticeIsShownOnce(t *testing.T) {
	store, err := NewCookieStore(strings.Repeat("x", 32), false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, store.AddNotice(rec, httptest.NewRequest(http.MethodGet, "/", nil), "admin_required"))

	next := httptest.NewRecorder()
	assert.Equal(t, "admin_required", store.PopNotice(next, carry(rec)))
	assert.Equal(t, "", store.PopNotice(httptest.NewRecorder(), carry(next)))
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	handler := l.Limit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	call := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, call("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, call("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, call("10.0.0.2"), "buckets are per IP")

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusNoContent, call("10.0.0.1"))
}

func TestRequireSession_WithoutRoot(t *testing.T) {
	rec := httptest.NewRecorder()
	RequireSession(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"authentication required"}`, rec.Body.String())
}

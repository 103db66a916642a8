package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/association-portal/models"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, sub, role string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   sub,
		"email": sub + "@example.com",
		"exp":   exp.Unix(),
		"role":  "authenticated",
	}
	if role != "" {
		claims["user_metadata"] = map[string]any{"role": role}
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

type recordedEvent struct {
	event   Event
	session *models.Session
}

func newTestService(t *testing.T, handler http.Handler, secret string) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := New(Config{URL: srv.URL, AnonKey: "anon-key", JWTSecret: secret, HTTPClient: srv.Client()})
	require.NoError(t, err)
	return svc
}

func TestGetCurrentSession_NoTokens(t *testing.T) {
	svc := newTestService(t, http.NotFoundHandler(), testSecret)

	sess, err := svc.NewClient(Tokens{}).GetCurrentSession(context.Background())

	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestGetCurrentSession_VerifiesLocally(t *testing.T) {
	var calls int32
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}), testSecret)

	access := signToken(t, "u1", models.RoleAdmin, time.Now().Add(time.Hour))
	client := svc.NewClient(Tokens{AccessToken: access, RefreshToken: "r1"})

	sess, err := client.GetCurrentSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess)

	assert.Equal(t, "u1", sess.UserID())
	assert.True(t, sess.IsAdmin())
	assert.Zero(t, atomic.LoadInt32(&calls), "a verifiable token must not hit the auth API")
}

func TestGetCurrentSession_ConfirmsWithAuthAPIWithoutSecret(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		_ = json.NewEncoder(w).Encode(models.User{ID: "u1", Email: "u1@example.com", UserMetadata: map[string]any{}})
	}), "")

	access := signToken(t, "u1", models.RoleAdmin, time.Now().Add(time.Hour))
	sess, err := svc.NewClient(Tokens{AccessToken: access}).GetCurrentSession(context.Background())

	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.False(t, sess.IsAdmin(), "metadata from the auth API wins over unverified claims")
}

func TestGetCurrentSession_RefreshesExpiredToken(t *testing.T) {
	fresh := signToken(t, "u1", "", time.Now().Add(time.Hour))
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  fresh,
			"refresh_token": "r2",
			"token_type":    "bearer",
			"expires_in":    3600,
			"user":          map[string]any{"id": "u1", "email": "u1@example.com"},
		})
	}), testSecret)

	expired := signToken(t, "u1", "", time.Now().Add(-time.Minute))
	client := svc.NewClient(Tokens{AccessToken: expired, RefreshToken: "r1"})

	var events []recordedEvent
	client.OnAuthStateChange(func(e Event, s *models.Session) { events = append(events, recordedEvent{e, s}) })

	sess, err := client.GetCurrentSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess)

	assert.Equal(t, Tokens{AccessToken: fresh, RefreshToken: "r2"}, client.Tokens())
	require.Len(t, events, 1)
	assert.Equal(t, EventTokenRefreshed, events[0].event)
	assert.Same(t, sess, events[0].session)
}

func TestGetCurrentSession_RejectedRefreshSignsOut(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid Refresh Token"}`))
	}), testSecret)

	client := svc.NewClient(Tokens{AccessToken: signToken(t, "u1", "", time.Now().Add(-time.Minute)), RefreshToken: "r1"})
	var events []Event
	client.OnAuthStateChange(func(e Event, _ *models.Session) { events = append(events, e) })

	sess, err := client.GetCurrentSession(context.Background())

	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Equal(t, Tokens{}, client.Tokens())
	assert.Equal(t, []Event{EventSignedOut}, events)
}

func TestGetCurrentSession_AuthUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	svc, err := New(Config{URL: url, AnonKey: "anon-key", JWTSecret: testSecret})
	require.NoError(t, err)

	client := svc.NewClient(Tokens{AccessToken: signToken(t, "u1", "", time.Now().Add(-time.Minute)), RefreshToken: "r1"})
	_, err = client.GetCurrentSession(context.Background())

	assert.ErrorIs(t, err, ErrAuthUnavailable)
	assert.Equal(t, "r1", client.Tokens().RefreshToken, "an unreachable service must not sign the user out")
}

func TestSignInWithPassword(t *testing.T) {
	access := signToken(t, "u1", "", time.Now().Add(time.Hour))
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "correct horse" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  access,
			"refresh_token": "r1",
			"expires_in":    3600,
			"user":          map[string]any{"id": "u1", "email": body["email"]},
		})
	}), testSecret)

	client := svc.NewClient(Tokens{})
	var events []Event
	dispose := client.OnAuthStateChange(func(e Event, _ *models.Session) { events = append(events, e) })

	_, err := client.SignInWithPassword(context.Background(), "u1@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Empty(t, events)

	sess, err := client.SignInWithPassword(context.Background(), "u1@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.UserID())
	assert.Equal(t, []Event{EventSignedIn}, events)

	dispose()
	dispose()
	assert.Zero(t, client.ListenerCount())
}

func TestSignOut_ClearsEvenWhenRemoteFails(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}), testSecret)

	client := svc.NewClient(Tokens{AccessToken: signToken(t, "u1", "", time.Now().Add(time.Hour)), RefreshToken: "r1"})
	var got []recordedEvent
	client.OnAuthStateChange(func(e Event, s *models.Session) { got = append(got, recordedEvent{e, s}) })

	client.SignOut(context.Background())

	assert.Equal(t, Tokens{}, client.Tokens())
	require.Len(t, got, 1)
	assert.Equal(t, EventSignedOut, got[0].event)
	assert.Nil(t, got[0].session)
}

func TestGetCurrentSession_RefreshOutlivesCancelledCaller(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	fresh := signToken(t, "u1", "", time.Now().Add(time.Hour))
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(started) })
		<-release
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  fresh,
			"refresh_token": "r2",
			"expires_in":    3600,
			"user":          map[string]any{"id": "u1"},
		})
	}), testSecret)

	client := svc.NewClient(Tokens{AccessToken: signToken(t, "u1", "", time.Now().Add(-time.Minute)), RefreshToken: "r1"})
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := client.GetCurrentSession(ctx)
		errc <- err
	}()

	<-started
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
	assert.Equal(t, "r1", client.Tokens().RefreshToken)

	close(release)
	require.Eventually(t, func() bool { return client.Tokens().RefreshToken == "r2" }, time.Second, 10*time.Millisecond)

	sess, err := client.GetCurrentSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.UserID())
}

func TestGetCurrentSession_CancelledCallerStartsNoRefresh(t *testing.T) {
	var calls int32
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}), testSecret)

	client := svc.NewClient(Tokens{RefreshToken: "r1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetCurrentSession(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, atomic.LoadInt32(&calls))
	assert.Equal(t, "r1", client.Tokens().RefreshToken)
}

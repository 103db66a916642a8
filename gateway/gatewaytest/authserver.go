// Package gatewaytest runs a fake auth API for tests of code that signs
// users in through the gateway.
package gatewaytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/Dosada05/association-portal/gateway"
	"github.com/Dosada05/association-portal/models"
)

const Secret = "test-jwt-secret-with-enough-entropy"

// SignToken issues an HS256 access token for user, the way the auth API does.
func SignToken(secret string, user models.User, exp time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"exp":   exp.Unix(),
		"role":  "authenticated",
	}
	if user.UserMetadata != nil {
		claims["user_metadata"] = user.UserMetadata
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

type account struct {
	password string
	user     models.User
}

// AuthServer answers the password and refresh grants and sign-out.
type AuthServer struct {
	*httptest.Server
	TTL time.Duration

	t        testing.TB
	mu       sync.Mutex
	accounts map[string]account
	refresh  map[string]string
	down     bool
}

func NewAuthServer(t testing.TB) *AuthServer {
	t.Helper()
	s := &AuthServer{
		TTL:      time.Hour,
		t:        t,
		accounts: make(map[string]account),
		refresh:  make(map[string]string),
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			s.mu.Lock()
			down := s.down
			s.mu.Unlock()
			if down {
				http.Error(w, `{"message":"service unavailable"}`, http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Post("/auth/v1/token", s.token)
	r.Post("/auth/v1/logout", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// AddUser registers an account that can sign in with password.
func (s *AuthServer) AddUser(email, password string, user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.Email = email
	s.accounts[email] = account{password: password, user: user}
}

// SetDown makes every endpoint answer 503.
func (s *AuthServer) SetDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

// Issue mints tokens for a registered account without a sign-in call.
func (s *AuthServer) Issue(email string) gateway.Tokens {
	s.t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	resp := s.issueLocked(s.accounts[email].user)
	return gateway.Tokens{AccessToken: resp["access_token"].(string), RefreshToken: resp["refresh_token"].(string)}
}

// Service returns a gateway service talking to s, with queries served by runner.
func (s *AuthServer) Service(runner gateway.Runner) *gateway.Service {
	s.t.Helper()
	svc, err := gateway.New(gateway.Config{
		URL:        s.URL,
		AnonKey:    "anon-key",
		JWTSecret:  Secret,
		HTTPClient: s.Client(),
		Runner:     runner,
	})
	if err != nil {
		s.t.Fatalf("gateway.New: %v", err)
	}
	return svc
}

func (s *AuthServer) issueLocked(user models.User) map[string]any {
	exp := time.Now().Add(s.TTL)
	access, err := SignToken(Secret, user, exp)
	if err != nil {
		s.t.Fatalf("sign token: %v", err)
	}
	refresh := uuid.NewString()
	s.refresh[refresh] = user.Email
	return map[string]any{
		"access_token":  access,
		"token_type":    "bearer",
		"expires_at":    exp.Unix(),
		"refresh_token": refresh,
		"user":          user,
	}
}

func (s *AuthServer) token(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var email string
	switch r.URL.Query().Get("grant_type") {
	case "password":
		acc, ok := s.accounts[body["email"]]
		if !ok || acc.password != body["password"] {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Invalid login credentials"})
			return
		}
		email = body["email"]
	case "refresh_token":
		var ok bool
		email, ok = s.refresh[body["refresh_token"]]
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Invalid Refresh Token"})
			return
		}
		delete(s.refresh, body["refresh_token"])
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}
	writeJSON(w, http.StatusOK, s.issueLocked(s.accounts[email].user))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

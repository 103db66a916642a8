// Package gateway wraps the hosted backend: its auth API (sessions) and its
// data API (row queries). One Service exists per process; every client
// instance gets its own Client holding that client's tokens.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Dosada05/association-portal/models"
)

const authPrefix = "/auth/v1"

type Config struct {
	URL     string
	AnonKey string
	// JWTSecret enables local verification of access tokens. Without it
	// every new access token is confirmed by the auth API.
	JWTSecret  string
	HTTPClient *http.Client
	// Runner overrides the data API transport (PostgREST by default).
	Runner Runner
	Logger *slog.Logger
	Now    func() time.Time
}

// Tokens are what a client instance keeps between requests.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// Empty reports whether there is nothing to restore a session from.
func (t Tokens) Empty() bool { return t.AccessToken == "" && t.RefreshToken == "" }

type Service struct {
	auth   *endpoint
	runner Runner
	tokens tokenParser
	logger *slog.Logger
	now    func() time.Time
}

func New(cfg Config) (*Service, error) {
	if cfg.URL == "" || cfg.AnonKey == "" {
		return nil, errors.New("gateway: backend URL and anon key are required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	ep, err := newEndpoint(cfg.URL, cfg.AnonKey, cfg.HTTPClient)
	if err != nil {
		return nil, err
	}
	runner := cfg.Runner
	if runner == nil {
		runner = &restRunner{ep: ep}
	}

	return &Service{
		auth:   ep,
		runner: runner,
		tokens: tokenParser{secret: []byte(cfg.JWTSecret), now: cfg.Now},
		logger: cfg.Logger,
		now:    cfg.Now,
	}, nil
}

// NewClient returns the gateway client of one client instance, seeded with
// the tokens it persisted (possibly empty).
func (s *Service) NewClient(t Tokens) *Client {
	return &Client{svc: s, tokens: t}
}

type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	ExpiresAt    int64       `json:"expires_at"`
	RefreshToken string      `json:"refresh_token"`
	User         models.User `json:"user"`
}

func (s *Service) session(resp *tokenResponse) *models.Session {
	expiresAt := time.Unix(resp.ExpiresAt, 0)
	if resp.ExpiresAt == 0 {
		expiresAt = s.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return &models.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		ExpiresAt:    expiresAt,
		User:         resp.User,
	}
}

func (s *Service) grant(ctx context.Context, grantType string, body any) (*tokenResponse, error) {
	var resp tokenResponse
	err := s.auth.do(ctx, request{
		method: http.MethodPost,
		path:   authPrefix + "/token",
		query:  url.Values{"grant_type": {grantType}},
		body:   body,
	}, &resp)
	if err != nil {
		return nil, classifyAuthError(err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response without access token", ErrAuthUnavailable)
	}
	return &resp, nil
}

func (s *Service) fetchUser(ctx context.Context, accessToken string) (*models.User, error) {
	var user models.User
	err := s.auth.do(ctx, request{
		method: http.MethodGet,
		path:   authPrefix + "/user",
		bearer: accessToken,
	}, &user)
	if err != nil {
		return nil, classifyAuthError(err)
	}
	return &user, nil
}

func (s *Service) logout(ctx context.Context, accessToken string) error {
	err := s.auth.do(ctx, request{
		method: http.MethodPost,
		path:   authPrefix + "/logout",
		bearer: accessToken,
	}, nil)
	if err != nil {
		return classifyAuthError(err)
	}
	return nil
}

// confirm turns stored tokens into a session. It returns ErrTokenExpired
// when the access token has to be refreshed first.
func (s *Service) confirm(ctx context.Context, t Tokens) (*models.Session, json.RawMessage, error) {
	claims, err := s.tokens.parse(t.AccessToken)
	if err != nil {
		return nil, nil, err
	}
	sess, err := sessionFromClaims(claims, t)
	if err != nil {
		return nil, nil, err
	}
	if !s.tokens.verifies() {
		user, err := s.fetchUser(ctx, t.AccessToken)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
				return nil, nil, ErrTokenExpired
			}
			return nil, nil, err
		}
		sess.User = *user
	}
	raw, err := json.Marshal(claims)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode claims: %w", err)
	}
	return sess, raw, nil
}

// claimsOf decodes the claims of a token the auth API has just issued.
func claimsOf(token string) json.RawMessage {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	raw, err := json.Marshal(claims)
	if err != nil {
		return nil
	}
	return raw
}

// classifyAuthError keeps API answers as *APIError and folds every
// transport failure into ErrAuthUnavailable.
func classifyAuthError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status >= http.StatusInternalServerError {
			return fmt.Errorf("%w: %v", ErrAuthUnavailable, apiErr)
		}
		return apiErr
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
}

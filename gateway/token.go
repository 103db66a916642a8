package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Dosada05/association-portal/models"
)

// Имена claims в access token, выдаваемом сервисом аутентификации.
const (
	claimSubject      = "sub"
	claimEmail        = "email"
	claimUserMetadata = "user_metadata"
	claimAppMetadata  = "app_metadata"
	claimExpiresAt    = "exp"
)

// tokenParser decodes access tokens. With a secret the HS256 signature and
// expiry are checked locally; without one the claims are only decoded and
// the token has to be confirmed by the auth service.
type tokenParser struct {
	secret []byte
	now    func() time.Time
}

func (p tokenParser) verifies() bool { return len(p.secret) > 0 }

func (p tokenParser) parse(token string) (jwt.MapClaims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims := jwt.MapClaims{}

	if !p.verifies() {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		if !claims.VerifyExpiresAt(p.now().Unix(), true) {
			return claims, ErrTokenExpired
		}
		return claims, nil
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !claims.VerifyExpiresAt(p.now().Unix(), true) {
		return claims, ErrTokenExpired
	}
	return claims, nil
}

// sessionFromClaims builds a session from verified (or service-confirmed) claims.
func sessionFromClaims(claims jwt.MapClaims, tokens Tokens) (*models.Session, error) {
	sub, _ := claims[claimSubject].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: missing %q claim", ErrInvalidToken, claimSubject)
	}
	s := &models.Session{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    "bearer",
		User: models.User{
			ID: sub,
		},
	}
	s.User.Email, _ = claims[claimEmail].(string)
	if md, ok := claims[claimUserMetadata].(map[string]any); ok {
		s.User.UserMetadata = md
	}
	if md, ok := claims[claimAppMetadata].(map[string]any); ok {
		s.User.AppMetadata = md
	}
	switch exp := claims[claimExpiresAt].(type) {
	case float64:
		s.ExpiresAt = time.Unix(int64(exp), 0)
	case json.Number:
		if v, err := exp.Int64(); err == nil {
			s.ExpiresAt = time.Unix(v, 0)
		}
	}
	return s, nil
}
